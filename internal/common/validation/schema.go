package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Document schemas checked at the store boundary. Coordinates are left untyped: a non-numeric
// latitude or longitude is a filtering concern, not a malformed document.
const ItemDocumentSchema = `{
	"type": "object",
	"required": ["title", "userId"],
	"properties": {
		"title":          {"type": "string"},
		"category":       {"type": "string"},
		"condition":      {"type": "string"},
		"brand":          {"type": "string"},
		"description":    {"type": "string"},
		"meetupLocation": {"type": "string"},
		"images":         {"type": "array", "items": {"type": "string"}},
		"datetime":       {"type": "string"},
		"userId":         {"type": "string", "minLength": 1},
		"available":      {"type": "boolean"}
	}
}`

const UserProfileSchema = `{
	"type": "object",
	"properties": {
		"displayName": {"type": "string"},
		"photoUrl":    {"type": "string"}
	}
}`

// ListingInputSchema covers the create and edit forms.
const ListingInputSchema = `{
	"type": "object",
	"required": ["title", "condition", "images", "latitude", "longitude"],
	"properties": {
		"title":          {"type": "string", "minLength": 1, "pattern": "\\S"},
		"condition":      {"type": "string", "enum": ["New", "Like New", "Good", "Fair", "Poor"]},
		"category":       {"type": "string"},
		"brand":          {"type": "string"},
		"description":    {"type": "string"},
		"meetupLocation": {"type": "string"},
		"images":         {"type": "array", "minItems": 1, "items": {"type": "string", "minLength": 1}},
		"latitude":       {"type": "number"},
		"longitude":      {"type": "number"}
	}
}`

// ListingUpdateSchema covers the edit form. Images and coordinates keep their stored values when omitted.
const ListingUpdateSchema = `{
	"type": "object",
	"required": ["title", "condition"],
	"properties": {
		"title":     {"type": "string", "minLength": 1, "pattern": "\\S"},
		"condition": {"type": "string", "enum": ["New", "Like New", "Good", "Fair", "Poor"]},
		"images":    {"type": "array", "items": {"type": "string", "minLength": 1}}
	}
}`

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds a compiled schema.
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles schemaJSON.
func NewValidator(schemaJSON string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustValidator panics on an invalid schema. Only for the package-level schemas above.
func MustValidator(schemaJSON string) *Validator {
	v, err := NewValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a decoded document (map, struct, or slice).
func (v *Validator) Validate(doc interface{}) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

// ValidateJSON checks a raw JSON document.
func (v *Validator) ValidateJSON(raw []byte) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	return toResult(result), nil
}

func toResult(result *gojsonschema.Result) *ValidationResult {
	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if prop, ok := desc.Details()["property"].(string); ok {
				field = prop
			}
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// FieldMessages keeps the first message per field.
func (vr *ValidationResult) FieldMessages() map[string]string {
	out := make(map[string]string, len(vr.Errors))
	for _, err := range vr.Errors {
		if _, seen := out[err.Field]; !seen {
			out[err.Field] = err.Message
		}
	}
	return out
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}
