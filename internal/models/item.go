// internal/models/item.go
package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Conditions accepted on create and edit.
var Conditions = []string{"New", "Like New", "Good", "Fair", "Poor"}

// MaxImages caps the image list on create.
const MaxImages = 3

// Item is a donated item as stored in the items collection.
// Latitude and Longitude are nil when the stored value is missing or not numeric.
type Item struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Category       string    `json:"category,omitempty"`
	Condition      string    `json:"condition,omitempty"`
	Brand          string    `json:"brand,omitempty"`
	Description    string    `json:"description,omitempty"`
	MeetupLocation string    `json:"meetupLocation,omitempty"`
	Images         []string  `json:"images"`
	Datetime       time.Time `json:"datetime"`
	UserID         string    `json:"userId"`
	Available      *bool     `json:"available,omitempty"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
}

// IsAvailable treats a missing flag as available. Only an explicit false hides an item.
func (i *Item) IsAvailable() bool {
	return i.Available == nil || *i.Available
}

// Position returns the item's coordinates when both are present.
func (i *Item) Position() (GeoPoint, bool) {
	if i.Latitude == nil || i.Longitude == nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: *i.Latitude, Lng: *i.Longitude}, true
}

// FirstImage returns the first image URL or "".
func (i *Item) FirstImage() string {
	if len(i.Images) == 0 {
		return ""
	}
	return i.Images[0]
}

// itemDocument mirrors the stored JSON with loosely typed fields.
type itemDocument struct {
	Title          string          `json:"title"`
	Category       string          `json:"category"`
	Condition      string          `json:"condition"`
	Brand          string          `json:"brand"`
	Description    string          `json:"description"`
	MeetupLocation string          `json:"meetupLocation"`
	Images         []string        `json:"images"`
	Datetime       string          `json:"datetime"`
	UserID         string          `json:"userId"`
	Available      *bool           `json:"available"`
	Latitude       json.RawMessage `json:"latitude"`
	Longitude      json.RawMessage `json:"longitude"`
}

// ItemFromDocument decodes a stored document. id comes from the row key, not the document body.
func ItemFromDocument(id string, raw []byte) (*Item, error) {
	var doc itemDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode item %s: %w", id, err)
	}

	item := &Item{
		ID:             id,
		Title:          doc.Title,
		Category:       doc.Category,
		Condition:      doc.Condition,
		Brand:          doc.Brand,
		Description:    doc.Description,
		MeetupLocation: doc.MeetupLocation,
		Images:         doc.Images,
		UserID:         doc.UserID,
		Available:      doc.Available,
		Latitude:       numberOrNil(doc.Latitude),
		Longitude:      numberOrNil(doc.Longitude),
	}
	if item.Images == nil {
		item.Images = []string{}
	}
	if doc.Datetime != "" {
		if ts, err := time.Parse(time.RFC3339Nano, doc.Datetime); err == nil {
			item.Datetime = ts
		}
	}
	return item, nil
}

// Document encodes the item for storage, without its id.
func (i *Item) Document() ([]byte, error) {
	doc := map[string]interface{}{
		"title":          i.Title,
		"category":       i.Category,
		"condition":      i.Condition,
		"brand":          i.Brand,
		"description":    i.Description,
		"meetupLocation": i.MeetupLocation,
		"images":         i.Images,
		"datetime":       i.Datetime.UTC().Format(time.RFC3339Nano),
		"userId":         i.UserID,
		"available":      i.IsAvailable(),
	}
	if i.Latitude != nil {
		doc["latitude"] = *i.Latitude
	}
	if i.Longitude != nil {
		doc["longitude"] = *i.Longitude
	}
	return json.Marshal(doc)
}

// numberOrNil accepts JSON numbers and numeric strings such as "0.01".
// Null, booleans, blank or non-numeric strings and NaN decode to nil.
func numberOrNil(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil
		}
		str = strings.TrimSpace(str)
		if str == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return nil
		}
		f = parsed
	} else if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

// Float64 and Bool return pointers for literal values.
func Float64(v float64) *float64 { return &v }

func Bool(v bool) *bool { return &v }
