package search

import (
	"encoding/json"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const DefaultSize = 50

// Query describes a listing search.
type Query struct {
	Text     string
	Category string
	From     int
	Size     int
}

// BuildSearchRequest builds a search over available listings. An empty text matches everything.
func BuildSearchRequest(index string, q Query) (*esapi.SearchRequest, error) {
	if index == "" {
		return nil, ErrMissingIndex
	}
	if q.Size <= 0 {
		q.Size = DefaultSize
	}
	if q.From < 0 {
		q.From = 0
	}

	body, err := json.Marshal(buildQueryBody(q))
	if err != nil {
		return nil, err
	}

	return &esapi.SearchRequest{
		Index: []string{index},
		Body:  strings.NewReader(string(body)),
		From:  &q.From,
		Size:  &q.Size,
	}, nil
}

func buildQueryBody(q Query) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"available": true}},
	}

	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     text,
				"fields":    []string{"title^3", "description^2", "brand", "category"},
				"type":      "best_fields",
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	if q.Category != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"category": q.Category},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filter,
			},
		},
		"sort": []interface{}{"_score", map[string]interface{}{"datetime": map[string]interface{}{"order": "desc"}}},
	}
}

// IndexMapping is applied when the index is created.
const IndexMapping = `{
	"mappings": {
		"properties": {
			"title":          {"type": "text"},
			"description":    {"type": "text"},
			"brand":          {"type": "text"},
			"category":       {"type": "keyword"},
			"condition":      {"type": "keyword"},
			"meetupLocation": {"type": "text"},
			"images":         {"type": "keyword", "index": false},
			"userId":         {"type": "keyword"},
			"available":      {"type": "boolean"},
			"datetime":       {"type": "date"},
			"latitude":       {"type": "double"},
			"longitude":      {"type": "double"}
		}
	}
}`
