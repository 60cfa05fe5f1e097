package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemFromDocument(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		wantPos    bool
		wantAvail  bool
		wantImages int
	}{
		{
			name:       "numeric coordinates",
			doc:        `{"title":"Chair","userId":"u1","latitude":1.3521,"longitude":103.8198,"images":["a","b"],"available":true}`,
			wantPos:    true,
			wantAvail:  true,
			wantImages: 2,
		},
		{
			name:      "numeric string coordinates",
			doc:       `{"title":"Chair","userId":"u1","latitude":"1.35","longitude":" 103.8 "}`,
			wantPos:   true,
			wantAvail: true,
		},
		{
			name:      "non-numeric string coordinates",
			doc:       `{"title":"Chair","userId":"u1","latitude":"north","longitude":"103.8"}`,
			wantAvail: true,
		},
		{
			name:      "blank and NaN strings",
			doc:       `{"title":"Chair","userId":"u1","latitude":"","longitude":"NaN"}`,
			wantAvail: true,
		},
		{
			name:      "boolean coordinates",
			doc:       `{"title":"Chair","userId":"u1","latitude":true,"longitude":false}`,
			wantAvail: true,
		},
		{
			name:      "missing longitude",
			doc:       `{"title":"Chair","userId":"u1","latitude":1.35}`,
			wantAvail: true,
		},
		{
			name:      "null coordinates",
			doc:       `{"title":"Chair","userId":"u1","latitude":null,"longitude":null,"available":false}`,
			wantAvail: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := ItemFromDocument("item-1", []byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, "item-1", item.ID)

			_, ok := item.Position()
			assert.Equal(t, tt.wantPos, ok)
			assert.Equal(t, tt.wantAvail, item.IsAvailable())
			assert.Len(t, item.Images, tt.wantImages)
		})
	}
}

func TestItemFromDocument_NumericStringValue(t *testing.T) {
	item, err := ItemFromDocument("item-1", []byte(`{"title":"Chair","userId":"u1","latitude":"0.01","longitude":"-0.5"}`))
	require.NoError(t, err)

	pos, ok := item.Position()
	require.True(t, ok)
	assert.Equal(t, GeoPoint{Lat: 0.01, Lng: -0.5}, pos)
}

func TestItemFromDocument_Malformed(t *testing.T) {
	_, err := ItemFromDocument("x", []byte(`{"title":`))
	assert.Error(t, err)
}

func TestItem_DocumentRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	item := &Item{
		ID:        "item-1",
		Title:     "Lamp",
		Condition: "Good",
		Images:    []string{"a.jpg"},
		Datetime:  ts,
		UserID:    "u1",
		Latitude:  Float64(1.5),
		Longitude: Float64(103.5),
	}

	raw, err := item.Document()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NotContains(t, doc, "id")
	assert.Equal(t, true, doc["available"])

	back, err := ItemFromDocument("item-1", raw)
	require.NoError(t, err)
	assert.Equal(t, ts, back.Datetime)
	assert.Equal(t, "a.jpg", back.FirstImage())
	pos, ok := back.Position()
	require.True(t, ok)
	assert.Equal(t, GeoPoint{Lat: 1.5, Lng: 103.5}, pos)
}
