package models

// GeoPoint is a WGS84 position in decimal degrees. Range is not checked.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ScoredItem is an item annotated with its distance from the requester.
type ScoredItem struct {
	Item       *Item   `json:"item"`
	DistanceKm float64 `json:"distanceKm"`
}
