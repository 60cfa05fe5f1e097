package models

// NoticeLevel is the severity of a transient user notification.
type NoticeLevel string

const (
	NoticeError   NoticeLevel = "error"
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a transient user notification shown once.
type Notice struct {
	ID          string      `json:"id"`
	Level       NoticeLevel `json:"level"`
	Message     string      `json:"message"`
	Description string      `json:"description,omitempty"`
}

type MapMarker struct {
	ID         string   `json:"id"`
	Position   GeoPoint `json:"position"`
	Title      string   `json:"title"`
	InfoWindow string   `json:"infoWindow"`
}

type MapView struct {
	Center  GeoPoint    `json:"center"`
	Zoom    int         `json:"zoom"`
	Markers []MapMarker `json:"markers"`
}

type ItemCard struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Condition     string  `json:"condition"`
	ImageURL      string  `json:"imageUrl"`
	DistanceKm    float64 `json:"distanceKm"`
	DistanceLabel string  `json:"distanceLabel"`
	Href          string  `json:"href"`
}

// NearbyView is everything the nearby page renders. Map is nil when the requester position is unknown.
type NearbyView struct {
	Map          *MapView   `json:"map"`
	Items        []ItemCard `json:"items"`
	EmptyMessage string     `json:"emptyMessage,omitempty"`
	Notices      []Notice   `json:"notices"`
}
