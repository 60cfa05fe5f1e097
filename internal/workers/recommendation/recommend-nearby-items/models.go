package recommendnearbyitems

import "give4need/internal/models"

// Input carries what the browser reported: coordinates, or the geolocation error code it got.
type Input struct {
	UserID               string   `json:"userId"`
	Latitude             *float64 `json:"latitude,omitempty"`
	Longitude            *float64 `json:"longitude,omitempty"`
	GeolocationErrorCode int      `json:"geolocationErrorCode,omitempty"`
}

type Output struct {
	NearbyMap          *models.MapView   `json:"nearbyMap"`
	NearbyItems        []models.ItemCard `json:"nearbyItems"`
	NearbyItemCount    int               `json:"nearbyItemCount"`
	NearbyEmptyMessage string            `json:"nearbyEmptyMessage,omitempty"`
	NearbyNotices      []models.Notice   `json:"nearbyNotices"`
}
