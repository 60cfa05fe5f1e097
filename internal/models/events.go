package models

import "time"

// Listing lifecycle event types.
const (
	EventListingCreated             = "listing.created"
	EventListingUpdated             = "listing.updated"
	EventListingAvailabilityChanged = "listing.availability_changed"
	EventListingDeleted             = "listing.deleted"
)

type ListingEvent struct {
	Type       string    `json:"type"`
	ItemID     string    `json:"itemId"`
	UserID     string    `json:"userId"`
	Available  *bool     `json:"available,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
