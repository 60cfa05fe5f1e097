// Package listing implements the owner-facing listing operations and the browse pages.
package listing

import (
	"context"
	"net/url"
	"strings"
	"time"

	"give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/common/metrics"
	"give4need/internal/common/validation"
	"give4need/internal/models"
	"give4need/internal/search"

	"github.com/google/uuid"
)

const mapsSearchURL = "https://www.google.com/maps/search/?api=1&query="

type ItemStore interface {
	Get(ctx context.Context, id string) (*models.Item, error)
	Create(ctx context.Context, item *models.Item) error
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, id string) error
	ListLatest(ctx context.Context) ([]*models.Item, error)
	ListByCategory(ctx context.Context, category string) ([]*models.Item, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.Item, error)
}

type ProfileStore interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	GetMany(ctx context.Context, userIDs []string) (map[string]*models.UserProfile, error)
}

type SearchIndex interface {
	Put(ctx context.Context, item *models.Item) error
	Remove(ctx context.Context, itemID string) error
	Search(ctx context.Context, q search.Query) ([]*models.Item, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, payload interface{}) (string, error)
}

// Input is the create and edit form.
type Input struct {
	Title          string   `json:"title"`
	Condition      string   `json:"condition"`
	Category       string   `json:"category"`
	Brand          string   `json:"brand"`
	Description    string   `json:"description"`
	MeetupLocation string   `json:"meetupLocation"`
	Images         []string `json:"images"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
}

// Mutation is the outcome of a write: the stored item and the notice to show.
type Mutation struct {
	Item   *models.Item  `json:"item"`
	Notice models.Notice `json:"notice"`
}

type Details struct {
	Item    *models.Item        `json:"item"`
	Owner   *models.UserProfile `json:"owner"`
	IsOwner bool                `json:"isOwner"`
	MapsURL string              `json:"mapsUrl"`
}

type Service struct {
	items    ItemStore
	profiles ProfileStore
	index    SearchIndex
	events   EventPublisher
	create   *validation.Validator
	update   *validation.Validator
	logger   logger.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires the listing operations. index and events may be nil.
func NewService(items ItemStore, profiles ProfileStore, index SearchIndex, events EventPublisher, log logger.Logger) *Service {
	return &Service{
		items:    items,
		profiles: profiles,
		index:    index,
		events:   events,
		create:   validation.MustValidator(validation.ListingInputSchema),
		update:   validation.MustValidator(validation.ListingUpdateSchema),
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Create stores a new available listing owned by userID.
func (s *Service) Create(ctx context.Context, userID string, in Input) (*Mutation, error) {
	if userID == "" {
		return nil, errors.NewUnauthenticatedError("create listing")
	}
	if err := s.validate(s.create, in, true); err != nil {
		return nil, err
	}

	item := &models.Item{
		ID:             s.newID(),
		Title:          strings.TrimSpace(in.Title),
		Category:       in.Category,
		Condition:      in.Condition,
		Brand:          in.Brand,
		Description:    in.Description,
		MeetupLocation: in.MeetupLocation,
		Images:         capImages(in.Images),
		Datetime:       s.now(),
		UserID:         userID,
		Available:      models.Bool(true),
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, err
	}

	s.reindex(ctx, item)
	s.publish(ctx, models.EventListingCreated, item)
	s.logger.Info("listing created", map[string]interface{}{"itemId": item.ID, "userId": userID})

	return &Mutation{Item: item, Notice: notice("Successfully created listing.", "Your listing is created")}, nil
}

// Update edits the owner's listing. Images are replaced only when given.
func (s *Service) Update(ctx context.Context, userID, itemID string, in Input) (*Mutation, error) {
	item, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(s.update, in, false); err != nil {
		return nil, err
	}

	item.Title = strings.TrimSpace(in.Title)
	item.Condition = in.Condition
	item.Category = in.Category
	item.Brand = in.Brand
	item.Description = in.Description
	item.MeetupLocation = in.MeetupLocation
	if in.Images != nil {
		item.Images = capImages(in.Images)
	}
	if in.Latitude != nil && in.Longitude != nil {
		item.Latitude, item.Longitude = in.Latitude, in.Longitude
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.reindex(ctx, item)
	s.publish(ctx, models.EventListingUpdated, item)

	return &Mutation{Item: item, Notice: notice("Successfully updated listing.", "Your listing has been updated")}, nil
}

// ToggleAvailability flips the owner's listing between available and completed.
func (s *Service) ToggleAvailability(ctx context.Context, userID, itemID string) (*Mutation, error) {
	item, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	wasAvailable := item.IsAvailable()
	item.Available = models.Bool(!wasAvailable)
	if err := s.items.Update(ctx, item); err != nil {
		return nil, err
	}

	s.reindex(ctx, item)
	s.publish(ctx, models.EventListingAvailabilityChanged, item)

	msg := "Marked as Uncompleted"
	if wasAvailable {
		msg = "Marked as Completed"
	}
	return &Mutation{Item: item, Notice: notice(msg, item.Title+" has been updated.")}, nil
}

// Delete removes the owner's listing and its search entry.
func (s *Service) Delete(ctx context.Context, userID, itemID string) (*Mutation, error) {
	item, err := s.owned(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.items.Delete(ctx, itemID); err != nil {
		return nil, err
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, itemID); err != nil {
			s.logger.Warn("failed to remove listing from search index", map[string]interface{}{"itemId": itemID, "error": err})
		}
	}
	s.publish(ctx, models.EventListingDeleted, item)

	return &Mutation{Item: item, Notice: notice("Listing deleted successfully.", "The "+item.Title+" has been removed.")}, nil
}

// Details returns the item page for any viewer.
func (s *Service) Details(ctx context.Context, viewerID, itemID string) (*Details, error) {
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	owner, err := s.profiles.Get(ctx, item.UserID)
	if err != nil {
		return nil, err
	}
	return &Details{
		Item:    item,
		Owner:   owner,
		IsOwner: viewerID != "" && viewerID == item.UserID,
		MapsURL: MapsURL(item.MeetupLocation),
	}, nil
}

// Latest lists other people's available items, newest first, narrowed by an optional text filter.
func (s *Service) Latest(ctx context.Context, viewerID, q string) ([]models.ItemWithOwner, error) {
	all, err := s.items.ListLatest(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(q))
	kept := make([]*models.Item, 0, len(all))
	for _, item := range all {
		if item.UserID == viewerID || !item.IsAvailable() {
			continue
		}
		if needle != "" && !matches(item, needle) {
			continue
		}
		kept = append(kept, item)
	}
	return s.withOwners(ctx, kept)
}

// Category lists every item in category.
func (s *Service) Category(ctx context.Context, category string) ([]models.ItemWithOwner, error) {
	items, err := s.items.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	return s.withOwners(ctx, items)
}

// Mine lists the requester's own listings, completed ones included.
func (s *Service) Mine(ctx context.Context, userID string) ([]*models.Item, error) {
	if userID == "" {
		return nil, errors.NewUnauthenticatedError("list own listings")
	}
	return s.items.ListByOwner(ctx, userID)
}

// Search runs a full-text query over available listings.
func (s *Service) Search(ctx context.Context, q string) ([]models.ItemWithOwner, error) {
	if s.index == nil {
		return nil, errors.NewSearchQueryFailedError(search.ErrMissingIndex)
	}
	items, err := s.index.Search(ctx, search.Query{Text: q})
	if err != nil {
		return nil, err
	}
	return s.withOwners(ctx, items)
}

// MapsURL links a meetup location to a Google Maps search.
func MapsURL(location string) string {
	return mapsSearchURL + strings.ReplaceAll(url.QueryEscape(location), "+", "%20")
}

func (s *Service) owned(ctx context.Context, userID, itemID string) (*models.Item, error) {
	if userID == "" {
		return nil, errors.NewUnauthenticatedError("modify listing")
	}
	item, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, errors.NewListingForbiddenError(itemID, userID)
	}
	return item, nil
}

func (s *Service) validate(v *validation.Validator, in Input, withCoordinates bool) error {
	doc := map[string]interface{}{
		"title":     in.Title,
		"condition": in.Condition,
	}
	if in.Images != nil {
		images := make([]interface{}, len(in.Images))
		for i, img := range in.Images {
			images[i] = img
		}
		doc["images"] = images
	}
	if withCoordinates {
		if in.Latitude != nil {
			doc["latitude"] = *in.Latitude
		}
		if in.Longitude != nil {
			doc["longitude"] = *in.Longitude
		}
	}

	res, err := v.Validate(doc)
	if err != nil {
		return errors.NewParseError(err)
	}
	if !res.Valid {
		return errors.NewListingValidationError(res.FieldMessages())
	}
	return nil
}

func (s *Service) withOwners(ctx context.Context, items []*models.Item) ([]models.ItemWithOwner, error) {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.UserID)
	}
	profiles, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.ItemWithOwner, 0, len(items))
	for _, item := range items {
		owner, ok := profiles[item.UserID]
		if !ok {
			owner = models.UnknownProfile(item.UserID)
		}
		out = append(out, models.ItemWithOwner{Item: *item, Owner: owner})
	}
	return out, nil
}

func (s *Service) reindex(ctx context.Context, item *models.Item) {
	if s.index == nil {
		return
	}
	if err := s.index.Put(ctx, item); err != nil {
		s.logger.Warn("failed to index listing", map[string]interface{}{"itemId": item.ID, "error": err})
	}
}

func (s *Service) publish(ctx context.Context, eventType string, item *models.Item) {
	if s.events == nil {
		return
	}
	event := models.ListingEvent{
		Type:       eventType,
		ItemID:     item.ID,
		UserID:     item.UserID,
		Available:  models.Bool(item.IsAvailable()),
		OccurredAt: s.now(),
	}
	if _, err := s.events.PublishEvent(ctx, eventType, event); err != nil {
		metrics.ListingEvents.WithLabelValues(eventType, "failed").Inc()
		s.logger.Warn("failed to publish listing event", map[string]interface{}{
			"eventType": eventType,
			"itemId":    item.ID,
			"error":     errors.NewEventPublishFailedError(eventType, err),
		})
		return
	}
	metrics.ListingEvents.WithLabelValues(eventType, "published").Inc()
}

func matches(item *models.Item, needle string) bool {
	return strings.Contains(strings.ToLower(item.Title), needle) ||
		strings.Contains(strings.ToLower(item.Condition), needle) ||
		strings.Contains(strings.ToLower(item.Category), needle)
}

func capImages(images []string) []string {
	if len(images) > models.MaxImages {
		images = images[:models.MaxImages]
	}
	out := make([]string, len(images))
	copy(out, images)
	return out
}

func notice(msg, description string) models.Notice {
	return models.Notice{ID: uuid.NewString(), Level: models.NoticeSuccess, Message: msg, Description: description}
}
