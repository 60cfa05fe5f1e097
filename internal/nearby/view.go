// Package nearby builds the "items near me" page: map markers, side cards and notices.
package nearby

import (
	"context"
	"fmt"
	"html"
	"sync"
	"time"

	"give4need/internal/common/auth"
	"give4need/internal/common/logger"
	"give4need/internal/common/metrics"
	"give4need/internal/common/observability"
	"give4need/internal/geo"
	"give4need/internal/geolocation"
	"give4need/internal/models"
	"give4need/internal/proximity"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultZoom = 14

	EmptyMessage       = "No items found nearby."
	FetchFailedMessage = "Something went wrong while loading nearby items."
)

// ItemFetcher loads candidate items, already narrowed to available ones where the store can do so.
type ItemFetcher interface {
	ListAvailable(ctx context.Context) ([]*models.Item, error)
}

type Config struct {
	Zoom int
}

type Service struct {
	config  Config
	locator *geolocation.Locator
	items   ItemFetcher
	filter  *proximity.Filter
	obs     *observability.Observability
	logger  logger.Logger
}

func NewService(
	cfg Config,
	locator *geolocation.Locator,
	items ItemFetcher,
	filter *proximity.Filter,
	obs *observability.Observability,
	log logger.Logger,
) *Service {
	if cfg.Zoom == 0 {
		cfg.Zoom = DefaultZoom
	}
	return &Service{
		config:  cfg,
		locator: locator,
		items:   items,
		filter:  filter,
		obs:     obs,
		logger:  log,
	}
}

// Request carries the per-view collaborators.
type Request struct {
	Auth     auth.StateSource
	Position geolocation.PositionSource
}

// Build runs the view once: auth subscription, position, fetch, filter, render.
// Failures become notices; Build never returns an error.
func (s *Service) Build(ctx context.Context, req Request) *models.NearbyView {
	start := time.Now()
	defer func() { metrics.NearbyDuration.Observe(time.Since(start).Seconds()) }()

	ctx, span := s.obs.StartSpan(ctx, "nearby.build")
	defer span.End()

	session := subscribe(req.Auth)
	defer session.close()

	view := &models.NearbyView{Items: []models.ItemCard{}, Notices: []models.Notice{}}

	origin, err := s.locator.Locate(ctx, req.Position)
	if err != nil {
		metrics.NearbyRequests.WithLabelValues("geolocation_error").Inc()
		view.Notices = append(view.Notices, newNotice(models.NoticeError, geolocation.NoticeMessage(err)))
		view.EmptyMessage = EmptyMessage
		return view
	}

	view.Map = &models.MapView{Center: origin, Zoom: s.config.Zoom, Markers: []models.MapMarker{}}

	items, err := s.items.ListAvailable(ctx)
	if err != nil {
		metrics.NearbyRequests.WithLabelValues("fetch_error").Inc()
		s.logger.Error("Error fetching items", map[string]interface{}{"error": err})
		span.RecordError(err)
		view.Notices = append(view.Notices, newNotice(models.NoticeError, FetchFailedMessage))
		view.EmptyMessage = EmptyMessage
		return view
	}

	requesterID := session.userID()
	res := s.filter.Apply(origin, requesterID, items)
	s.obs.RecordNearbyKept(ctx, res.Stats.Kept)
	span.SetAttributes(
		attribute.Int("nearby.scanned", res.Stats.Scanned),
		attribute.Int("nearby.kept", res.Stats.Kept),
	)

	for _, scored := range res.Items {
		view.Map.Markers = append(view.Map.Markers, marker(scored))
		view.Items = append(view.Items, card(scored))
	}
	if len(view.Items) == 0 {
		view.EmptyMessage = EmptyMessage
	}

	metrics.NearbyRequests.WithLabelValues("ok").Inc()
	s.logger.Info("nearby view built", map[string]interface{}{
		"userId":  requesterID,
		"scanned": res.Stats.Scanned,
		"kept":    res.Stats.Kept,
	})
	return view
}

func marker(s models.ScoredItem) models.MapMarker {
	pos, _ := s.Item.Position()
	return models.MapMarker{
		ID:       s.Item.ID,
		Position: pos,
		Title:    s.Item.Title,
		InfoWindow: fmt.Sprintf("<div><strong>%s</strong><br>Condition: %s<br>%s</div>",
			html.EscapeString(s.Item.Title), html.EscapeString(s.Item.Condition), geo.FormatKm(s.DistanceKm)),
	}
}

func card(s models.ScoredItem) models.ItemCard {
	return models.ItemCard{
		ID:            s.Item.ID,
		Title:         s.Item.Title,
		Condition:     s.Item.Condition,
		ImageURL:      s.Item.FirstImage(),
		DistanceKm:    s.DistanceKm,
		DistanceLabel: geo.FormatKm(s.DistanceKm),
		Href:          "/item/" + s.Item.ID,
	}
}

func newNotice(level models.NoticeLevel, msg string) models.Notice {
	return models.Notice{ID: uuid.NewString(), Level: level, Message: msg}
}

// authSession holds the latest user reported by an auth subscription.
type authSession struct {
	mu          sync.Mutex
	user        *auth.User
	unsubscribe func()
}

func subscribe(src auth.StateSource) *authSession {
	s := &authSession{}
	if src == nil {
		return s
	}
	s.unsubscribe = src.OnAuthChange(func(u *auth.User) {
		s.mu.Lock()
		s.user = u
		s.mu.Unlock()
	})
	return s
}

func (s *authSession) userID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return ""
	}
	return s.user.ID
}

func (s *authSession) close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}
