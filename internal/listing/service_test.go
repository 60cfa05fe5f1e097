package listing

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/models"
	"give4need/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Fakes and Mocks
// ==========================

type memStore struct {
	items map[string]*models.Item
	err   error
}

func newMemStore(items ...*models.Item) *memStore {
	s := &memStore{items: map[string]*models.Item{}}
	for _, it := range items {
		s.items[it.ID] = it
	}
	return s
}

func (s *memStore) Get(_ context.Context, id string) (*models.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	it, ok := s.items[id]
	if !ok {
		return nil, errors.NewItemNotFoundError(id)
	}
	cp := *it
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, item *models.Item) error {
	if s.err != nil {
		return s.err
	}
	s.items[item.ID] = item
	return nil
}

func (s *memStore) Update(_ context.Context, item *models.Item) error {
	if _, ok := s.items[item.ID]; !ok {
		return errors.NewItemNotFoundError(item.ID)
	}
	s.items[item.ID] = item
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	delete(s.items, id)
	return nil
}

func (s *memStore) sorted(keep func(*models.Item) bool) []*models.Item {
	var out []*models.Item
	for _, it := range s.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Datetime.After(out[j].Datetime) })
	return out
}

func (s *memStore) ListLatest(context.Context) ([]*models.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.sorted(func(*models.Item) bool { return true }), nil
}

func (s *memStore) ListByCategory(_ context.Context, category string) ([]*models.Item, error) {
	return s.sorted(func(it *models.Item) bool { return it.Category == category }), nil
}

func (s *memStore) ListByOwner(_ context.Context, userID string) ([]*models.Item, error) {
	return s.sorted(func(it *models.Item) bool { return it.UserID == userID }), nil
}

type memProfiles map[string]*models.UserProfile

func (p memProfiles) Get(_ context.Context, id string) (*models.UserProfile, error) {
	if prof, ok := p[id]; ok {
		return prof, nil
	}
	return models.UnknownProfile(id), nil
}

func (p memProfiles) GetMany(ctx context.Context, ids []string) (map[string]*models.UserProfile, error) {
	out := map[string]*models.UserProfile{}
	for _, id := range ids {
		out[id], _ = p.Get(ctx, id)
	}
	return out, nil
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) Put(ctx context.Context, item *models.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockIndex) Remove(ctx context.Context, itemID string) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *MockIndex) Search(ctx context.Context, q search.Query) ([]*models.Item, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Item), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, eventType string, payload interface{}) (string, error) {
	args := m.Called(ctx, eventType, payload)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helpers
// ==========================

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store *memStore, idx SearchIndex, pub EventPublisher) *Service {
	t.Helper()
	profiles := memProfiles{"owner": {ID: "owner", DisplayName: "Ada"}}
	s := NewService(store, profiles, idx, pub, logger.NewTestLogger(t))
	s.now = func() time.Time { return fixedNow }
	s.newID = func() string { return "new-item" }
	return s
}

func validInput() Input {
	return Input{
		Title:     "Desk lamp",
		Condition: "Good",
		Category:  "Furniture",
		Images:    []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg"},
		Latitude:  models.Float64(1.3521),
		Longitude: models.Float64(103.8198),
	}
}

func item(id, owner string, available bool, age time.Duration) *models.Item {
	return &models.Item{
		ID:        id,
		Title:     "Item " + id,
		Condition: "Good",
		Category:  "Furniture",
		UserID:    owner,
		Available: models.Bool(available),
		Datetime:  fixedNow.Add(-age),
		Images:    []string{},
	}
}

// ==========================
// Create
// ==========================

func TestCreate_Success(t *testing.T) {
	store := newMemStore()
	idx := new(MockIndex)
	pub := new(MockPublisher)
	idx.On("Put", mock.Anything, mock.AnythingOfType("*models.Item")).Return(nil)
	pub.On("PublishEvent", mock.Anything, models.EventListingCreated, mock.Anything).Return("msg-1", nil)

	s := newTestService(t, store, idx, pub)
	res, err := s.Create(context.Background(), "owner", validInput())
	require.NoError(t, err)

	got := res.Item
	assert.Equal(t, "new-item", got.ID)
	assert.Equal(t, "owner", got.UserID)
	assert.Equal(t, fixedNow, got.Datetime)
	assert.True(t, *got.Available)
	assert.Equal(t, []string{"1.jpg", "2.jpg", "3.jpg"}, got.Images)
	assert.Equal(t, "Successfully created listing.", res.Notice.Message)
	assert.Contains(t, store.items, "new-item")

	idx.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"blank title", func(in *Input) { in.Title = "  " }, "title"},
		{"unknown condition", func(in *Input) { in.Condition = "Broken" }, "condition"},
		{"no images", func(in *Input) { in.Images = nil }, "images"},
		{"empty images", func(in *Input) { in.Images = []string{} }, "images"},
		{"no coordinates", func(in *Input) { in.Latitude = nil }, "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, newMemStore(), new(MockIndex), new(MockPublisher))
			in := validInput()
			tt.mutate(&in)

			_, err := s.Create(context.Background(), "owner", in)
			require.Error(t, err)
			stdErr, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeListingValidationFailed, stdErr.Code)
			assert.Contains(t, stdErr.Metadata["fields"], tt.field)
		})
	}
}

func TestCreate_Unauthenticated(t *testing.T) {
	s := newTestService(t, newMemStore(), new(MockIndex), new(MockPublisher))
	_, err := s.Create(context.Background(), "", validInput())
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthenticated))
}

func TestCreate_IndexAndEventFailuresDoNotFail(t *testing.T) {
	idx := new(MockIndex)
	pub := new(MockPublisher)
	idx.On("Put", mock.Anything, mock.Anything).Return(fmt.Errorf("es down"))
	pub.On("PublishEvent", mock.Anything, mock.Anything, mock.Anything).Return("", fmt.Errorf("throttled"))

	s := newTestService(t, newMemStore(), idx, pub)
	_, err := s.Create(context.Background(), "owner", validInput())
	assert.NoError(t, err)
}

// ==========================
// Owner-only operations
// ==========================

func TestUpdate(t *testing.T) {
	store := newMemStore(item("a", "owner", true, time.Hour))
	idx := new(MockIndex)
	pub := new(MockPublisher)
	idx.On("Put", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishEvent", mock.Anything, models.EventListingUpdated, mock.Anything).Return("m", nil)
	s := newTestService(t, store, idx, pub)

	in := Input{Title: "Reading lamp", Condition: "Like New", Brand: "IKEA"}
	res, err := s.Update(context.Background(), "owner", "a", in)
	require.NoError(t, err)
	assert.Equal(t, "Reading lamp", store.items["a"].Title)
	assert.Equal(t, "IKEA", store.items["a"].Brand)
	assert.Equal(t, []string{}, res.Item.Images)

	_, err = s.Update(context.Background(), "owner", "a", Input{Title: "x"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeListingValidationFailed))
}

func TestOwnerOnly(t *testing.T) {
	store := newMemStore(item("a", "owner", true, time.Hour))
	s := newTestService(t, store, new(MockIndex), new(MockPublisher))
	ctx := context.Background()

	_, err := s.Update(ctx, "intruder", "a", Input{Title: "mine now", Condition: "Good"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeListingForbidden))

	_, err = s.ToggleAvailability(ctx, "intruder", "a")
	assert.True(t, errors.HasCode(err, errors.ErrCodeListingForbidden))

	_, err = s.Delete(ctx, "intruder", "a")
	assert.True(t, errors.HasCode(err, errors.ErrCodeListingForbidden))
	assert.Contains(t, store.items, "a")

	_, err = s.Delete(ctx, "owner", "missing")
	assert.True(t, errors.HasCode(err, errors.ErrCodeItemNotFound))
}

func TestToggleAvailability(t *testing.T) {
	store := newMemStore(item("a", "owner", true, time.Hour))
	idx := new(MockIndex)
	pub := new(MockPublisher)
	idx.On("Put", mock.Anything, mock.Anything).Return(nil)
	pub.On("PublishEvent", mock.Anything, models.EventListingAvailabilityChanged, mock.Anything).Return("m", nil)
	s := newTestService(t, store, idx, pub)

	res, err := s.ToggleAvailability(context.Background(), "owner", "a")
	require.NoError(t, err)
	assert.Equal(t, "Marked as Completed", res.Notice.Message)
	assert.Equal(t, "Item a has been updated.", res.Notice.Description)
	assert.False(t, store.items["a"].IsAvailable())

	res, err = s.ToggleAvailability(context.Background(), "owner", "a")
	require.NoError(t, err)
	assert.Equal(t, "Marked as Uncompleted", res.Notice.Message)
	assert.True(t, store.items["a"].IsAvailable())
	pub.AssertNumberOfCalls(t, "PublishEvent", 2)
}

func TestDelete(t *testing.T) {
	store := newMemStore(item("a", "owner", true, time.Hour))
	idx := new(MockIndex)
	pub := new(MockPublisher)
	idx.On("Remove", mock.Anything, "a").Return(nil)
	pub.On("PublishEvent", mock.Anything, models.EventListingDeleted, mock.Anything).Return("m", nil)
	s := newTestService(t, store, idx, pub)

	res, err := s.Delete(context.Background(), "owner", "a")
	require.NoError(t, err)
	assert.Equal(t, "The Item a has been removed.", res.Notice.Description)
	assert.NotContains(t, store.items, "a")
	idx.AssertExpectations(t)
}

// ==========================
// Browse pages
// ==========================

func TestDetails(t *testing.T) {
	it := item("a", "owner", true, time.Hour)
	it.MeetupLocation = "Raffles Place & Co"
	s := newTestService(t, newMemStore(it), nil, nil)

	d, err := s.Details(context.Background(), "owner", "a")
	require.NoError(t, err)
	assert.True(t, d.IsOwner)
	assert.Equal(t, "Ada", d.Owner.DisplayName)
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=Raffles%20Place%20%26%20Co", d.MapsURL)

	d, err = s.Details(context.Background(), "someone", "a")
	require.NoError(t, err)
	assert.False(t, d.IsOwner)
}

func TestLatest(t *testing.T) {
	lamp := item("lamp", "owner", true, time.Hour)
	lamp.Title = "Desk Lamp"
	store := newMemStore(
		lamp,
		item("older", "owner", true, 2*time.Hour),
		item("done", "owner", false, 30*time.Minute),
		item("mine", "viewer", true, time.Minute),
	)
	s := newTestService(t, store, nil, nil)

	got, err := s.Latest(context.Background(), "viewer", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "lamp", got[0].ID)
	assert.Equal(t, "older", got[1].ID)
	assert.Equal(t, "Ada", got[0].Owner.DisplayName)

	got, err = s.Latest(context.Background(), "viewer", "  LAMP ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "lamp", got[0].ID)

	got, err = s.Latest(context.Background(), "viewer", "furn")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCategoryAndMine(t *testing.T) {
	other := item("b", "stranger", true, time.Hour)
	other.Category = "Books"
	store := newMemStore(item("a", "owner", false, time.Hour), other)
	s := newTestService(t, store, nil, nil)

	books, err := s.Category(context.Background(), "Books")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Unknown User", books[0].Owner.DisplayName)

	mine, err := s.Mine(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.False(t, mine[0].IsAvailable())

	_, err = s.Mine(context.Background(), "")
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnauthenticated))
}

func TestSearch(t *testing.T) {
	idx := new(MockIndex)
	idx.On("Search", mock.Anything, search.Query{Text: "lamp"}).
		Return([]*models.Item{item("a", "owner", true, 0)}, nil)
	s := newTestService(t, newMemStore(), idx, nil)

	got, err := s.Search(context.Background(), "lamp")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ada", got[0].Owner.DisplayName)

	s = newTestService(t, newMemStore(), nil, nil)
	_, err = s.Search(context.Background(), "lamp")
	assert.True(t, errors.HasCode(err, errors.ErrCodeSearchQueryFailed))
}
