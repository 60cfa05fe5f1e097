// Package users reads user profiles through a Redis read-through cache.
package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/common/metrics"
	"give4need/internal/common/validation"
	"give4need/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultCacheTTL = 10 * time.Minute

	queryProfile  = `SELECT doc FROM users WHERE id = $1`
	upsertProfile = `INSERT INTO users (id, doc) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`
)

// CacheKey returns the Redis key for a profile.
func CacheKey(userID string) string {
	return "user:profile:" + userID
}

type Repository struct {
	db        *sql.DB
	redis     *redis.Client
	ttl       time.Duration
	validator *validation.Validator
	logger    logger.Logger
}

func NewRepository(db *sql.DB, rdb *redis.Client, ttl time.Duration, log logger.Logger) *Repository {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Repository{
		db:        db,
		redis:     rdb,
		ttl:       ttl,
		validator: validation.MustValidator(validation.UserProfileSchema),
		logger:    log.WithFields(map[string]interface{}{"collection": "users"}),
	}
}

// Get returns the profile, or the "Unknown User" placeholder when none is stored.
// Cache failures fall through to the database.
func (r *Repository) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return models.UnknownProfile(""), nil
	}

	if profile, ok := r.fromCache(ctx, userID); ok {
		return profile, nil
	}

	var doc []byte
	err := r.db.QueryRowContext(ctx, queryProfile, userID).Scan(&doc)
	if err == sql.ErrNoRows {
		return models.UnknownProfile(userID), nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get_profile", err)
	}

	profile, err := r.decode(userID, doc)
	if err != nil {
		r.logger.Warn("invalid profile document", map[string]interface{}{"userId": userID, "error": err})
		return models.UnknownProfile(userID), nil
	}

	r.toCache(ctx, profile)
	return profile, nil
}

// GetMany resolves each distinct id once.
func (r *Repository) GetMany(ctx context.Context, userIDs []string) (map[string]*models.UserProfile, error) {
	out := make(map[string]*models.UserProfile, len(userIDs))
	for _, id := range userIDs {
		if _, done := out[id]; done {
			continue
		}
		profile, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = profile
	}
	return out, nil
}

// Save writes the profile and drops the cached copy.
func (r *Repository) Save(ctx context.Context, profile *models.UserProfile) error {
	if profile.DisplayName == "" {
		return errors.NewListingValidationError(map[string]string{"displayName": "display name is required"})
	}
	doc, err := json.Marshal(map[string]string{
		"displayName": profile.DisplayName,
		"photoUrl":    profile.PhotoURL,
	})
	if err != nil {
		return errors.NewDatabaseError("encode_profile", err)
	}
	if _, err := r.db.ExecContext(ctx, upsertProfile, profile.ID, doc); err != nil {
		return errors.NewDatabaseError("save_profile", err)
	}
	if err := r.redis.Del(ctx, CacheKey(profile.ID)).Err(); err != nil {
		r.logger.Warn("failed to invalidate profile cache", map[string]interface{}{"userId": profile.ID, "error": err})
	}
	return nil
}

func (r *Repository) fromCache(ctx context.Context, userID string) (*models.UserProfile, bool) {
	val, err := r.redis.Get(ctx, CacheKey(userID)).Result()
	if err == redis.Nil {
		metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.ProfileCacheLookups.WithLabelValues("error").Inc()
		r.logger.Warn("profile cache read failed", map[string]interface{}{"userId": userID, "error": err})
		return nil, false
	}

	var profile models.UserProfile
	if err := json.Unmarshal([]byte(val), &profile); err != nil {
		metrics.ProfileCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
	return &profile, true
}

func (r *Repository) toCache(ctx context.Context, profile *models.UserProfile) {
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, CacheKey(profile.ID), data, r.ttl).Err(); err != nil {
		r.logger.Warn("profile cache write failed", map[string]interface{}{"userId": profile.ID, "error": err})
	}
}

func (r *Repository) decode(userID string, doc []byte) (*models.UserProfile, error) {
	res, err := r.validator.ValidateJSON(doc)
	if err != nil {
		return nil, err
	}
	if !res.Valid {
		return nil, fmt.Errorf("%v", res.GetErrorMessages())
	}
	var profile models.UserProfile
	if err := json.Unmarshal(doc, &profile); err != nil {
		return nil, err
	}
	profile.ID = userID
	if profile.DisplayName == "" {
		profile.DisplayName = models.UnknownUserName
	}
	return &profile, nil
}
