// Package geolocation resolves the requester's position and classifies the ways that can fail.
package geolocation

import (
	"context"
	"fmt"
	"math"
	"time"

	"give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/common/metrics"
	"give4need/internal/models"
)

// DefaultTimeout bounds a single position request.
const DefaultTimeout = 10 * time.Second

// Browser PositionError codes.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// PositionSource reports the device position once. Implementations must return once ctx is done:
// Locate gives up at its timeout, and a source that keeps blocking keeps its goroutine alive.
type PositionSource interface {
	CurrentPosition(ctx context.Context) (models.GeoPoint, error)
}

// SourceFunc adapts a function to PositionSource.
type SourceFunc func(ctx context.Context) (models.GeoPoint, error)

func (f SourceFunc) CurrentPosition(ctx context.Context) (models.GeoPoint, error) {
	return f(ctx)
}

// Locator asks a PositionSource once, with a timeout and no retries.
type Locator struct {
	timeout time.Duration
	logger  logger.Logger
}

func NewLocator(timeout time.Duration, log logger.Logger) *Locator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Locator{timeout: timeout, logger: log}
}

type positionResult struct {
	point models.GeoPoint
	err   error
}

// Locate returns the position or a geolocation *errors.StandardError whose Message is the
// user-facing text for that failure.
func (l *Locator) Locate(ctx context.Context, src PositionSource) (models.GeoPoint, error) {
	if src == nil {
		return models.GeoPoint{}, l.fail(errors.NewGeolocationPositionUnavailableError("no position source"))
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	done := make(chan positionResult, 1)
	go func() {
		p, err := src.CurrentPosition(ctx)
		done <- positionResult{point: p, err: err}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return models.GeoPoint{}, l.fail(errors.NewGeolocationTimeoutError(l.timeout))
		}
		return models.GeoPoint{}, l.fail(errors.NewGeolocationFailedError(ctx.Err()))

	case r := <-done:
		if r.err != nil {
			return models.GeoPoint{}, l.fail(classify(r.err, l.timeout))
		}
		if math.IsNaN(r.point.Lat) || math.IsNaN(r.point.Lng) {
			return models.GeoPoint{}, l.fail(errors.NewGeolocationPositionUnavailableError("position has NaN coordinates"))
		}
		return r.point, nil
	}
}

func (l *Locator) fail(err *errors.StandardError) error {
	metrics.GeolocationErrors.WithLabelValues(string(err.Code)).Inc()
	l.logger.Warn("Error getting user location", map[string]interface{}{
		"errorCode": string(err.Code),
		"details":   err.Details,
	})
	return err
}

// classify keeps geolocation errors as they are and folds everything else into the generic failure.
func classify(err error, timeout time.Duration) *errors.StandardError {
	if stdErr, ok := errors.As(err); ok && errors.GetErrorCategory(stdErr.Code) == "GEOLOCATION" {
		return stdErr
	}
	if err == context.DeadlineExceeded {
		return errors.NewGeolocationTimeoutError(timeout)
	}
	return errors.NewGeolocationFailedError(err)
}

// FromBrowserCode maps a browser PositionError code to the matching error.
func FromBrowserCode(code int) error {
	switch code {
	case CodePermissionDenied:
		return errors.NewGeolocationPermissionDeniedError()
	case CodePositionUnavailable:
		return errors.NewGeolocationPositionUnavailableError("reported by client")
	case CodeTimeout:
		return errors.NewGeolocationTimeoutError(0)
	default:
		return errors.NewGeolocationFailedError(fmt.Errorf("unknown geolocation error code %d", code))
	}
}

// NoticeMessage returns the user-facing text for a geolocation error.
func NoticeMessage(err error) string {
	if stdErr, ok := errors.As(err); ok && errors.GetErrorCategory(stdErr.Code) == "GEOLOCATION" {
		return stdErr.Message
	}
	return errors.NewGeolocationFailedError(err).Message
}

// Reported is a PositionSource for a position the client already resolved, or the error code it got instead.
// A non-zero code takes precedence over coordinates.
type Reported struct {
	Lat, Lng *float64
	Code     int
}

func (r Reported) CurrentPosition(context.Context) (models.GeoPoint, error) {
	if r.Code != 0 {
		return models.GeoPoint{}, FromBrowserCode(r.Code)
	}
	if r.Lat == nil || r.Lng == nil {
		return models.GeoPoint{}, errors.NewGeolocationPositionUnavailableError("client sent no coordinates")
	}
	return models.GeoPoint{Lat: *r.Lat, Lng: *r.Lng}, nil
}
