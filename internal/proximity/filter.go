// Package proximity keeps the items that lie within a fixed radius of the requester.
package proximity

import (
	"math"
	"sort"

	"give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/common/metrics"
	"give4need/internal/geo"
	"give4need/internal/models"
)

// DefaultRadiusKm is used when Config.RadiusKm is zero.
const DefaultRadiusKm = 5.0

type Config struct {
	RadiusKm       float64
	Formula        string
	SortByDistance bool
}

// Stats counts how each scanned item was decided.
type Stats struct {
	Scanned            int `json:"scanned"`
	Kept               int `json:"kept"`
	SkippedCoordinates int `json:"skippedCoordinates"`
	SkippedOwn         int `json:"skippedOwn"`
	SkippedUnavailable int `json:"skippedUnavailable"`
	OutOfRange         int `json:"outOfRange"`
}

type Result struct {
	Items []models.ScoredItem `json:"items"`
	Stats Stats               `json:"stats"`
}

type Filter struct {
	radiusKm       float64
	distance       geo.DistanceFunc
	sortByDistance bool
	logger         logger.Logger
}

func NewFilter(cfg Config, log logger.Logger) (*Filter, error) {
	distance, err := geo.FormulaByName(cfg.Formula)
	if err != nil {
		return nil, err
	}
	radius := cfg.RadiusKm
	if radius == 0 {
		radius = DefaultRadiusKm
	}
	return &Filter{
		radiusKm:       radius,
		distance:       distance,
		sortByDistance: cfg.SortByDistance,
		logger:         log,
	}, nil
}

// RadiusKm returns the effective radius.
func (f *Filter) RadiusKm() float64 {
	return f.radiusKm
}

// Apply filters items around origin. Decisions run in order: coordinates, owner, availability,
// distance. Kept items stay in input order unless sorting by distance is enabled.
func (f *Filter) Apply(origin models.GeoPoint, requesterID string, items []*models.Item) Result {
	res := Result{Items: make([]models.ScoredItem, 0, len(items))}

	for _, item := range items {
		if item == nil {
			continue
		}
		res.Stats.Scanned++

		pos, ok := item.Position()
		if !ok {
			res.Stats.SkippedCoordinates++
			stdErr := errors.NewInvalidCoordinatesError(item.ID)
			f.logger.Warn(stdErr.Message, map[string]interface{}{
				"itemId":    item.ID,
				"title":     item.Title,
				"errorCode": string(stdErr.Code),
			})
			continue
		}

		if requesterID != "" && item.UserID == requesterID {
			res.Stats.SkippedOwn++
			continue
		}

		if !item.IsAvailable() {
			res.Stats.SkippedUnavailable++
			continue
		}

		d := f.distance(origin, pos)
		if math.IsNaN(d) {
			f.logger.Warn("distance is not a number", map[string]interface{}{
				"itemId":   item.ID,
				"origin":   origin,
				"position": pos,
			})
		}
		// NaN fails both comparisons.
		if !(d >= 0 && d <= f.radiusKm) {
			res.Stats.OutOfRange++
			continue
		}

		res.Stats.Kept++
		res.Items = append(res.Items, models.ScoredItem{Item: item, DistanceKm: d})
	}

	if f.sortByDistance {
		sort.SliceStable(res.Items, func(i, j int) bool {
			return res.Items[i].DistanceKm < res.Items[j].DistanceKm
		})
	}

	recordStats(res.Stats)
	f.logger.Debug("proximity filter applied", map[string]interface{}{
		"scanned":            res.Stats.Scanned,
		"kept":               res.Stats.Kept,
		"skippedCoordinates": res.Stats.SkippedCoordinates,
		"skippedOwn":         res.Stats.SkippedOwn,
		"skippedUnavailable": res.Stats.SkippedUnavailable,
		"outOfRange":         res.Stats.OutOfRange,
		"radiusKm":           f.radiusKm,
	})
	return res
}

func recordStats(s Stats) {
	metrics.NearbyItemsFiltered.WithLabelValues("kept").Add(float64(s.Kept))
	metrics.NearbyItemsFiltered.WithLabelValues("invalid_coordinates").Add(float64(s.SkippedCoordinates))
	metrics.NearbyItemsFiltered.WithLabelValues("own").Add(float64(s.SkippedOwn))
	metrics.NearbyItemsFiltered.WithLabelValues("unavailable").Add(float64(s.SkippedUnavailable))
	metrics.NearbyItemsFiltered.WithLabelValues("out_of_range").Add(float64(s.OutOfRange))
}
