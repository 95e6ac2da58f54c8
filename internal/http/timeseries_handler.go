package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"pharmetrics/internal/bookings"
	"pharmetrics/internal/metrics"
	"pharmetrics/internal/period"
	"pharmetrics/internal/pharmacies"
)

// TimeSeriesResponse is the bucketed metrics payload. SegmentSize is the
// overall pharmacy denominator for the region.
type TimeSeriesResponse struct {
	Period      period.Range              `json:"period"`
	Granularity metrics.Granularity       `json:"granularity"`
	Points      []metrics.TimeSeriesPoint `json:"points"`
	SegmentSize int64                     `json:"segment_size"`
}

// GetTimeSeriesAction handles GET /api/v1/metrics/timeseries: ordered
// labeled buckets with running cumulative totals over the requested period.
func (h *Handler) GetTimeSeriesAction(c *fiber.Ctx) error {
	req, err := parsePeriodRequest(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	rng, err := period.Resolve(req, h.now())
	if err != nil {
		if errors.Is(err, period.ErrMissingBounds) {
			return badRequest(c, "custom period requires both start and end dates")
		}
		return badRequest(c, err.Error())
	}

	granularity, ok := metrics.ParseGranularity(c.Query("granularity", string(metrics.GranularityMonth)))
	if !ok {
		return badRequest(c, "granularity must be one of week, month, quarter, year")
	}

	filter := parseFilter(c)
	buckets, err := bookings.BucketedFacts(h.DB, granularity, bookings.QueryParams{Range: rng, Filter: filter})
	if err != nil {
		h.Logger.Error("Error fetching bucketed facts", slog.Any("error", err))
		return upstreamError(c)
	}

	segmentSize, err := pharmacies.Count(h.DB)
	if err != nil {
		h.Logger.Error("Error counting pharmacies", slog.Any("error", err))
		return upstreamError(c)
	}

	return c.JSON(TimeSeriesResponse{
		Period:      rng,
		Granularity: granularity,
		Points:      metrics.BuildSeries(granularity, buckets, denominatorFor(filter)),
		SegmentSize: segmentSize,
	})
}
