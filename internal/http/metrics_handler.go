package http

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"pharmetrics/internal/bookings"
	"pharmetrics/internal/metrics"
	"pharmetrics/internal/period"
	"pharmetrics/internal/pharmacies"
)

// Handler carries the dependencies of the metrics API. Region and policy
// are resolved once at startup and injected here; no handler consults
// ambient configuration.
type Handler struct {
	DB     *gorm.DB
	Logger *slog.Logger
	Region metrics.RegionConfig
	Policy metrics.FailurePolicy

	// Now is the clock used for period resolution; overridable in tests.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

// ResponseMeta flags partners whose facts were zero-filled after a
// retrieval failure, so a zero never silently masquerades as real data.
type ResponseMeta struct {
	ZeroFilled []string `json:"zero_filled,omitempty"`
}

// MetricsResponse is the aggregate metrics payload.
type MetricsResponse struct {
	Period   period.Range            `json:"period"`
	Totals   metrics.Derived         `json:"totals"`
	Partners []metrics.PartnerResult `json:"partners,omitempty"`
	Meta     *ResponseMeta           `json:"meta,omitempty"`
}

// GetMetricsAction handles GET /api/v1/metrics: aggregate metrics for the
// requested period, with an optional per-partner breakdown.
func (h *Handler) GetMetricsAction(c *fiber.Ctx) error {
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

	filter := parseFilter(c)

	if c.Query("partners") == "true" {
		return h.partnerBreakdown(c, rng, filter)
	}

	facts, err := bookings.AggregateFacts(h.DB, bookings.QueryParams{Range: rng, Filter: filter})
	if err != nil {
		h.Logger.Error("Error fetching aggregate facts", slog.Any("error", err))
		return upstreamError(c)
	}

	segmentSize, err := pharmacies.Count(h.DB)
	if err != nil {
		h.Logger.Error("Error counting pharmacies", slog.Any("error", err))
		return upstreamError(c)
	}

	return c.JSON(MetricsResponse{
		Period: rng,
		Totals: metrics.Derive(facts, denominatorFor(filter), &segmentSize),
	})
}

// partnerBreakdown applies the classification filter inside every
// per-partner fetch, so partners=true&shortage=... narrows each partner's
// facts the same way the aggregate path does.
func (h *Handler) partnerBreakdown(c *fiber.Ctx, rng period.Range, filter bookings.Filter) error {
	fetch := func(ctx context.Context, p metrics.Partner) (metrics.RawFacts, error) {
		return bookings.AggregateFacts(h.DB, bookings.QueryParams{
			Range:  rng,
			Filter: bookings.Filter{PartnerID: p.ID, Shortage: filter.Shortage},
		})
	}
	segmentSize := func(ctx context.Context, tags []string) (int64, error) {
		return pharmacies.CountInSegment(h.DB, tags)
	}

	result, err := metrics.AggregatePartners(c.Context(), h.Region, h.Policy, denominatorFor(filter), fetch, segmentSize)
	if err != nil {
		h.Logger.Error("Error aggregating partner metrics", slog.Any("error", err))
		return upstreamError(c)
	}

	resp := MetricsResponse{
		Period:   rng,
		Totals:   result.Totals,
		Partners: result.Partners,
	}
	if len(result.ZeroFilled) > 0 {
		h.Logger.Warn("Partner facts zero-filled after retrieval failure",
			slog.Any("partners", result.ZeroFilled))
		resp.Meta = &ResponseMeta{ZeroFilled: result.ZeroFilled}
	}

	return c.JSON(resp)
}

// denominatorFor maps the classification filter to the per-pharmacy
// denominator: shortage transfers divide by the receiving side.
func denominatorFor(filter bookings.Filter) metrics.DenominatorField {
	if filter.Shortage != nil && *filter.Shortage {
		return metrics.DenomDestination
	}
	return metrics.DenomActive
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func upstreamError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error": "Metrics store unavailable",
	})
}
