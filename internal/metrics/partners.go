package metrics

import (
	"context"
	"fmt"
	"sort"

	"pharmetrics/internal/pkg/async"
)

// Partner describes one commercial channel of a region. Partners without a
// tag segment have no meaningful pharmacy denominator, so their
// PercentPharmaciesActive stays nil rather than 0.
type Partner struct {
	ID            string   `json:"id"`
	HasTagSegment bool     `json:"has_tag_segment"`
	Tags          []string `json:"tags,omitempty"`
}

// RegionConfig carries everything region-specific the aggregator needs:
// its partner list and, implicitly through each partner, its no-tag-segment
// set. It is built once from configuration and passed in explicitly so the
// aggregation stays free of ambient lookups.
type RegionConfig struct {
	Name     string
	Partners []Partner
}

// FailurePolicy names how a partial per-partner retrieval failure is
// handled during fan-out.
type FailurePolicy string

const (
	// FailFast aborts the whole aggregation on the first partner error.
	FailFast FailurePolicy = "fail_fast"
	// ZeroFillFlagged substitutes zero-valued facts for the failing partner
	// and records its ID in the result metadata.
	ZeroFillFlagged FailurePolicy = "zero_fill_flagged"
)

// ParseFailurePolicy validates a raw policy string.
func ParseFailurePolicy(raw string) (FailurePolicy, bool) {
	switch p := FailurePolicy(raw); p {
	case FailFast, ZeroFillFlagged:
		return p, true
	default:
		return "", false
	}
}

// FactsFunc retrieves the raw facts for one partner over the aggregation
// range. Implementations must already restrict facts to the half-open range
// and the partner's classification.
type FactsFunc func(ctx context.Context, p Partner) (RawFacts, error)

// SegmentSizeFunc counts the pharmacies carrying a partner's tag set.
type SegmentSizeFunc func(ctx context.Context, tags []string) (int64, error)

// PartnerResult is the derived record for a single partner.
type PartnerResult struct {
	PartnerID string  `json:"partner_id"`
	Metrics   Derived `json:"metrics"`
}

// AggregateResult combines the per-partner breakdown with one totals record
// derived from the summed raw facts. ZeroFilled lists the partners whose
// facts were substituted with zeros under the ZeroFillFlagged policy.
type AggregateResult struct {
	Partners   []PartnerResult `json:"partners"`
	Totals     Derived         `json:"totals"`
	ZeroFilled []string        `json:"zero_filled,omitempty"`
}

type partnerFetch struct {
	facts       RawFacts
	segmentSize *int64
	err         error
}

// AggregatePartners fans out facts retrieval over every partner of the
// region, bounded by the number of partners, then combines the results.
// denom selects the entity count dividing the per-pharmacy averages for
// every partner record and the totals alike.
//
// Totals are never averaged from per-partner metrics: the raw facts are
// summed first and derived once, so every ratio in the totals record is
// consistent with the combined counts.
func AggregatePartners(ctx context.Context, region RegionConfig, policy FailurePolicy, denom DenominatorField, fetch FactsFunc, segmentSize SegmentSizeFunc) (AggregateResult, error) {
	tasks := make([]async.Task, len(region.Partners))
	for i, partner := range region.Partners {
		partner := partner
		tasks[i] = async.Task{
			Name: partner.ID,
			Execute: func() (interface{}, error) {
				return fetchPartner(ctx, partner, fetch, segmentSize), nil
			},
		}
	}

	pool := async.NewPool(len(region.Partners))
	results := pool.Execute(ctx, tasks)

	var (
		combined    RawFacts
		zeroFilled  []string
		partners    = make([]PartnerResult, 0, len(region.Partners))
		totalsSize  int64
		hasSegments bool
	)

	for _, partner := range region.Partners {
		result, ok := results[partner.ID]
		if !ok {
			return AggregateResult{}, fmt.Errorf("aggregation cancelled before partner %s completed: %w", partner.ID, ctx.Err())
		}

		pf := result.Data.(partnerFetch)
		if pf.err != nil {
			if policy == FailFast {
				return AggregateResult{}, fmt.Errorf("fetching facts for partner %s: %w", partner.ID, pf.err)
			}
			zeroFilled = append(zeroFilled, partner.ID)
			pf = partnerFetch{segmentSize: pf.segmentSize}
		}

		combined = combined.Add(pf.facts)
		if pf.segmentSize != nil {
			hasSegments = true
			totalsSize += *pf.segmentSize
		}

		partners = append(partners, PartnerResult{
			PartnerID: partner.ID,
			Metrics:   Derive(pf.facts, denom, pf.segmentSize),
		})
	}

	sort.Strings(zeroFilled)

	var totalsSegment *int64
	if hasSegments {
		totalsSegment = &totalsSize
	}

	return AggregateResult{
		Partners:   partners,
		Totals:     Derive(combined, denom, totalsSegment),
		ZeroFilled: zeroFilled,
	}, nil
}

func fetchPartner(ctx context.Context, partner Partner, fetch FactsFunc, segmentSize SegmentSizeFunc) partnerFetch {
	var pf partnerFetch

	if partner.HasTagSegment {
		size, err := segmentSize(ctx, partner.Tags)
		if err != nil {
			pf.err = fmt.Errorf("counting segment for partner %s: %w", partner.ID, err)
			return pf
		}
		pf.segmentSize = &size
	}

	facts, err := fetch(ctx, partner)
	if err != nil {
		pf.err = err
		return pf
	}
	pf.facts = facts
	return pf
}
