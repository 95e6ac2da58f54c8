package metrics

import "fmt"

// Granularity is the bucket width of a time series.
type Granularity string

const (
	GranularityWeek    Granularity = "week"
	GranularityMonth   Granularity = "month"
	GranularityQuarter Granularity = "quarter"
	GranularityYear    Granularity = "year"
)

// ParseGranularity validates a raw granularity string.
func ParseGranularity(raw string) (Granularity, bool) {
	switch g := Granularity(raw); g {
	case GranularityWeek, GranularityMonth, GranularityQuarter, GranularityYear:
		return g, true
	default:
		return "", false
	}
}

// BucketKey identifies one sub-period of a resolved range. Index is the week
// number, month (1-12) or quarter (1-4) depending on granularity, and is
// unused for yearly buckets.
type BucketKey struct {
	Year  int
	Index int
}

// Bucket pairs a key with the raw facts grouped into that sub-period. The
// facts provider emits buckets in chronological order; this package never
// re-sorts them.
type Bucket struct {
	Key   BucketKey
	Facts RawFacts
}

// TimeSeriesPoint is the derived record for one bucket plus the running
// totals and period-over-period movement computed across the sequence.
// ActivePharmacies is bucket-local: the distinct pharmacies active in that
// sub-period under the series' denominator convention, never accumulated.
type TimeSeriesPoint struct {
	Label string `json:"label"`
	Derived

	ActivePharmacies int64 `json:"active_pharmacies"`

	CumulativeCount int64   `json:"cumulative_count"`
	CumulativeValue float64 `json:"cumulative_value"`
	Delta           float64 `json:"delta"`
	PercentGrowth   float64 `json:"percent_growth"`
}

// Spanish month abbreviations, 1-indexed input.
var monthAbbrev = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

// Label formats a bucket key for presentation. The format is fixed per
// granularity and locale-fixed; the frontend relies on these exact shapes.
func Label(g Granularity, key BucketKey) string {
	switch g {
	case GranularityWeek:
		return fmt.Sprintf("S%d %d", key.Index, key.Year)
	case GranularityMonth:
		if key.Index < 1 || key.Index > 12 {
			return fmt.Sprintf("%d", key.Year)
		}
		return fmt.Sprintf("%s %02d", monthAbbrev[key.Index-1], key.Year%100)
	case GranularityQuarter:
		return fmt.Sprintf("Q%d %d", key.Index, key.Year)
	default:
		return fmt.Sprintf("%d", key.Year)
	}
}

// BuildSeries derives per-bucket metrics and folds the cumulative and delta
// fields over the ordered sequence.
//
// The fold is a strict left fold: each point's cumulative totals depend on
// the previous point, so the loop must stay sequential. Ratios stay
// bucket-local; only the explicitly cumulative fields accumulate. The
// percent-cancelled fields are rounded to 1 decimal here, unlike the
// 2-decimal point-in-time records, to keep the historical output contract.
func BuildSeries(g Granularity, buckets []Bucket, denom DenominatorField) []TimeSeriesPoint {
	points := make([]TimeSeriesPoint, len(buckets))

	var cumCount int64
	var cumValue float64
	for i, b := range buckets {
		derived := Derive(b.Facts, denom, nil)
		derived.PercentCancelledCount = round1(derived.PercentCancelledCount)
		derived.PercentCancelledValue = round1(derived.PercentCancelledValue)

		cumCount += b.Facts.GrossCount
		cumValue += b.Facts.GrossValue

		active := b.Facts.ActivePharmacies
		if denom == DenomDestination {
			active = b.Facts.DestinationPharmacies
		}

		p := TimeSeriesPoint{
			Label:            Label(g, b.Key),
			Derived:          derived,
			ActivePharmacies: active,
			CumulativeCount:  cumCount,
			CumulativeValue:  round2(cumValue),
		}

		if i > 0 {
			prev := buckets[i-1].Facts.GrossValue
			p.Delta = round2(b.Facts.GrossValue - prev)
			if prev > 0 {
				p.PercentGrowth = round2((b.Facts.GrossValue - prev) / prev * 100)
			}
		}

		points[i] = p
	}

	return points
}
