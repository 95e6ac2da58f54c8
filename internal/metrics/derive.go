// Package metrics turns raw grouped booking sums into derived business
// metrics, time-series points and per-partner aggregates.
//
// The package is organized into focused modules:
//   - derive.go: RawFacts and the derivation of ratios and per-pharmacy averages
//   - timeseries.go: bucket labeling and the cumulative/delta fold
//   - partners.go: per-partner fan-out and totals combination
//
// Every function here is pure: facts come in as values, metrics go out as
// values, and nothing reads ambient state.
package metrics

import "math"

// RawFacts holds the grouped sums produced by the facts provider for one
// bucket, one partner, or one whole range. Immutable once returned.
type RawFacts struct {
	GrossCount     int64
	CancelledCount int64
	GrossValue     float64
	CancelledValue float64

	// ActivePharmacies counts distinct pharmacies that placed bookings.
	// DestinationPharmacies counts distinct receiving pharmacies, the
	// denominator convention used for shortage transfers.
	ActivePharmacies      int64
	DestinationPharmacies int64
}

// Add returns the field-wise sum of two fact sets. Entity counts are summed
// as well; combining overlapping segments is the caller's responsibility.
func (f RawFacts) Add(o RawFacts) RawFacts {
	return RawFacts{
		GrossCount:            f.GrossCount + o.GrossCount,
		CancelledCount:        f.CancelledCount + o.CancelledCount,
		GrossValue:            f.GrossValue + o.GrossValue,
		CancelledValue:        f.CancelledValue + o.CancelledValue,
		ActivePharmacies:      f.ActivePharmacies + o.ActivePharmacies,
		DestinationPharmacies: f.DestinationPharmacies + o.DestinationPharmacies,
	}
}

// DenominatorField selects which entity count normalizes the per-pharmacy
// averages. Partner bookings divide by active pharmacies; shortage transfers
// divide by the receiving side.
type DenominatorField int

const (
	DenomActive DenominatorField = iota
	DenomDestination
)

// Derived is the full set of metrics computed from one RawFacts record.
// Monetary and ratio fields are rounded to 2 decimals at this boundary;
// there is no intermediate rounding.
type Derived struct {
	GrossCount     int64 `json:"gross_count"`
	CancelledCount int64 `json:"cancelled_count"`
	NetCount       int64 `json:"net_count"`

	GrossValue     float64 `json:"gross_value"`
	CancelledValue float64 `json:"cancelled_value"`
	NetValue       float64 `json:"net_value"`

	AvgValuePerBooking     float64 `json:"avg_value_per_booking"`
	AvgBookingsPerPharmacy float64 `json:"avg_bookings_per_pharmacy"`
	AvgValuePerPharmacy    float64 `json:"avg_value_per_pharmacy"`

	PercentCancelledCount float64 `json:"percent_cancelled_count"`
	PercentCancelledValue float64 `json:"percent_cancelled_value"`

	// PercentPharmaciesActive is only meaningful when the caller knows the
	// size of the pharmacy segment the facts were drawn from. nil means "no
	// segment denominator exists", which is distinct from a real 0.
	PercentPharmaciesActive *float64 `json:"percent_pharmacies_active,omitempty"`
}

// Derive computes the full metrics record for one set of raw facts.
//
// Division by zero is never an error: any ratio whose denominator is zero
// comes out as 0, so a quiet period renders as zeros instead of failing the
// whole report. segmentSize follows the same rule except that a nil pointer
// leaves PercentPharmaciesActive unset entirely.
func Derive(raw RawFacts, denom DenominatorField, segmentSize *int64) Derived {
	netCount := raw.GrossCount - raw.CancelledCount
	netValue := raw.GrossValue - raw.CancelledValue

	d := Derived{
		GrossCount:     raw.GrossCount,
		CancelledCount: raw.CancelledCount,
		NetCount:       netCount,
		GrossValue:     round2(raw.GrossValue),
		CancelledValue: round2(raw.CancelledValue),
		NetValue:       round2(netValue),
	}

	if raw.GrossCount > 0 {
		d.PercentCancelledCount = round2(float64(raw.CancelledCount) / float64(raw.GrossCount) * 100)
	}
	if raw.GrossValue > 0 {
		d.PercentCancelledValue = round2(raw.CancelledValue / raw.GrossValue * 100)
	}
	if netCount > 0 {
		d.AvgValuePerBooking = round2(netValue / float64(netCount))
	}

	entityDenom := raw.ActivePharmacies
	if denom == DenomDestination {
		entityDenom = raw.DestinationPharmacies
	}
	if entityDenom > 0 {
		d.AvgBookingsPerPharmacy = round2(float64(netCount) / float64(entityDenom))
		d.AvgValuePerPharmacy = round2(netValue / float64(entityDenom))
	}

	if segmentSize != nil {
		pct := 0.0
		if *segmentSize > 0 {
			pct = round2(float64(raw.ActivePharmacies) / float64(*segmentSize) * 100)
		}
		d.PercentPharmaciesActive = &pct
	}

	return d
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
