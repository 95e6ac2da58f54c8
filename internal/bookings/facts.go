package bookings

import (
	"fmt"

	"gorm.io/gorm"

	"pharmetrics/internal/metrics"
	"pharmetrics/internal/period"
)

// Filter narrows the facts queries to one partner and/or one booking
// classification. The zero value selects every booking.
type Filter struct {
	PartnerID string
	// Shortage selects internal transfers (true) or partner sales (false).
	// nil applies no classification filter.
	Shortage *bool
}

// QueryParams bundles the resolved range and filter shared by the facts
// queries. Facts are restricted to the half-open [Start, End) range.
type QueryParams struct {
	Range  period.Range
	Filter Filter
}

func (p QueryParams) whereClause() (string, []interface{}) {
	where := "created_at >= ? AND created_at < ?"
	args := []interface{}{p.Range.Start.UTC(), p.Range.End.UTC()}

	if p.Filter.PartnerID != "" {
		where += " AND partner_id = ?"
		args = append(args, p.Filter.PartnerID)
	}
	if p.Filter.Shortage != nil {
		where += " AND shortage = ?"
		args = append(args, *p.Filter.Shortage)
	}
	return where, args
}

// AggregateFacts returns the grouped sums for the whole range as a single
// bucket.
func AggregateFacts(db *gorm.DB, params QueryParams) (metrics.RawFacts, error) {
	var row struct {
		GrossCount            int64
		CancelledCount        int64
		GrossValue            float64
		CancelledValue        float64
		ActivePharmacies      int64
		DestinationPharmacies int64
	}

	where, args := params.whereClause()
	query := fmt.Sprintf(`
    SELECT
        COUNT(*) AS gross_count,
        COALESCE(SUM(CASE WHEN cancelled = 1 THEN 1 ELSE 0 END), 0) AS cancelled_count,
        COALESCE(SUM(amount), 0) AS gross_value,
        COALESCE(SUM(CASE WHEN cancelled = 1 THEN amount ELSE 0 END), 0) AS cancelled_value,
        COUNT(DISTINCT origin_pharmacy_id) AS active_pharmacies,
        COUNT(DISTINCT CASE WHEN destination_pharmacy_id > 0 THEN destination_pharmacy_id END) AS destination_pharmacies
    FROM bookings
    WHERE %s
    `, where)

	if err := db.Raw(query, args...).Scan(&row).Error; err != nil {
		return metrics.RawFacts{}, fmt.Errorf("error fetching aggregate booking facts: %w", err)
	}

	return metrics.RawFacts{
		GrossCount:            row.GrossCount,
		CancelledCount:        row.CancelledCount,
		GrossValue:            row.GrossValue,
		CancelledValue:        row.CancelledValue,
		ActivePharmacies:      row.ActivePharmacies,
		DestinationPharmacies: row.DestinationPharmacies,
	}, nil
}

// bucketExpression returns the SQLite expression that yields the bucket
// index for a granularity. Weeks use %W (Monday-based week of year) to
// match the series labels.
func bucketExpression(g metrics.Granularity) string {
	switch g {
	case metrics.GranularityWeek:
		return "CAST(strftime('%W', created_at) AS INTEGER)"
	case metrics.GranularityMonth:
		return "CAST(strftime('%m', created_at) AS INTEGER)"
	case metrics.GranularityQuarter:
		return "((CAST(strftime('%m', created_at) AS INTEGER) + 2) / 3)"
	default:
		return "0"
	}
}

// BucketedFacts returns one fact set per sub-period of the range at the
// given granularity, in chronological order. Empty sub-periods produce no
// bucket.
func BucketedFacts(db *gorm.DB, g metrics.Granularity, params QueryParams) ([]metrics.Bucket, error) {
	var rows []struct {
		Year                  int
		Idx                   int
		GrossCount            int64
		CancelledCount        int64
		GrossValue            float64
		CancelledValue        float64
		ActivePharmacies      int64
		DestinationPharmacies int64
	}

	where, args := params.whereClause()
	query := fmt.Sprintf(`
    SELECT
        CAST(strftime('%%Y', created_at) AS INTEGER) AS year,
        %s AS idx,
        COUNT(*) AS gross_count,
        COALESCE(SUM(CASE WHEN cancelled = 1 THEN 1 ELSE 0 END), 0) AS cancelled_count,
        COALESCE(SUM(amount), 0) AS gross_value,
        COALESCE(SUM(CASE WHEN cancelled = 1 THEN amount ELSE 0 END), 0) AS cancelled_value,
        COUNT(DISTINCT origin_pharmacy_id) AS active_pharmacies,
        COUNT(DISTINCT CASE WHEN destination_pharmacy_id > 0 THEN destination_pharmacy_id END) AS destination_pharmacies
    FROM bookings
    WHERE %s
    GROUP BY year, idx
    ORDER BY year ASC, idx ASC
    `, bucketExpression(g), where)

	if err := db.Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("error fetching bucketed booking facts: %w", err)
	}

	buckets := make([]metrics.Bucket, len(rows))
	for i, r := range rows {
		buckets[i] = metrics.Bucket{
			Key: metrics.BucketKey{Year: r.Year, Index: r.Idx},
			Facts: metrics.RawFacts{
				GrossCount:            r.GrossCount,
				CancelledCount:        r.CancelledCount,
				GrossValue:            r.GrossValue,
				CancelledValue:        r.CancelledValue,
				ActivePharmacies:      r.ActivePharmacies,
				DestinationPharmacies: r.DestinationPharmacies,
			},
		}
	}
	return buckets, nil
}
