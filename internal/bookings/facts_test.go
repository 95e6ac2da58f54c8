package bookings_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmetrics/internal/bookings"
	"pharmetrics/internal/metrics"
	"pharmetrics/internal/period"
	"pharmetrics/internal/testsupport"
)

func boolPtr(v bool) *bool { return &v }

func march2025() period.Range {
	return period.Range{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAggregateFacts(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 120.00, CreatedAt: base,
	})
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 80.00, Cancelled: true, CreatedAt: base.Add(time.Hour),
	})
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "farmabook", Origin: 2, Amount: 55.50, CreatedAt: base.Add(2 * time.Hour),
	})

	facts, err := bookings.AggregateFacts(db, bookings.QueryParams{Range: march2025()})
	require.NoError(t, err)

	assert.Equal(t, int64(3), facts.GrossCount)
	assert.Equal(t, int64(1), facts.CancelledCount)
	assert.Equal(t, 255.50, facts.GrossValue)
	assert.Equal(t, 80.00, facts.CancelledValue)
	assert.Equal(t, int64(2), facts.ActivePharmacies)
	assert.Equal(t, int64(0), facts.DestinationPharmacies)
}

func TestAggregateFactsEmptyRange(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	facts, err := bookings.AggregateFacts(db, bookings.QueryParams{Range: march2025()})
	require.NoError(t, err)

	assert.Equal(t, metrics.RawFacts{}, facts)
}

func TestAggregateFactsRangeIsHalfOpen(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	rng := march2025()
	// On the start boundary: included.
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 10, CreatedAt: rng.Start,
	})
	// Exactly on the end boundary: excluded.
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 20, CreatedAt: rng.End,
	})
	// Just before the end: included.
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 30, CreatedAt: rng.End.Add(-time.Second),
	})

	facts, err := bookings.AggregateFacts(db, bookings.QueryParams{Range: rng})
	require.NoError(t, err)

	assert.Equal(t, int64(2), facts.GrossCount)
	assert.Equal(t, 40.00, facts.GrossValue)
}

func TestAggregateFactsPartnerFilter(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	base := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 100, CreatedAt: base,
	})
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "farmabook", Origin: 2, Amount: 200, CreatedAt: base,
	})

	facts, err := bookings.AggregateFacts(db, bookings.QueryParams{
		Range:  march2025(),
		Filter: bookings.Filter{PartnerID: "farmabook"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), facts.GrossCount)
	assert.Equal(t, 200.00, facts.GrossValue)
	assert.Equal(t, int64(1), facts.ActivePharmacies)
}

func TestAggregateFactsShortageFilter(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	base := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	// Two internal transfers to two destination pharmacies.
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "shortage", Origin: 1, Destination: 7, Amount: 15, Shortage: true, CreatedAt: base,
	})
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "shortage", Origin: 2, Destination: 8, Amount: 25, Shortage: true, CreatedAt: base.Add(time.Hour),
	})
	// A regular partner sale without a destination.
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 3, Amount: 99, CreatedAt: base,
	})

	t.Run("shortage only", func(t *testing.T) {
		facts, err := bookings.AggregateFacts(db, bookings.QueryParams{
			Range:  march2025(),
			Filter: bookings.Filter{Shortage: boolPtr(true)},
		})
		require.NoError(t, err)

		assert.Equal(t, int64(2), facts.GrossCount)
		assert.Equal(t, 40.00, facts.GrossValue)
		assert.Equal(t, int64(2), facts.DestinationPharmacies)
	})

	t.Run("sales only", func(t *testing.T) {
		facts, err := bookings.AggregateFacts(db, bookings.QueryParams{
			Range:  march2025(),
			Filter: bookings.Filter{Shortage: boolPtr(false)},
		})
		require.NoError(t, err)

		assert.Equal(t, int64(1), facts.GrossCount)
		assert.Equal(t, 99.00, facts.GrossValue)
		assert.Equal(t, int64(0), facts.DestinationPharmacies)
	})
}

func TestBucketedFactsMonthly(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 100, CreatedAt: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
	})
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 50, Cancelled: true, CreatedAt: time.Date(2025, 1, 20, 10, 0, 0, 0, time.UTC),
	})
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 2, Amount: 200, CreatedAt: time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC),
	})

	rng := period.Range{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	buckets, err := bookings.BucketedFacts(db, metrics.GranularityMonth, bookings.QueryParams{Range: rng})
	require.NoError(t, err)

	// February has no bookings and produces no bucket.
	require.Len(t, buckets, 2)

	assert.Equal(t, metrics.BucketKey{Year: 2025, Index: 1}, buckets[0].Key)
	assert.Equal(t, int64(2), buckets[0].Facts.GrossCount)
	assert.Equal(t, int64(1), buckets[0].Facts.CancelledCount)
	assert.Equal(t, 150.00, buckets[0].Facts.GrossValue)

	assert.Equal(t, metrics.BucketKey{Year: 2025, Index: 3}, buckets[1].Key)
	assert.Equal(t, int64(1), buckets[1].Facts.GrossCount)
	assert.Equal(t, 200.00, buckets[1].Facts.GrossValue)
}

func TestBucketedFactsQuarterly(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	for _, month := range []time.Month{time.January, time.March, time.April, time.October} {
		testsupport.CreateBooking(t, db, testsupport.BookingParams{
			PartnerID: "luda", Origin: 1, Amount: 10,
			CreatedAt: time.Date(2025, month, 10, 12, 0, 0, 0, time.UTC),
		})
	}

	rng := period.Range{
		Start: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	buckets, err := bookings.BucketedFacts(db, metrics.GranularityQuarter, bookings.QueryParams{Range: rng})
	require.NoError(t, err)

	require.Len(t, buckets, 3)
	assert.Equal(t, metrics.BucketKey{Year: 2025, Index: 1}, buckets[0].Key)
	assert.Equal(t, int64(2), buckets[0].Facts.GrossCount)
	assert.Equal(t, metrics.BucketKey{Year: 2025, Index: 2}, buckets[1].Key)
	assert.Equal(t, metrics.BucketKey{Year: 2025, Index: 4}, buckets[2].Key)
}

func TestBucketedFactsYearlyOrdering(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	// Inserted newest first; the query must still return chronological order.
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 30, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 20, CreatedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 10, CreatedAt: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	rng := period.Range{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	buckets, err := bookings.BucketedFacts(db, metrics.GranularityYear, bookings.QueryParams{Range: rng})
	require.NoError(t, err)

	require.Len(t, buckets, 3)
	assert.Equal(t, 2023, buckets[0].Key.Year)
	assert.Equal(t, 2024, buckets[1].Key.Year)
	assert.Equal(t, 2025, buckets[2].Key.Year)
	for _, b := range buckets {
		assert.Equal(t, 0, b.Key.Index)
	}
}

func TestBucketedFactsWeeklyIndexMatchesStrftime(t *testing.T) {
	db := testsupport.SetupTestDB(t)

	// 2025-02-12 is a Wednesday in Monday-based week 6.
	testsupport.CreateBooking(t, db, testsupport.BookingParams{
		PartnerID: "luda", Origin: 1, Amount: 10, CreatedAt: time.Date(2025, 2, 12, 9, 0, 0, 0, time.UTC),
	})

	rng := period.Range{
		Start: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	buckets, err := bookings.BucketedFacts(db, metrics.GranularityWeek, bookings.QueryParams{Range: rng})
	require.NoError(t, err)

	require.Len(t, buckets, 1)
	assert.Equal(t, metrics.BucketKey{Year: 2025, Index: 6}, buckets[0].Key)
}
