// Package testsupport provides in-memory database setup and seed helpers
// shared by the package tests.
package testsupport

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pharmetrics/internal/bookings"
	"pharmetrics/internal/pharmacies"
)

var dbNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// SetupTestDB opens a fresh in-memory SQLite database named after the test
// and migrates the full schema. The connection closes with the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := dbNameSanitizer.ReplaceAllString(t.Name(), "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ToLower(name))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps the shared-cache memory database alive for
	// the whole test.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&bookings.Booking{},
		&pharmacies.Pharmacy{},
		&pharmacies.PharmacyTag{},
	))

	return db
}

// BookingParams describes one seeded booking.
type BookingParams struct {
	PartnerID   string
	Origin      uint
	Destination uint
	Amount      float64
	Cancelled   bool
	Shortage    bool
	CreatedAt   time.Time
}

// CreateBooking seeds one booking row.
func CreateBooking(t *testing.T, db *gorm.DB, p BookingParams) bookings.Booking {
	t.Helper()

	b := bookings.Booking{
		Reference:             fmt.Sprintf("bk-%s-%d", p.PartnerID, time.Now().UnixNano()),
		PartnerID:             p.PartnerID,
		OriginPharmacyID:      p.Origin,
		DestinationPharmacyID: p.Destination,
		Amount:                p.Amount,
		Cancelled:             p.Cancelled,
		Shortage:              p.Shortage,
		CreatedAt:             p.CreatedAt,
	}
	require.NoError(t, db.Create(&b).Error)
	return b
}

// CreatePharmacy seeds one pharmacy with the given tags.
func CreatePharmacy(t *testing.T, db *gorm.DB, name string, tags ...string) pharmacies.Pharmacy {
	t.Helper()

	ph := pharmacies.Pharmacy{Name: name}
	require.NoError(t, db.Create(&ph).Error)
	for _, tag := range tags {
		require.NoError(t, db.Create(&pharmacies.PharmacyTag{PharmacyID: ph.ID, Tag: tag}).Error)
	}
	return ph
}
