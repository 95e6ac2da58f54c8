// Package bookings owns the booking facts store: the persisted booking
// records and the grouped-sum queries that feed the metrics engine.
package bookings

import "time"

// Booking is a single transaction record: a monetary amount, a cancellation
// state, the pharmacies involved and the partner channel it originated from.
// Shortage bookings are internal transfers between two pharmacies rather
// than partner-originated sales.
type Booking struct {
	ID                    uint      `gorm:"primaryKey;autoIncrement"`
	Reference             string    `gorm:"index;size:64;not null"`
	PartnerID             string    `gorm:"index:idx_partner_created;not null"`
	OriginPharmacyID      uint      `gorm:"index;not null"`
	DestinationPharmacyID uint      `gorm:"index"`
	Amount                float64   `gorm:"not null;default:0"`
	Cancelled             bool      `gorm:"not null;default:false"`
	Shortage              bool      `gorm:"index;not null;default:false"`
	CreatedAt             time.Time `gorm:"index:idx_partner_created;type:datetime;not null"`
	UpdatedAt             time.Time
}
