// Package pharmacies owns the pharmacy registry and tag-based segment
// counting used to normalize per-pharmacy metrics.
package pharmacies

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Pharmacy is one participating account.
type Pharmacy struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PharmacyTag attaches one tag to one pharmacy. Partner affiliation is
// modeled as tags ("partner:<id>"), so a partner's segment is the set of
// pharmacies carrying its tag set.
type PharmacyTag struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	PharmacyID uint   `gorm:"uniqueIndex:idx_pharmacy_tag;not null"`
	Tag        string `gorm:"uniqueIndex:idx_pharmacy_tag;index;not null"`
	CreatedAt  time.Time
}

// CountInSegment counts distinct pharmacies carrying any of the given tags.
// An empty tag list is a segment nobody belongs to.
func CountInSegment(db *gorm.DB, tags []string) (int64, error) {
	if len(tags) == 0 {
		return 0, nil
	}

	var count int64
	query := `
    SELECT COUNT(DISTINCT pharmacy_id) AS count
    FROM pharmacy_tags
    WHERE tag IN (?)
    `
	if err := db.Raw(query, tags).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting pharmacies in segment: %w", err)
	}
	return count, nil
}

// Count returns the total number of registered pharmacies, the overall
// denominator reported alongside time series.
func Count(db *gorm.DB) (int64, error) {
	var count int64
	if err := db.Model(&Pharmacy{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting pharmacies: %w", err)
	}
	return count, nil
}
