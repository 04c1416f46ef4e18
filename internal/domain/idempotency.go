// Package domain defines the core persistence models for the application.
package domain

import "time"

// Idempotency records a previously accepted registration submit, keyed by
// (sheet, key). It lets the registration endpoint deduplicate client retries
// without appending the same form twice.
type Idempotency struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Sheet     string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_sheet_key,priority:1"`
	Key       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_sheet_key,priority:2"`
	RowIndex  int       `gorm:"type:INTEGER NOT NULL"`
	Status    int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
