// Package domain defines the persistence models for the worksheet-grid
// record store. The grid mirrors the shape of a spreadsheet service: named
// worksheets with a header row, addressed by 1-based (row, col) cells.
// These types are mapped with GORM and form the durable data layer; the
// enforcement and session state of the bot is deliberately not persisted.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Worksheet represents one named sheet of the record store. Cols tracks the
// current width of the sheet; sheets grow to the right when attendance
// columns are appended.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: unique sheet name (e.g. "participants", "registration").
//   - Cols: current number of columns, kept in sync by cell writes.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Worksheet struct {
	ID        string         `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(64);not null;uniqueIndex"`
	Cols      int            `json:"cols" gorm:"not null;default:0"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"    gorm:"index"`
}

// TableName returns the database table name for Worksheet.
func (Worksheet) TableName() string { return "worksheets" }

// Cell is a single value of a worksheet, addressed 1-based like the
// spreadsheet APIs this store stands in for. Row 1 is the header row.
// Empty cells are simply absent; reads treat missing cells as "".
type Cell struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	WorksheetID string    `json:"worksheet_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_cell_addr,priority:1"`
	Row         int       `json:"row"          gorm:"not null;uniqueIndex:ux_cell_addr,priority:2"`
	Col         int       `json:"col"          gorm:"not null;uniqueIndex:ux_cell_addr,priority:3"`
	Value       string    `json:"value"        gorm:"type:text;not null"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Worksheet is the owning sheet. Cells are cascade-deleted with it.
	Worksheet Worksheet `json:"-" gorm:"foreignKey:WorksheetID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Cell.
func (Cell) TableName() string { return "cells" }
