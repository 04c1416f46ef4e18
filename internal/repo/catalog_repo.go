// Package repo implements the data persistence layer for the worksheet-grid
// record store, backed by GORM. This file provides read-only catalog lookups
// for assignments, recordings, resources, and scores.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// HeaderScore names the per-assignment score column.
const HeaderScore = "Score"

// Assignments returns every assignment row as header→value maps.
func Assignments(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error) {
	return AllRecords(ctx, db, sheet)
}

// Recordings returns every session-recording row as header→value maps.
func Recordings(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error) {
	return AllRecords(ctx, db, sheet)
}

// Resources returns every resource row as header→value maps.
func Resources(ctx context.Context, db *gorm.DB, sheet string) ([]map[string]string, error) {
	return AllRecords(ctx, db, sheet)
}

// AssignmentScore returns the score recorded for email in a per-assignment
// sheet, or ErrNotFound when the sheet has no row for that email. A present
// row with an empty score cell reads as "".
func AssignmentScore(ctx context.Context, db *gorm.DB, sheet, email string) (string, error) {
	header, err := HeaderRow(ctx, db, sheet)
	if err != nil {
		return "", err
	}
	emailCol := HeaderIndex(header, HeaderEmail)
	scoreCol := HeaderIndex(header, HeaderScore)
	if emailCol == 0 || scoreCol == 0 {
		return "", ErrNotFound
	}
	row, err := FindInColumn(ctx, db, sheet, emailCol, email)
	if err != nil {
		return "", err
	}
	return CellValue(ctx, db, sheet, row, scoreCol)
}

// OverallScore returns the overall-score row for email as a header→value
// map, or ErrNotFound.
func OverallScore(ctx context.Context, db *gorm.DB, sheet, email string) (map[string]string, error) {
	header, err := HeaderRow(ctx, db, sheet)
	if err != nil {
		return nil, err
	}
	emailCol := HeaderIndex(header, HeaderEmail)
	if emailCol == 0 {
		return nil, ErrNotFound
	}
	row, err := FindInColumn(ctx, db, sheet, emailCol, email)
	if err != nil {
		return nil, err
	}
	values, err := RowValues(ctx, db, sheet, row)
	if err != nil {
		return nil, err
	}
	rec := make(map[string]string, len(header))
	for i, col := range header {
		if col == "" {
			continue
		}
		if i < len(values) {
			rec[col] = values[i]
		} else {
			rec[col] = ""
		}
	}
	return rec, nil
}
