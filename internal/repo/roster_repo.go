// Package repo implements the data persistence layer for the worksheet-grid
// record store, backed by GORM. This file provides roster operations over
// the participants sheet: identity linking, attendance columns and marks,
// and member lookups by linked identity.
//
// The roster layout is fixed by convention: column 2 holds the registered
// full name, column 4 the linked chat identity, and attendance columns are
// appended to the right of the sheet one per session, so the last column is
// always the current session's column.
package repo

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/docsanddecks/attendance-bot/internal/match"
)

// Fixed roster columns.
const (
	ColFullName = 2
	ColIdentity = 4
)

// Well-known roster headers.
const (
	HeaderEmail      = "Email address"
	HeaderPaymentRef = "Payment Reference"
)

// attendanceHeaderPrefix labels attendance columns, suffixed with the
// session date ("Attendance - Mar 05").
const attendanceHeaderPrefix = "Attendance - "

// IdentityExists reports whether identity is already linked to any roster row.
func IdentityExists(ctx context.Context, db *gorm.DB, sheet string, identity int64) (bool, error) {
	ids, err := ColValues(ctx, db, sheet, ColIdentity)
	if err != nil {
		return false, err
	}
	want := strconv.FormatInt(identity, 10)
	for _, id := range ids {
		if id == want {
			return true, nil
		}
	}
	return false, nil
}

// LinkIdentity finds a roster row by display name and writes identity into
// its identity column. If identity is already linked to any row, it returns
// true immediately without a name lookup; once linked, an identity is never
// overwritten. Returns false when no roster name matches.
func LinkIdentity(ctx context.Context, db *gorm.DB, sheet, displayName string, identity int64) (bool, error) {
	exists, err := IdentityExists(ctx, db, sheet, identity)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	names, err := ColValues(ctx, db, sheet, ColFullName)
	if err != nil {
		return false, err
	}
	idx, ok := match.Match(names, displayName)
	if !ok {
		return false, nil
	}
	row := idx + 1 // names are 1-based rows including the header
	if err := UpdateCell(ctx, db, sheet, row, ColIdentity, strconv.FormatInt(identity, 10)); err != nil {
		return false, err
	}
	return true, nil
}

// LinkIdentityByEmail writes identity into the roster row whose email column
// equals email. Returns false when the email is not on the roster.
func LinkIdentityByEmail(ctx context.Context, db *gorm.DB, sheet, email string, identity int64) (bool, error) {
	header, err := HeaderRow(ctx, db, sheet)
	if err != nil {
		return false, err
	}
	col := HeaderIndex(header, HeaderEmail)
	if col == 0 {
		return false, nil
	}
	row, err := FindInColumn(ctx, db, sheet, col, email)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := UpdateCell(ctx, db, sheet, row, ColIdentity, strconv.FormatInt(identity, 10)); err != nil {
		return false, err
	}
	return true, nil
}

// MemberByIdentity returns the roster row linked to identity as a
// header→value map, or ErrNotFound when the identity is not linked.
func MemberByIdentity(ctx context.Context, db *gorm.DB, sheet string, identity int64) (map[string]string, error) {
	row, err := FindInColumn(ctx, db, sheet, ColIdentity, strconv.FormatInt(identity, 10))
	if err != nil {
		return nil, err
	}
	header, err := HeaderRow(ctx, db, sheet)
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

// FindByPaymentReference locates a registrant by payment reference and
// returns their email and row index, or ErrNotFound.
func FindByPaymentReference(ctx context.Context, db *gorm.DB, sheet, reference string) (string, int, error) {
	header, err := HeaderRow(ctx, db, sheet)
	if err != nil {
		return "", 0, err
	}
	refCol := HeaderIndex(header, HeaderPaymentRef)
	emailCol := HeaderIndex(header, HeaderEmail)
	if refCol == 0 || emailCol == 0 {
		return "", 0, ErrNotFound
	}
	row, err := FindInColumn(ctx, db, sheet, refCol, reference)
	if err != nil {
		return "", 0, err
	}
	email, err := CellValue(ctx, db, sheet, row, emailCol)
	if err != nil {
		return "", 0, err
	}
	return email, row, nil
}

// NewAttendanceColumn appends a dated attendance column to the right of the
// sheet and returns its 1-based index.
func NewAttendanceColumn(ctx context.Context, db *gorm.DB, sheet string, now time.Time) (int, error) {
	header, err := HeaderRow(ctx, db, sheet)
	if err != nil {
		return 0, err
	}
	newCol := len(header) + 1
	width, err := ColCount(ctx, db, sheet)
	if err != nil {
		return 0, err
	}
	if newCol > width {
		if err := AddCols(ctx, db, sheet, newCol-width); err != nil {
			return 0, err
		}
	}
	label := attendanceHeaderPrefix + now.Format("Jan 02")
	if err := UpdateCell(ctx, db, sheet, 1, newCol, label); err != nil {
		return 0, err
	}
	return newCol, nil
}

// MarkAttendance writes marks into the given attendance column for the
// roster row linked to identity. The column is the one the caller's session
// appended, so concurrently open sessions of different chats never write
// into each other's column. It returns false when the row already holds a
// mark in that column; the existing value is never overwritten. Returns
// ErrNotFound when the identity is not linked to any row.
func MarkAttendance(ctx context.Context, db *gorm.DB, sheet string, identity int64, col, marks int) (bool, error) {
	if col < 1 {
		return false, errors.New("repo: attendance column out of range")
	}
	row, err := FindInColumn(ctx, db, sheet, ColIdentity, strconv.FormatInt(identity, 10))
	if err != nil {
		return false, err
	}
	existing, err := CellValue(ctx, db, sheet, row, col)
	if err != nil {
		return false, err
	}
	if existing != "" {
		return false, nil
	}
	if err := UpdateCell(ctx, db, sheet, row, col, strconv.Itoa(marks)); err != nil {
		return false, err
	}
	return true, nil
}

// CountAttendance counts the marks recorded in the given attendance column,
// excluding the header cell.
func CountAttendance(ctx context.Context, db *gorm.DB, sheet string, col int) (int, error) {
	if col < 1 {
		return 0, nil
	}
	values, err := ColValues(ctx, db, sheet, col)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	if n > 0 {
		n-- // header cell
	}
	return n, nil
}
