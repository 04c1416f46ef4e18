// Package repo implements the data persistence layer for the worksheet-grid
// record store, backed by GORM. This file provides the registration-surface
// persistence: schema-shaped row appends, column/value existence checks, and
// idempotency records for safe-retry submits.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/docsanddecks/attendance-bot/internal/domain"
)

// ErrDuplicate indicates that an idempotency record already exists for the
// given (sheet, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// AppendRegistration appends a registration form to the sheet, assigning the
// created_at value server-side. It returns the 1-based index of the new row.
func AppendRegistration(ctx context.Context, db *gorm.DB, sheet string, form map[string]string, now time.Time) (int, error) {
	return AppendRow(ctx, db, sheet, form, now)
}

// ValueExists reports whether any data row of the sheet holds value in the
// column with the given header name. An unknown header reads as absent.
func ValueExists(ctx context.Context, db *gorm.DB, sheet, column, value string) (bool, error) {
	header, err := HeaderRow(ctx, db, sheet)
	if err != nil {
		return false, err
	}
	col := HeaderIndex(header, column)
	if col == 0 {
		return false, nil
	}
	_, err = FindInColumn(ctx, db, sheet, col, value)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetIdempotency returns a non-expired record or ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, sheet, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("sheet = ? AND key = ? AND expires_at > ?", sheet, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency inserts a record and returns ErrDuplicate on unique violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, sheet, key string, rowIndex, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		Sheet:     sheet,
		Key:       key,
		RowIndex:  rowIndex,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
