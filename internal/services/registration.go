// Package services – RegistrationService
//
// This file implements the registration intake behind the HTTP surface:
// appending submitted forms to the registration sheet, duplicate checks, and
// idempotent replays keyed by a client-supplied idempotency key.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/docsanddecks/attendance-bot/internal/domain"
	"github.com/docsanddecks/attendance-bot/internal/repo"
)

// RegistrationRepo defines the repository contract required by
// RegistrationService.
type RegistrationRepo interface {
	// AppendRegistration appends form under the sheet's header schema and
	// returns the new 1-based row index. The stored created_at is assigned
	// server-side regardless of any client value.
	AppendRegistration(ctx context.Context, db *gorm.DB, sheet string, form map[string]string, now time.Time) (int, error)

	// ValueExists reports whether value appears in the named column.
	ValueExists(ctx context.Context, db *gorm.DB, sheet, column, value string) (bool, error)

	// GetIdempotency returns the unexpired record for (sheet, key), or
	// repo.ErrNotFound.
	GetIdempotency(ctx context.Context, db *gorm.DB, sheet, key string, now time.Time) (*domain.Idempotency, error)

	// CreateIdempotency records a key→row binding, or repo.ErrDuplicate
	// when the key was bound concurrently.
	CreateIdempotency(ctx context.Context, db *gorm.DB, sheet, key string, rowIndex, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// RegistrationService accepts registration submissions.
type RegistrationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the registration repository used by this service.
	Repo RegistrationRepo
	// Sheet names the registration worksheet.
	Sheet string
	// IdempotencyTTL bounds how long a replayed key returns the original
	// row instead of appending again.
	IdempotencyTTL time.Duration
}

// Submit appends a registration form. When idemKey is non-empty and was seen
// within the TTL, the original row index is returned with created=false and
// no new row is written.
func (s *RegistrationService) Submit(ctx context.Context, form map[string]string, idemKey string) (int, bool, error) {
	tr := otel.Tracer("services/RegistrationService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("sheet", s.Sheet)),
	)
	defer span.End()

	now := time.Now().UTC()

	if idemKey != "" {
		rec, err := s.Repo.GetIdempotency(ctx, s.DB, s.Sheet, idemKey, now)
		if err == nil {
			return rec.RowIndex, false, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return 0, false, err
		}
	}

	row, err := s.Repo.AppendRegistration(ctx, s.DB, s.Sheet, form, now)
	if err != nil {
		return 0, false, err
	}

	if idemKey != "" {
		_, err = s.Repo.CreateIdempotency(ctx, s.DB, s.Sheet, idemKey, row, 201, s.IdempotencyTTL)
		if errors.Is(err, repo.ErrDuplicate) {
			// Lost a race with a concurrent submission of the same key;
			// the winner's row is the canonical one.
			if rec, gerr := s.Repo.GetIdempotency(ctx, s.DB, s.Sheet, idemKey, now); gerr == nil {
				return rec.RowIndex, false, nil
			}
			return row, true, nil
		}
		if err != nil {
			return 0, false, err
		}
	}
	return row, true, nil
}

// Exists reports whether value already appears in the named column of sheet.
// An empty sheet falls back to the registration worksheet. Unknown columns
// report false.
func (s *RegistrationService) Exists(ctx context.Context, sheet, column, value string) (bool, error) {
	if sheet == "" {
		sheet = s.Sheet
	}
	tr := otel.Tracer("services/RegistrationService")
	ctx, span := tr.Start(ctx, "Exists",
		trace.WithAttributes(attribute.String("sheet", sheet)),
	)
	defer span.End()

	return s.Repo.ValueExists(ctx, s.DB, sheet, column, value)
}
