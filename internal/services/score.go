// Package services – ScoreService
//
// This file implements personal score lookups. Scores are keyed by the
// member's roster email, so every lookup first resolves the caller's
// identity to a roster row; unlinked identities are refused rather than
// silently returning nothing.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/docsanddecks/attendance-bot/internal/repo"
)

// ScoreRepo defines the repository contract required by ScoreService.
type ScoreRepo interface {
	// MemberByIdentity returns the roster row bound to identity as a
	// header→value map, or repo.ErrNotFound.
	MemberByIdentity(ctx context.Context, db *gorm.DB, sheet string, identity int64) (map[string]string, error)

	// AssignmentScore returns the score recorded for email in a
	// per-assignment sheet, or repo.ErrNotFound.
	AssignmentScore(ctx context.Context, db *gorm.DB, sheet, email string) (string, error)

	// OverallScore returns the overall-score row for email, or
	// repo.ErrNotFound.
	OverallScore(ctx context.Context, db *gorm.DB, sheet, email string) (map[string]string, error)
}

// ScoreService serves per-member score lookups.
type ScoreService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the score repository used by this service.
	Repo ScoreRepo
	// RosterSheet names the roster worksheet holding identity bindings.
	RosterSheet string
	// OverallSheet names the overall-scores worksheet.
	OverallSheet string
}

// MemberEmail resolves identity to the member's roster email. ErrNotLinked
// for unbound identities, ErrNoEmail for a bound row without one.
func (s *ScoreService) MemberEmail(ctx context.Context, identity int64) (string, error) {
	rec, err := s.Repo.MemberByIdentity(ctx, s.DB, s.RosterSheet, identity)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrNotLinked
	}
	if err != nil {
		return "", err
	}
	email := rec[repo.HeaderEmail]
	if email == "" {
		return "", ErrNoEmail
	}
	return email, nil
}

// AssignmentScore returns identity's score in the named assignment sheet.
// A missing row or an empty score cell is reported as ErrNoScore.
func (s *ScoreService) AssignmentScore(ctx context.Context, identity int64, sheet string) (string, error) {
	tr := otel.Tracer("services/ScoreService")
	ctx, span := tr.Start(ctx, "AssignmentScore",
		trace.WithAttributes(attribute.Int64("member.id", identity)),
	)
	defer span.End()

	email, err := s.MemberEmail(ctx, identity)
	if err != nil {
		return "", err
	}
	score, err := s.Repo.AssignmentScore(ctx, s.DB, sheet, email)
	if errors.Is(err, repo.ErrNotFound) {
		return "", ErrNoScore
	}
	if err != nil {
		return "", err
	}
	if score == "" {
		return "", ErrNoScore
	}
	return score, nil
}

// Overall returns identity's overall-score row as a header→value map.
func (s *ScoreService) Overall(ctx context.Context, identity int64) (map[string]string, error) {
	tr := otel.Tracer("services/ScoreService")
	ctx, span := tr.Start(ctx, "Overall",
		trace.WithAttributes(attribute.Int64("member.id", identity)),
	)
	defer span.End()

	email, err := s.MemberEmail(ctx, identity)
	if err != nil {
		return nil, err
	}
	rec, err := s.Repo.OverallScore(ctx, s.DB, s.OverallSheet, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoScore
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}
