// Package services – LinkerService
//
// This file implements the identity linker: the component that binds a chat
// identity to a roster row once the member's display name matches a roster
// name. Linking is idempotent and write-once; an identity already bound to
// any row short-circuits to success without a name lookup, and a bound
// identity is never overwritten.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RosterRepo defines the repository contract required by LinkerService.
type RosterRepo interface {
	// IdentityExists reports whether identity is bound to any roster row.
	IdentityExists(ctx context.Context, db *gorm.DB, sheet string, identity int64) (bool, error)

	// LinkIdentity matches displayName against roster names and writes
	// identity into the matched row. Already-linked identities return true
	// without mutation; an unmatched name returns false.
	LinkIdentity(ctx context.Context, db *gorm.DB, sheet, displayName string, identity int64) (bool, error)

	// LinkIdentityByEmail writes identity into the row holding email.
	LinkIdentityByEmail(ctx context.Context, db *gorm.DB, sheet, email string, identity int64) (bool, error)

	// FindByPaymentReference resolves a payment reference to the
	// registrant's email, or repo.ErrNotFound.
	FindByPaymentReference(ctx context.Context, db *gorm.DB, sheet, reference string) (string, int, error)
}

// LinkOutcome describes the result of a validation attempt.
type LinkOutcome int

const (
	// LinkNoMatch: no roster name satisfies the matching policy.
	LinkNoMatch LinkOutcome = iota
	// Linked: the identity was bound to a roster row by this call.
	Linked
	// AlreadyLinked: the identity was bound before this call.
	AlreadyLinked
)

// LinkerService binds chat identities to roster rows.
type LinkerService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the roster repository used by this service.
	Repo RosterRepo
	// Sheet names the roster worksheet.
	Sheet string
	// RegistrationSheet names the sheet searched for payment references.
	RegistrationSheet string
}

// Link attempts to bind identity to a roster row by display name. It returns
// true when the identity is linked after the call, whether the binding
// already existed or was written now.
func (s *LinkerService) Link(ctx context.Context, displayName string, identity int64) (bool, error) {
	tr := otel.Tracer("services/LinkerService")
	ctx, span := tr.Start(ctx, "Link",
		trace.WithAttributes(attribute.Int64("member.id", identity)),
	)
	defer span.End()

	return s.Repo.LinkIdentity(ctx, s.DB, s.Sheet, displayName, identity)
}

// Validate is the self-service variant of Link: it distinguishes an identity
// that was already linked from one linked by this call, so the caller can
// word its reply accordingly.
func (s *LinkerService) Validate(ctx context.Context, displayName string, identity int64) (LinkOutcome, error) {
	tr := otel.Tracer("services/LinkerService")
	ctx, span := tr.Start(ctx, "Validate",
		trace.WithAttributes(attribute.Int64("member.id", identity)),
	)
	defer span.End()

	exists, err := s.Repo.IdentityExists(ctx, s.DB, s.Sheet, identity)
	if err != nil {
		return LinkNoMatch, err
	}
	if exists {
		return AlreadyLinked, nil
	}
	ok, err := s.Repo.LinkIdentity(ctx, s.DB, s.Sheet, displayName, identity)
	if err != nil {
		return LinkNoMatch, err
	}
	if !ok {
		return LinkNoMatch, nil
	}
	return Linked, nil
}

// ValidatePayment resolves a payment reference to a registrant and links
// identity to that registrant's row by email. Returns ErrReferenceNotFound
// when the reference is unknown and ErrNoRosterMatch when the resolved email
// is missing from the sheet.
func (s *LinkerService) ValidatePayment(ctx context.Context, reference string, identity int64) error {
	tr := otel.Tracer("services/LinkerService")
	ctx, span := tr.Start(ctx, "ValidatePayment",
		trace.WithAttributes(attribute.Int64("member.id", identity)),
	)
	defer span.End()

	email, _, err := s.Repo.FindByPaymentReference(ctx, s.DB, s.RegistrationSheet, reference)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrReferenceNotFound
	}
	if err != nil {
		return err
	}
	if email == "" {
		return ErrReferenceNotFound
	}
	ok, err := s.Repo.LinkIdentityByEmail(ctx, s.DB, s.RegistrationSheet, email, identity)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoRosterMatch
	}
	return nil
}
