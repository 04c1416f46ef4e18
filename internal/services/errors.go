// Package services defines the business logic of the attendance bot: identity
// linking, the membership enforcement workflow, attendance sessions, catalog
// queries, and registration. This file centralizes common service-level error
// values so they can be consistently returned by service methods and checked
// by callers.
//
// These errors are intended for internal use by the service layer; the bot
// handlers and HTTP handlers translate them into user-facing texts or HTTP
// status codes. No raw store or platform error crosses a handler boundary.
package services

import "errors"

// Linking and lookup errors.
var (
	// ErrNotLinked is returned when an operation requires a linked identity
	// and the caller's identity is not bound to any roster row.
	ErrNotLinked = errors.New("identity not linked to any roster row")

	// ErrNoRosterMatch is returned when no roster name satisfies the
	// name-matching policy for a display name.
	ErrNoRosterMatch = errors.New("no roster match for display name")

	// ErrNoEmail is returned when a roster row has no email, so score
	// lookups keyed by email cannot proceed.
	ErrNoEmail = errors.New("no email on roster row")

	// ErrNoScore is returned when no overall-score row exists for a member.
	ErrNoScore = errors.New("no score data")

	// ErrReferenceNotFound is returned when a payment reference does not
	// appear in the registration sheet.
	ErrReferenceNotFound = errors.New("payment reference not found")
)

// Attendance session errors.
var (
	// ErrAdminOnly is returned when a non-administrator invokes an
	// admin-gated session control.
	ErrAdminOnly = errors.New("admin only")

	// ErrSessionOpen is returned when starting a session while one is
	// already open for the chat.
	ErrSessionOpen = errors.New("attendance session already open")

	// ErrNoSession is returned when marking or ending attendance with no
	// open session for the chat.
	ErrNoSession = errors.New("no open attendance session")

	// ErrAlreadyMarked is returned when an identity marks attendance twice
	// in the same session. The first mark stands; this is a notice, not a
	// failure.
	ErrAlreadyMarked = errors.New("attendance already marked")
)
