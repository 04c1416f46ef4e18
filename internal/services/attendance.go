// Package services – AttendanceService
//
// This file implements attendance sessions: the admin-controlled window
// during which linked members mark themselves present. Each session owns a
// freshly appended attendance column on the roster; marks are write-once per
// member per session. At most one session is open per chat, and sessions are
// process-local state, lost on restart like the enforcement registries.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/docsanddecks/attendance-bot/internal/repo"
)

// AttendanceRepo defines the repository contract required by
// AttendanceService.
type AttendanceRepo interface {
	// NewAttendanceColumn appends a dated attendance column to the roster
	// and returns its 1-based index.
	NewAttendanceColumn(ctx context.Context, db *gorm.DB, sheet string, now time.Time) (int, error)

	// MarkAttendance writes the mark value into the given attendance
	// column for identity's row. It returns false when the cell already
	// holds a mark, and repo.ErrNotFound when identity is not linked.
	MarkAttendance(ctx context.Context, db *gorm.DB, sheet string, identity int64, col, marks int) (bool, error)

	// CountAttendance counts non-empty cells in the given attendance
	// column, excluding the header.
	CountAttendance(ctx context.Context, db *gorm.DB, sheet string, col int) (int, error)
}

// AdminChecker reports whether a member administers a chat.
type AdminChecker interface {
	IsAdmin(ctx context.Context, chatID, identity int64) (bool, error)
}

// Session is one open attendance window.
type Session struct {
	ChatID    int64
	Column    int // 1-based roster column holding this session's marks
	MessageID int // prompt message carrying the mark/end controls
	Attendees int // members marked present so far
	StartedBy int64
	StartedAt time.Time
}

// AttendanceService opens, records, and closes attendance sessions.
type AttendanceService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the attendance repository used by this service.
	Repo AttendanceRepo
	// Admins gates session controls to chat administrators.
	Admins AdminChecker
	// Sheet names the roster worksheet.
	Sheet string
	// MarkValue is the numeric value written for a present member.
	MarkValue int

	mu       sync.Mutex
	sessions map[int64]*Session
	// starting holds chats whose session is being created: reserved under
	// mu before the column append so concurrent starts race on the
	// reservation, not on the repo call.
	starting map[int64]struct{}
}

// NewAttendanceService constructs an AttendanceService with no open
// sessions.
func NewAttendanceService(db *gorm.DB, r AttendanceRepo, admins AdminChecker, sheet string, markValue int) *AttendanceService {
	return &AttendanceService{
		DB:        db,
		Repo:      r,
		Admins:    admins,
		Sheet:     sheet,
		MarkValue: markValue,
		sessions:  make(map[int64]*Session),
		starting:  make(map[int64]struct{}),
	}
}

// Start opens a session for chatID. Only chat administrators may start one;
// an admin-check failure is reported as ErrAdminOnly rather than leaking the
// lookup error to the member. A chat with an open session gets
// ErrSessionOpen.
func (s *AttendanceService) Start(ctx context.Context, chatID, identity int64) (*Session, error) {
	tr := otel.Tracer("services/AttendanceService")
	ctx, span := tr.Start(ctx, "Start",
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
	defer span.End()

	ok, err := s.Admins.IsAdmin(ctx, chatID, identity)
	if err != nil || !ok {
		return nil, ErrAdminOnly
	}

	s.mu.Lock()
	_, open := s.sessions[chatID]
	_, reserved := s.starting[chatID]
	if open || reserved {
		s.mu.Unlock()
		return nil, ErrSessionOpen
	}
	s.starting[chatID] = struct{}{}
	s.mu.Unlock()

	col, err := s.Repo.NewAttendanceColumn(ctx, s.DB, s.Sheet, time.Now().UTC())
	if err != nil {
		s.mu.Lock()
		delete(s.starting, chatID)
		s.mu.Unlock()
		return nil, err
	}

	sess := &Session{
		ChatID:    chatID,
		Column:    col,
		StartedBy: identity,
		StartedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	delete(s.starting, chatID)
	s.sessions[chatID] = sess
	s.mu.Unlock()
	return sess, nil
}

// SetMessage records the identifier of the prompt message carrying the
// session controls, once the chat surface has sent it.
func (s *AttendanceService) SetMessage(chatID int64, messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[chatID]; ok {
		sess.MessageID = messageID
	}
}

// Session returns a copy of the open session for chatID, if any.
func (s *AttendanceService) Session(chatID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[chatID]; ok {
		return *sess, true
	}
	return Session{}, false
}

// Mark records identity as present in chatID's open session and returns the
// member's position in the mark order. Unlinked identities get ErrNotLinked;
// a second mark in the same session gets ErrAlreadyMarked and leaves the
// first mark untouched.
func (s *AttendanceService) Mark(ctx context.Context, chatID, identity int64) (int, error) {
	tr := otel.Tracer("services/AttendanceService")
	ctx, span := tr.Start(ctx, "Mark",
		trace.WithAttributes(
			attribute.Int64("chat.id", chatID),
			attribute.Int64("member.id", identity),
		),
	)
	defer span.End()

	s.mu.Lock()
	sess, open := s.sessions[chatID]
	col := 0
	if open {
		col = sess.Column
	}
	s.mu.Unlock()
	if !open {
		return 0, ErrNoSession
	}

	ok, err := s.Repo.MarkAttendance(ctx, s.DB, s.Sheet, identity, col, s.MarkValue)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, ErrNotLinked
	}
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrAlreadyMarked
	}

	s.mu.Lock()
	position := 0
	if sess, open := s.sessions[chatID]; open {
		sess.Attendees++
		position = sess.Attendees
	}
	s.mu.Unlock()
	return position, nil
}

// End closes chatID's open session and returns the number of members marked
// present. The same admin gate as Start applies.
func (s *AttendanceService) End(ctx context.Context, chatID, identity int64) (int, error) {
	tr := otel.Tracer("services/AttendanceService")
	ctx, span := tr.Start(ctx, "End",
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
	defer span.End()

	ok, err := s.Admins.IsAdmin(ctx, chatID, identity)
	if err != nil || !ok {
		return 0, ErrAdminOnly
	}

	s.mu.Lock()
	sess, open := s.sessions[chatID]
	col := 0
	if open {
		col = sess.Column
	}
	s.mu.Unlock()
	if !open {
		return 0, ErrNoSession
	}

	count, err := s.Repo.CountAttendance(ctx, s.DB, s.Sheet, col)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	delete(s.sessions, chatID)
	s.mu.Unlock()
	return count, nil
}
