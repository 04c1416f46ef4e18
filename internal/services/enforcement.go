// Package services – EnforcementService
//
// This file implements the membership enforcement workflow: the bounded
// grace period given to chat members whose display name has no roster match,
// and the supervised re-admission loop for members removed after exhausting
// it. Per identity the machine moves
//
//	Unverified → Pending → {Verified | Removed}
//	Removed    → {Reinstated | PermanentlyRemoved}
//
// Pending and Removed entries live in an owned registry inside the service;
// they are process-local and lost on restart, by design. Re-checks are named
// jobs on an injected Scheduler; every callback first re-checks entry
// existence and cancels itself when the entry is gone, so a scheduled job
// can never outlive its logical state. Platform lookups that fail cancel
// that identity's loop rather than retrying a broken lookup indefinitely.
// Removal and re-admission calls to the platform are best-effort: a refusal
// is logged and never blocks the local state transition.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Scheduler abstracts the named recurring callback facility the enforcement
// loops run on. Schedule replaces any job with the same name; Cancel is a
// no-op for unknown names.
type Scheduler interface {
	Schedule(name string, first, every time.Duration, fn func(ctx context.Context))
	Cancel(name string)
}

// MemberLinker is the slice of the identity linker the state machine needs.
type MemberLinker interface {
	Link(ctx context.Context, displayName string, identity int64) (bool, error)
}

// MemberDirectory resolves a member's current display name on the chat
// platform. Re-checks use it to pick up profile renames.
type MemberDirectory interface {
	MemberName(ctx context.Context, chatID, identity int64) (string, error)
}

// Moderator removes and re-admits chat members.
type Moderator interface {
	Ban(ctx context.Context, chatID, identity int64) error
	Unban(ctx context.Context, chatID, identity int64) error
}

// EnforcementNotifier delivers workflow notifications into the chat. The
// texts belong to the bot surface; the state machine only signals outcomes.
type EnforcementNotifier interface {
	VerificationPassed(ctx context.Context, chatID, identity int64, name string)
	MemberRemoved(ctx context.Context, chatID, identity int64, name string)
}

// PendingEntry tracks one member inside the verification grace period.
type PendingEntry struct {
	ChatID           int64
	Identity         int64
	Name             string // display name at the time of joining
	WarningMessageID int
	Attempts         int
	CreatedAt        time.Time
}

// RemovedEntry tracks one removed member awaiting possible re-admission.
// Its attempt counter is a separate counter space from the pending phase.
type RemovedEntry struct {
	ChatID   int64
	Identity int64
	Attempts int
}

var (
	enforcementPending = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "enforcement_pending_members",
		Help: "Members currently inside the verification grace period.",
	})
	enforcementRemoved = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "enforcement_removed_members",
		Help: "Removed members currently awaiting re-admission checks.",
	})
	enforcementEscalations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enforcement_escalations_total",
		Help: "Total pending members escalated to removal.",
	})
	enforcementReinstated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enforcement_reinstatements_total",
		Help: "Total removed members re-admitted after a successful match.",
	})
)

func init() {
	prometheus.MustRegister(
		enforcementPending, enforcementRemoved,
		enforcementEscalations, enforcementReinstated,
	)
}

// EnforcementService drives the grace-period and re-admission loops.
//
// All registry access is serialized by an internal mutex; the scheduler
// dispatches callbacks one at a time, so within one process the
// check-then-act sequence of a re-check is atomic with respect to external
// entry deletion.
type EnforcementService struct {
	Linker    MemberLinker
	Directory MemberDirectory
	Moderator Moderator
	Notifier  EnforcementNotifier
	Sched     Scheduler

	// Interval is both the first-fire delay and repeat interval of every
	// re-check loop.
	Interval time.Duration
	// PendingCeiling is the failed-attempt ceiling of the grace period.
	PendingCeiling int
	// RemovedCeiling is the failed-attempt ceiling of the re-admission loop.
	RemovedCeiling int

	Log zerolog.Logger

	mu      sync.Mutex
	pending map[int64]*PendingEntry
	removed map[int64]*RemovedEntry
}

// NewEnforcementService constructs an EnforcementService with empty
// registries.
func NewEnforcementService(linker MemberLinker, dir MemberDirectory, mod Moderator, n EnforcementNotifier, sched Scheduler, interval time.Duration, pendingCeiling, removedCeiling int, log zerolog.Logger) *EnforcementService {
	return &EnforcementService{
		Linker:         linker,
		Directory:      dir,
		Moderator:      mod,
		Notifier:       n,
		Sched:          sched,
		Interval:       interval,
		PendingCeiling: pendingCeiling,
		RemovedCeiling: removedCeiling,
		Log:            log.With().Str("component", "enforcement").Logger(),
		pending:        make(map[int64]*PendingEntry),
		removed:        make(map[int64]*RemovedEntry),
	}
}

func pendingJob(identity int64) string { return fmt.Sprintf("verify:%d", identity) }
func removedJob(identity int64) string { return fmt.Sprintf("readmit:%d", identity) }

// TrackPending registers an unmatched member for grace-period re-checks.
// A member already pending is re-registered from scratch (fresh counter and
// schedule), which covers leave-and-rejoin during the grace period.
func (s *EnforcementService) TrackPending(ctx context.Context, chatID, identity int64, name string, warningMessageID int) {
	s.mu.Lock()
	s.pending[identity] = &PendingEntry{
		ChatID:           chatID,
		Identity:         identity,
		Name:             name,
		WarningMessageID: warningMessageID,
		CreatedAt:        time.Now().UTC(),
	}
	n := len(s.pending)
	s.mu.Unlock()
	enforcementPending.Set(float64(n))

	s.Sched.Schedule(pendingJob(identity), s.Interval, s.Interval, func(ctx context.Context) {
		s.recheckPending(ctx, identity)
	})
	s.Log.Info().Int64("chat_id", chatID).Int64("member_id", identity).Msg("member pending verification")
}

// TrackRemoved registers an already-removed member for re-admission
// re-checks. Pay-gated chats use this directly when an unvalidated member
// is removed on join.
func (s *EnforcementService) TrackRemoved(ctx context.Context, chatID, identity int64) {
	s.mu.Lock()
	s.removed[identity] = &RemovedEntry{ChatID: chatID, Identity: identity}
	n := len(s.removed)
	s.mu.Unlock()
	enforcementRemoved.Set(float64(n))

	s.Sched.Schedule(removedJob(identity), s.Interval, s.Interval, func(ctx context.Context) {
		s.recheckRemoved(ctx, identity)
	})
	s.Log.Info().Int64("chat_id", chatID).Int64("member_id", identity).Msg("member tracked for re-admission")
}

// PendingCount returns the number of members inside the grace period.
func (s *EnforcementService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RemovedCount returns the number of removed members still being re-checked.
func (s *EnforcementService) RemovedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.removed)
}

// Pending returns a copy of the pending entry for identity, if any.
func (s *EnforcementService) Pending(identity int64) (PendingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[identity]; ok {
		return *e, true
	}
	return PendingEntry{}, false
}

// Removed returns a copy of the removed entry for identity, if any.
func (s *EnforcementService) Removed(identity int64) (RemovedEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.removed[identity]; ok {
		return *e, true
	}
	return RemovedEntry{}, false
}

// recheckPending is one grace-period re-check for identity. Exactly one of
// the following happens: the member verifies and leaves the machine, the
// attempt counter advances, the member escalates to Removed, or the callback
// discovers its entry gone (or a broken lookup) and cancels itself.
func (s *EnforcementService) recheckPending(ctx context.Context, identity int64) {
	s.mu.Lock()
	e, ok := s.pending[identity]
	if !ok {
		s.mu.Unlock()
		s.Sched.Cancel(pendingJob(identity))
		return
	}
	chatID := e.ChatID
	attempts := e.Attempts
	s.mu.Unlock()

	name, err := s.Directory.MemberName(ctx, chatID, identity)
	if err != nil {
		s.Log.Error().Err(err).Int64("member_id", identity).Msg("member lookup failed; cancelling verification re-checks")
		s.dropPending(identity)
		return
	}

	linked, err := s.Linker.Link(ctx, name, identity)
	if err != nil {
		s.Log.Error().Err(err).Int64("member_id", identity).Msg("link attempt failed; cancelling verification re-checks")
		s.dropPending(identity)
		return
	}

	if linked {
		s.Notifier.VerificationPassed(ctx, chatID, identity, name)
		s.dropPending(identity)
		s.Log.Info().Int64("member_id", identity).Msg("member verified")
		return
	}

	// Failed attempt: advance the counter, escalate once the ceiling was
	// already reached before this check.
	s.mu.Lock()
	if e, ok := s.pending[identity]; ok {
		e.Attempts++
	}
	s.mu.Unlock()
	if attempts < s.PendingCeiling {
		return
	}

	s.Notifier.MemberRemoved(ctx, chatID, identity, name)
	if err := s.Moderator.Ban(ctx, chatID, identity); err != nil {
		// Removal is best-effort; the entry is cleaned up regardless.
		s.Log.Warn().Err(err).Int64("member_id", identity).Msg("platform removal failed")
	}
	s.dropPending(identity)
	s.TrackRemoved(ctx, chatID, identity)
	enforcementEscalations.Inc()
	s.Log.Info().Int64("member_id", identity).Int("attempts", attempts+1).Msg("member escalated to removed")
}

// recheckRemoved is one re-admission re-check for identity.
func (s *EnforcementService) recheckRemoved(ctx context.Context, identity int64) {
	s.mu.Lock()
	e, ok := s.removed[identity]
	if !ok {
		s.mu.Unlock()
		s.Sched.Cancel(removedJob(identity))
		return
	}
	chatID := e.ChatID
	attempts := e.Attempts
	s.mu.Unlock()

	name, err := s.Directory.MemberName(ctx, chatID, identity)
	if err != nil {
		s.Log.Error().Err(err).Int64("member_id", identity).Msg("member lookup failed; cancelling re-admission re-checks")
		s.dropRemoved(identity)
		return
	}

	linked, err := s.Linker.Link(ctx, name, identity)
	if err != nil {
		s.Log.Error().Err(err).Int64("member_id", identity).Msg("link attempt failed; cancelling re-admission re-checks")
		s.dropRemoved(identity)
		return
	}

	if linked {
		if err := s.Moderator.Unban(ctx, chatID, identity); err != nil {
			s.Log.Warn().Err(err).Int64("member_id", identity).Msg("platform re-admission failed")
		}
		s.dropRemoved(identity)
		enforcementReinstated.Inc()
		s.Log.Info().Int64("member_id", identity).Msg("member reinstated")
		return
	}

	s.mu.Lock()
	if e, ok := s.removed[identity]; ok {
		e.Attempts++
	}
	s.mu.Unlock()
	if attempts < s.RemovedCeiling {
		return
	}

	// Ceiling exhausted: the member stays removed, silently.
	s.dropRemoved(identity)
	s.Log.Info().Int64("member_id", identity).Int("attempts", attempts+1).Msg("member permanently removed")
}

// dropPending deletes the pending entry and cancels its job.
func (s *EnforcementService) dropPending(identity int64) {
	s.mu.Lock()
	delete(s.pending, identity)
	n := len(s.pending)
	s.mu.Unlock()
	enforcementPending.Set(float64(n))
	s.Sched.Cancel(pendingJob(identity))
}

// dropRemoved deletes the removed entry and cancels its job.
func (s *EnforcementService) dropRemoved(identity int64) {
	s.mu.Lock()
	delete(s.removed, identity)
	n := len(s.removed)
	s.mu.Unlock()
	enforcementRemoved.Set(float64(n))
	s.Sched.Cancel(removedJob(identity))
}
