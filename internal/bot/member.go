// Package bot – membership handlers
//
// Join events and /validate_me. Two join policies exist: the default gives
// unmatched members a time-boxed grace period to fix their display name; the
// payment gate removes them immediately and re-admits once a payment
// reference links their identity.
package bot

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/docsanddecks/attendance-bot/internal/chat"
	"github.com/docsanddecks/attendance-bot/internal/services"
)

// awaitingReferences tracks members asked to reply with a payment reference.
type awaitingReferences struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

func newAwaitingReferences() *awaitingReferences {
	return &awaitingReferences{ids: make(map[int64]struct{})}
}

func (a *awaitingReferences) set(identity int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ids[identity] = struct{}{}
}

// clear removes identity and reports whether it was awaiting.
func (a *awaitingReferences) clear(identity int64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.ids[identity]
	delete(a.ids, identity)
	return ok
}

func (b *Bot) handleStart(ctx context.Context, u chat.Update) {
	b.send(ctx, u.ChatID, greetingText(b.BotName))
}

// handleJoin processes new members. The bot's own join is ignored.
func (b *Bot) handleJoin(ctx context.Context, u chat.Update) {
	for _, m := range u.Joined {
		if m.Identity == b.SelfID {
			continue
		}
		if b.PaymentGate {
			b.handleGatedJoin(ctx, u.ChatID, m)
			continue
		}
		b.handleGraceJoin(ctx, u.ChatID, m)
	}
}

// handleGraceJoin attempts an immediate name match; failures start the
// grace-period re-checks.
func (b *Bot) handleGraceJoin(ctx context.Context, chatID int64, m chat.Member) {
	mention := Mention(m.DisplayName, m.Identity)
	ok, err := b.Linker.Link(ctx, m.DisplayName, m.Identity)
	if err != nil {
		b.Log.Error().Err(err).Int64("member_id", m.Identity).Msg("join link failed")
		return
	}
	if ok {
		b.send(ctx, chatID, welcomeText(mention))
		return
	}
	warningID := b.send(ctx, chatID, nameWarningText(mention))
	b.Enforcement.TrackPending(ctx, chatID, m.Identity, m.DisplayName, warningID)
}

// handleGatedJoin admits only already-linked identities; everyone else is
// removed at once and re-admitted by the re-check loop after validation.
func (b *Bot) handleGatedJoin(ctx context.Context, chatID int64, m chat.Member) {
	mention := Mention(m.DisplayName, m.Identity)
	outcome, err := b.Linker.Validate(ctx, m.DisplayName, m.Identity)
	if err != nil {
		b.Log.Error().Err(err).Int64("member_id", m.Identity).Msg("gated join lookup failed")
		return
	}
	if outcome == services.AlreadyLinked {
		b.send(ctx, chatID, welcomeText(mention))
		return
	}
	b.send(ctx, chatID, paymentGateText(mention))
	if err := b.Platform.Ban(ctx, chatID, m.Identity); err != nil {
		b.Log.Warn().Err(err).Int64("member_id", m.Identity).Msg("gated removal failed")
	}
	b.Enforcement.TrackRemoved(ctx, chatID, m.Identity)
}

// handleValidateMe is the self-service link command. Under the payment gate
// the argument (or a follow-up reply) is a payment reference; otherwise the
// member's display name is matched against the roster.
func (b *Bot) handleValidateMe(ctx context.Context, u chat.Update) {
	if b.PaymentGate {
		ref := strings.TrimSpace(u.Args)
		if ref == "" {
			b.awaiting.set(u.From.Identity)
			b.send(ctx, u.ChatID, askReferenceText)
			return
		}
		b.validateReference(ctx, u.ChatID, u.From.Identity, ref)
		return
	}

	outcome, err := b.Linker.Validate(ctx, u.From.DisplayName, u.From.Identity)
	if err != nil {
		b.Log.Error().Err(err).Int64("member_id", u.From.Identity).Msg("validate_me failed")
		return
	}
	switch outcome {
	case services.AlreadyLinked:
		b.send(ctx, u.ChatID, alreadyLinkedText)
	case services.Linked:
		b.send(ctx, u.ChatID, linkedNowText)
	default:
		b.send(ctx, u.ChatID, noMatchText)
	}
}

// handleText consumes payment-reference replies from members previously
// asked for one. Other plain messages are ignored.
func (b *Bot) handleText(ctx context.Context, u chat.Update) {
	if !b.PaymentGate {
		return
	}
	if !b.awaiting.clear(u.From.Identity) {
		return
	}
	b.validateReference(ctx, u.ChatID, u.From.Identity, strings.TrimSpace(u.Text))
}

func (b *Bot) validateReference(ctx context.Context, chatID, identity int64, reference string) {
	err := b.Linker.ValidatePayment(ctx, reference, identity)
	switch {
	case err == nil:
		b.send(ctx, chatID, paymentLinkedText(b.GroupLink))
	case errors.Is(err, services.ErrReferenceNotFound):
		b.send(ctx, chatID, badReferenceText)
	case errors.Is(err, services.ErrNoRosterMatch):
		b.send(ctx, chatID, linkFailedText)
	default:
		b.Log.Error().Err(err).Int64("member_id", identity).Msg("payment validation failed")
		b.send(ctx, chatID, linkFailedText)
	}
}
