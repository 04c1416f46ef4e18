// Package bot is the chat-facing surface of the attendance bot. It owns the
// command, join, and callback handlers, translates service errors into
// member-facing texts, and adapts the chat platform to the narrow interfaces
// the service layer consumes.
package bot

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/docsanddecks/attendance-bot/internal/chat"
	"github.com/docsanddecks/attendance-bot/internal/services"
)

// Bot wires the chat surface to the services.
type Bot struct {
	Platform    chat.Platform
	Linker      *services.LinkerService
	Enforcement *services.EnforcementService
	Attendance  *services.AttendanceService
	Catalog     *services.CatalogService
	Scores      *services.ScoreService

	// BotName is the display name used in the greeting.
	BotName string
	// GroupLink is the invite link sent after payment validation.
	GroupLink string
	// PaymentGate switches join handling from the name grace period to
	// immediate removal pending payment validation.
	PaymentGate bool
	// SelfID is the bot's own identity, skipped in join events.
	SelfID int64

	Log zerolog.Logger

	awaiting *awaitingReferences
}

// New constructs a Bot. The Enforcement service's notifier must be this
// bot's Notifier so workflow notices reach the chat.
func New(p chat.Platform, log zerolog.Logger) *Bot {
	return &Bot{
		Platform: p,
		Log:      log.With().Str("component", "bot").Logger(),
		awaiting: newAwaitingReferences(),
	}
}

// Register installs the bot's routes on the dispatcher.
func (b *Bot) Register(d *chat.Dispatcher) {
	d.OnCommand("start", b.handleStart)
	d.OnCommand("validate_me", b.handleValidateMe)
	d.OnCommand("start_attendance", b.handleStartAttendance)
	d.OnCommand("assignments", b.handleAssignments)
	d.OnCommand("recordings", b.handleRecordings)
	d.OnCommand("resources", b.handleResources)
	d.OnCommand("my_score", b.handleMyScore)
	d.OnCallback(callbackPresent, b.handlePresent)
	d.OnCallback(callbackEndAttendance, b.handleEndAttendance)
	d.OnJoin(b.handleJoin)
	d.OnText(b.handleText)
}

// send posts text and logs delivery failures; handlers treat outbound sends
// as best-effort.
func (b *Bot) send(ctx context.Context, chatID int64, text string) int {
	id, err := b.Platform.SendMessage(ctx, chatID, text)
	if err != nil {
		b.Log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
	return id
}

// Directory adapts the platform to services.MemberDirectory.
func (b *Bot) Directory() services.MemberDirectory { return platformDirectory{b.Platform} }

// Moderator adapts the platform to services.Moderator.
func (b *Bot) Moderator() services.Moderator { return platformModerator{b.Platform} }

// Admins adapts the platform to services.AdminChecker using the member's
// chat standing.
func (b *Bot) Admins() services.AdminChecker { return platformAdmins{b.Platform} }

type platformDirectory struct{ p chat.Platform }

func (d platformDirectory) MemberName(ctx context.Context, chatID, identity int64) (string, error) {
	return d.p.MemberName(ctx, chatID, identity)
}

type platformModerator struct{ p chat.Platform }

func (m platformModerator) Ban(ctx context.Context, chatID, identity int64) error {
	return m.p.Ban(ctx, chatID, identity)
}

func (m platformModerator) Unban(ctx context.Context, chatID, identity int64) error {
	return m.p.Unban(ctx, chatID, identity)
}

type platformAdmins struct{ p chat.Platform }

func (a platformAdmins) IsAdmin(ctx context.Context, chatID, identity int64) (bool, error) {
	status, err := a.p.MemberStatus(ctx, chatID, identity)
	if err != nil {
		return false, err
	}
	return status.Admin(), nil
}

// VerificationPassed implements services.EnforcementNotifier.
func (b *Bot) VerificationPassed(ctx context.Context, chatID, identity int64, name string) {
	b.send(ctx, chatID, nameVerifiedText(Mention(name, identity)))
}

// MemberRemoved implements services.EnforcementNotifier.
func (b *Bot) MemberRemoved(ctx context.Context, chatID, identity int64, name string) {
	b.send(ctx, chatID, removedText(Mention(name, identity)))
}
