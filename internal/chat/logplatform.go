package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoDirectory is returned by LogPlatform for member lookups, which need a
// real transport behind them.
var ErrNoDirectory = errors.New("chat: platform has no member directory")

// LogPlatform is a dry-run Platform for local development and smoke tests.
// Outbound actions are logged instead of delivered; message identifiers are
// synthetic and increase monotonically. Member lookups fail with
// ErrNoDirectory, so enforcement cycles fail closed rather than inventing
// members.
type LogPlatform struct {
	Log zerolog.Logger

	mu     sync.Mutex
	nextID int
}

// NewLogPlatform constructs a LogPlatform.
func NewLogPlatform(log zerolog.Logger) *LogPlatform {
	return &LogPlatform{Log: log.With().Str("component", "chat.dryrun").Logger()}
}

func (p *LogPlatform) next() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	return p.nextID
}

// SendMessage logs the text and returns a synthetic message ID.
func (p *LogPlatform) SendMessage(_ context.Context, chatID int64, text string) (int, error) {
	id := p.next()
	p.Log.Info().Int64("chat_id", chatID).Int("message_id", id).Str("text", text).Msg("send")
	return id, nil
}

// SendKeyboard logs the text and button payload and returns a synthetic
// message ID.
func (p *LogPlatform) SendKeyboard(_ context.Context, chatID int64, text string, rows [][]Button) (int, error) {
	id := p.next()
	data := make([]string, 0, len(rows))
	for _, row := range rows {
		for _, b := range row {
			data = append(data, b.Data)
		}
	}
	p.Log.Info().
		Int64("chat_id", chatID).
		Int("message_id", id).
		Str("text", text).
		Strs("buttons", data).
		Msg("send keyboard")
	return id, nil
}

// EditMessage logs the replacement text.
func (p *LogPlatform) EditMessage(_ context.Context, chatID int64, messageID int, text string) error {
	p.Log.Info().Int64("chat_id", chatID).Int("message_id", messageID).Str("text", text).Msg("edit")
	return nil
}

// AnswerCallback logs the acknowledgement.
func (p *LogPlatform) AnswerCallback(_ context.Context, callbackID, text string) error {
	p.Log.Info().Str("callback_id", callbackID).Str("text", text).Msg("answer callback")
	return nil
}

// MemberName fails with ErrNoDirectory.
func (p *LogPlatform) MemberName(_ context.Context, chatID, identity int64) (string, error) {
	return "", ErrNoDirectory
}

// MemberStatus fails with ErrNoDirectory.
func (p *LogPlatform) MemberStatus(_ context.Context, chatID, identity int64) (MemberStatus, error) {
	return "", ErrNoDirectory
}

// Ban logs the removal.
func (p *LogPlatform) Ban(_ context.Context, chatID, identity int64) error {
	p.Log.Warn().Int64("chat_id", chatID).Int64("identity", identity).Msg("ban")
	return nil
}

// Unban logs the reinstatement.
func (p *LogPlatform) Unban(_ context.Context, chatID, identity int64) error {
	p.Log.Warn().Int64("chat_id", chatID).Int64("identity", identity).Msg("unban")
	return nil
}
