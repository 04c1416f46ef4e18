// Package bot – attendance handlers
//
// /start_attendance opens a session and posts the prompt carrying the mark
// and end buttons; the callbacks route here until an admin closes the
// session, at which point the prompt is edited into the final count.
package bot

import (
	"context"
	"errors"

	"github.com/docsanddecks/attendance-bot/internal/chat"
	"github.com/docsanddecks/attendance-bot/internal/services"
)

const (
	callbackPresent       = "present"
	callbackEndAttendance = "end_attendance"
)

func (b *Bot) handleStartAttendance(ctx context.Context, u chat.Update) {
	sess, err := b.Attendance.Start(ctx, u.ChatID, u.From.Identity)
	switch {
	case errors.Is(err, services.ErrAdminOnly):
		b.send(ctx, u.ChatID, adminOnlyText)
		return
	case errors.Is(err, services.ErrSessionOpen):
		b.send(ctx, u.ChatID, sessionOpenText)
		return
	case err != nil:
		b.Log.Error().Err(err).Int64("chat_id", u.ChatID).Msg("start attendance failed")
		return
	}

	keyboard := [][]chat.Button{
		{{Text: "Present", Data: callbackPresent}},
		{{Text: "End Attendance (Admin only)", Data: callbackEndAttendance}},
	}
	msgID, err := b.Platform.SendKeyboard(ctx, u.ChatID, attendancePrompt, keyboard)
	if err != nil {
		b.Log.Warn().Err(err).Int64("chat_id", u.ChatID).Msg("attendance prompt failed")
		return
	}
	b.Attendance.SetMessage(u.ChatID, msgID)
	b.Log.Info().Int64("chat_id", u.ChatID).Int("column", sess.Column).Msg("attendance session opened")
}

// handlePresent marks the pressing member present. All outcomes are
// answered privately on the callback, never into the chat.
func (b *Bot) handlePresent(ctx context.Context, u chat.Update) {
	position, err := b.Attendance.Mark(ctx, u.ChatID, u.From.Identity)

	var text string
	switch {
	case err == nil:
		text = markedText(position, b.Attendance.MarkValue)
	case errors.Is(err, services.ErrAlreadyMarked):
		text = alreadyMarkedText
	case errors.Is(err, services.ErrNotLinked):
		text = notLinkedMarkText
	case errors.Is(err, services.ErrNoSession):
		// Stale button from a closed session; just acknowledge.
		text = ""
	default:
		b.Log.Error().Err(err).Int64("member_id", u.From.Identity).Msg("mark attendance failed")
		text = notLinkedMarkText
	}
	if err := b.Platform.AnswerCallback(ctx, u.Callback.ID, text); err != nil {
		b.Log.Warn().Err(err).Msg("answer callback failed")
	}
}

// handleEndAttendance closes the session and replaces the prompt with the
// final count.
func (b *Bot) handleEndAttendance(ctx context.Context, u chat.Update) {
	sess, open := b.Attendance.Session(u.ChatID)

	count, err := b.Attendance.End(ctx, u.ChatID, u.From.Identity)
	switch {
	case errors.Is(err, services.ErrAdminOnly):
		if aerr := b.Platform.AnswerCallback(ctx, u.Callback.ID, adminOnlyText); aerr != nil {
			b.Log.Warn().Err(aerr).Msg("answer callback failed")
		}
		return
	case errors.Is(err, services.ErrNoSession):
		if aerr := b.Platform.AnswerCallback(ctx, u.Callback.ID, ""); aerr != nil {
			b.Log.Warn().Err(aerr).Msg("answer callback failed")
		}
		return
	case err != nil:
		b.Log.Error().Err(err).Int64("chat_id", u.ChatID).Msg("end attendance failed")
		return
	}

	if aerr := b.Platform.AnswerCallback(ctx, u.Callback.ID, ""); aerr != nil {
		b.Log.Warn().Err(aerr).Msg("answer callback failed")
	}
	if open && sess.MessageID != 0 {
		if eerr := b.Platform.EditMessage(ctx, u.ChatID, sess.MessageID, attendanceOverText(count)); eerr != nil {
			b.Log.Warn().Err(eerr).Int64("chat_id", u.ChatID).Msg("edit prompt failed")
		}
		return
	}
	b.send(ctx, u.ChatID, attendanceOverText(count))
}
