// Package bot – catalog and score handlers
package bot

import (
	"context"
	"errors"

	"github.com/docsanddecks/attendance-bot/internal/chat"
	"github.com/docsanddecks/attendance-bot/internal/services"
)

func (b *Bot) handleResources(ctx context.Context, u chat.Update) {
	rows, err := b.Catalog.Resources(ctx)
	if err != nil {
		b.Log.Error().Err(err).Msg("resources lookup failed")
		b.send(ctx, u.ChatID, "⚠️ Error fetching resources.")
		return
	}
	for _, block := range formatResources(rows) {
		b.send(ctx, u.ChatID, block)
	}
}

func (b *Bot) handleRecordings(ctx context.Context, u chat.Update) {
	rows, err := b.Catalog.Recordings(ctx)
	if err != nil {
		b.Log.Error().Err(err).Msg("recordings lookup failed")
		b.send(ctx, u.ChatID, "⚠️ Error fetching session recordings.")
		return
	}
	for _, block := range formatRecordings(rows) {
		b.send(ctx, u.ChatID, block)
	}
}

// handleAssignments lists assignments; linked members see their score per
// assignment, everyone else a hint to run /validate_me.
func (b *Bot) handleAssignments(ctx context.Context, u chat.Update) {
	rows, err := b.Catalog.Assignments(ctx)
	if err != nil {
		b.Log.Error().Err(err).Msg("assignments lookup failed")
		b.send(ctx, u.ChatID, "⚠️ Error retrieving assignments.")
		return
	}

	// An unlinked caller (or one without a roster email) gets the listing
	// without scores.
	var lookup func(sheet string) (string, bool)
	if _, err := b.Scores.MemberEmail(ctx, u.From.Identity); err == nil {
		lookup = func(sheet string) (string, bool) {
			score, err := b.Scores.AssignmentScore(ctx, u.From.Identity, sheet)
			if err != nil {
				return "", false
			}
			return score, true
		}
	}

	for _, block := range formatAssignments(rows, lookup) {
		b.send(ctx, u.ChatID, block)
	}
}

func (b *Bot) handleMyScore(ctx context.Context, u chat.Update) {
	rec, err := b.Scores.Overall(ctx, u.From.Identity)
	switch {
	case errors.Is(err, services.ErrNotLinked):
		b.send(ctx, u.ChatID, scoreNotLinkedText)
		return
	case errors.Is(err, services.ErrNoEmail):
		b.send(ctx, u.ChatID, scoreNoEmailText)
		return
	case errors.Is(err, services.ErrNoScore):
		b.send(ctx, u.ChatID, scoreNoDataText)
		return
	case err != nil:
		b.Log.Error().Err(err).Int64("member_id", u.From.Identity).Msg("overall score lookup failed")
		b.send(ctx, u.ChatID, scoreNoDataText)
		return
	}
	b.send(ctx, u.ChatID, formatOverallScore(rec))
}
