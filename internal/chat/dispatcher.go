// Package chat – Dispatcher
//
// The Dispatcher routes incoming Updates to registered handlers: commands by
// name, callbacks by data prefix, join events, and plain text. Routing rules
// are registered once at wiring time; Run then consumes the update stream
// until its context is done.
package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Handler processes one update.
type Handler func(ctx context.Context, u Update)

// Dispatcher routes updates to handlers.
type Dispatcher struct {
	log       zerolog.Logger
	commands  map[string]Handler
	callbacks map[string]Handler // keyed by data prefix
	onJoin    Handler
	onText    Handler
}

// NewDispatcher constructs an empty Dispatcher.
func NewDispatcher(log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log:       log.With().Str("component", "dispatcher").Logger(),
		commands:  make(map[string]Handler),
		callbacks: make(map[string]Handler),
	}
}

// OnCommand routes /name to h. The name is registered without the slash.
func (d *Dispatcher) OnCommand(name string, h Handler) {
	d.commands[name] = h
}

// OnCallback routes button presses whose data starts with prefix to h.
func (d *Dispatcher) OnCallback(prefix string, h Handler) {
	d.callbacks[prefix] = h
}

// OnJoin routes membership events to h.
func (d *Dispatcher) OnJoin(h Handler) {
	d.onJoin = h
}

// OnText routes plain messages to h. Used for reply flows such as payment
// references.
func (d *Dispatcher) OnText(h Handler) {
	d.onText = h
}

// Dispatch routes a single update. Unroutable updates are dropped with a
// debug log; a handler panic is contained so one bad update cannot take the
// consumer down.
func (d *Dispatcher) Dispatch(ctx context.Context, u Update) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Int64("chat_id", u.ChatID).Msg("handler panicked")
		}
	}()

	switch {
	case u.Callback != nil:
		for prefix, h := range d.callbacks {
			if strings.HasPrefix(u.Callback.Data, prefix) {
				h(ctx, u)
				return
			}
		}
	case len(u.Joined) > 0:
		if d.onJoin != nil {
			d.onJoin(ctx, u)
			return
		}
	case u.Command != "":
		if h, ok := d.commands[u.Command]; ok {
			h(ctx, u)
			return
		}
	case u.Text != "":
		if d.onText != nil {
			d.onText(ctx, u)
			return
		}
	}
	d.log.Debug().Int64("chat_id", u.ChatID).Str("command", u.Command).Msg("update not routed")
}

// Run consumes updates until ctx is done or the channel closes.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan Update) {
	d.log.Info().Msg("dispatcher running")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatcher stopped")
			return
		case u, ok := <-updates:
			if !ok {
				d.log.Info().Msg("update stream closed")
				return
			}
			d.Dispatch(ctx, u)
		}
	}
}
