// Package chat abstracts the group-chat platform the bot lives on. The bot
// and services speak only these types; the concrete transport (long polling,
// webhooks, a vendor SDK) plugs in behind the Platform interface and feeds
// Updates into the Dispatcher.
package chat

import "context"

// MemberStatus is the platform's notion of a member's standing in a chat.
type MemberStatus string

const (
	StatusMember  MemberStatus = "member"
	StatusAdmin   MemberStatus = "administrator"
	StatusCreator MemberStatus = "creator"
	StatusLeft    MemberStatus = "left"
	StatusBanned  MemberStatus = "banned"
)

// Admin reports whether the status can operate session controls.
func (s MemberStatus) Admin() bool {
	return s == StatusAdmin || s == StatusCreator
}

// Member is a chat member as the platform reports one.
type Member struct {
	Identity    int64        `json:"identity"`
	DisplayName string       `json:"display_name"`
	Status      MemberStatus `json:"status,omitempty"`
}

// Button is one inline keyboard button. Data is the opaque payload echoed
// back in the callback when the button is pressed.
type Button struct {
	Text string `json:"text"`
	Data string `json:"data"`
}

// Callback is a pressed inline button.
type Callback struct {
	ID        string `json:"id"`
	Data      string `json:"data"`
	MessageID int    `json:"message_id"`
}

// Update is one incoming chat event. Exactly one of the event fields is
// meaningful: Command for slash commands, Joined for membership events,
// Callback for button presses, and plain Text otherwise.
type Update struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int    `json:"message_id"`
	From      Member `json:"from"`

	Command  string    `json:"command,omitempty"` // command name without the leading slash
	Args     string    `json:"args,omitempty"`    // remainder of the command line, trimmed
	Text     string    `json:"text,omitempty"`
	Joined   []Member  `json:"joined,omitempty"`
	Callback *Callback `json:"callback,omitempty"`
}

// Platform is the outbound surface of the chat platform.
type Platform interface {
	// SendMessage posts text to a chat and returns the message identifier.
	SendMessage(ctx context.Context, chatID int64, text string) (int, error)

	// SendKeyboard posts text with inline buttons, one row per slice.
	SendKeyboard(ctx context.Context, chatID int64, text string, rows [][]Button) (int, error)

	// EditMessage replaces the text of an existing message, dropping any
	// keyboard it carried.
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error

	// AnswerCallback acknowledges a button press, optionally with a notice
	// shown only to the pressing member.
	AnswerCallback(ctx context.Context, callbackID, text string) error

	// MemberName returns the current display name of a chat member.
	MemberName(ctx context.Context, chatID, identity int64) (string, error)

	// MemberStatus returns a member's standing in the chat.
	MemberStatus(ctx context.Context, chatID, identity int64) (MemberStatus, error)

	// Ban removes a member from a chat and keeps them out.
	Ban(ctx context.Context, chatID, identity int64) error

	// Unban lifts a removal so the member can rejoin.
	Unban(ctx context.Context, chatID, identity int64) error
}
