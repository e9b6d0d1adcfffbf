// Package chat defines the boundary to the chat platform.
//
// The assistant never talks to a concrete chat service directly; it consumes
// the Client interface. Source-of-truth sheet text, mana readouts, and roll
// announcements all flow through these three operations.
package chat

import (
	"context"
	"errors"
	"strings"
)

// ErrMessageNotFound indicates the referenced message no longer exists,
// typically because it was deleted on the platform.
var ErrMessageNotFound = errors.New("chat message not found")

// ErrEmptyChannelID indicates a channel ID is required.
var ErrEmptyChannelID = errors.New("channel id is required")

// ErrEmptyMessageID indicates a message ID is required.
var ErrEmptyMessageID = errors.New("message id is required")

// MessageRef identifies a message on the chat platform.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// IsZero reports whether the reference is unset.
func (r MessageRef) IsZero() bool {
	return r.ChannelID == "" && r.MessageID == ""
}

// Validate checks both identifiers are present.
func (r MessageRef) Validate() error {
	if strings.TrimSpace(r.ChannelID) == "" {
		return ErrEmptyChannelID
	}
	if strings.TrimSpace(r.MessageID) == "" {
		return ErrEmptyMessageID
	}
	return nil
}

// Message is the platform-agnostic view of a chat message.
type Message struct {
	Ref      MessageRef
	AuthorID string
	Content  string
}

// Client is the chat platform boundary consumed by the assistant.
type Client interface {
	// FetchMessage retrieves a message by reference. Implementations return
	// an error wrapping ErrMessageNotFound when the message was deleted.
	FetchMessage(ctx context.Context, ref MessageRef) (Message, error)

	// EditMessage replaces the content of a message owned by the assistant.
	EditMessage(ctx context.Context, ref MessageRef, content string) error

	// SendMessage posts a new message to a channel and returns its reference.
	SendMessage(ctx context.Context, channelID, content string) (MessageRef, error)
}
