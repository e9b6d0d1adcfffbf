package sheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
)

// ChangeDetector decides whether a kind's source message changed since the
// last persisted derivation. It never mutates state.
type ChangeDetector[R Record] struct {
	kind   Kind[R]
	client chat.Client
}

// NewChangeDetector builds a detector for one kind.
func NewChangeDetector[R Record](kind Kind[R], client chat.Client) *ChangeDetector[R] {
	return &ChangeDetector[R]{kind: kind, client: client}
}

// Changed fetches the current source message and compares its content hash
// against the last-persisted hash on the character.
//
// A character with no previous block reports changed. A deleted source
// message fails with ErrSourceMissing; callers must surface that as a
// user-actionable error, never fall back silently to stale data.
func (d *ChangeDetector[R]) Changed(ctx context.Context, c character.Character) (bool, chat.Message, error) {
	ref, err := d.kind.SourceRef(c)
	if err != nil {
		return false, chat.Message{}, err
	}

	msg, err := d.client.FetchMessage(ctx, ref)
	if err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return false, chat.Message{}, fmt.Errorf("%s %s/%s: %w", d.kind.Name(), ref.ChannelID, ref.MessageID, ErrSourceMissing)
		}
		return false, chat.Message{}, fmt.Errorf("fetch %s source: %w", d.kind.Name(), err)
	}

	previous, ok := d.kind.PreviousBlock(c)
	if !ok {
		return true, msg, nil
	}
	return Hash(msg.Content) != previous.Hash, msg, nil
}
