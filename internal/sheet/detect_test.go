package sheet

import (
	"context"
	"errors"
	"testing"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
)

func TestChangeDetectorNotConfigured(t *testing.T) {
	detector := NewChangeDetector(StatBlockKind, newFakeChat())

	_, _, err := detector.Changed(context.Background(), character.Character{ID: "c1"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Changed error = %v, want ErrNotConfigured", err)
	}
}

func TestChangeDetectorSourceMissing(t *testing.T) {
	detector := NewChangeDetector(StatBlockKind, newFakeChat())

	c := character.Character{
		ID:         "c1",
		StatSource: chat.MessageRef{ChannelID: "chan", MessageID: "gone"},
	}
	_, _, err := detector.Changed(context.Background(), c)
	if !errors.Is(err, ErrSourceMissing) {
		t.Fatalf("Changed error = %v, want ErrSourceMissing", err)
	}
}

func TestChangeDetectorNoPreviousBlock(t *testing.T) {
	client := newFakeChat()
	client.setMessage("m1", "STR 15")
	detector := NewChangeDetector(StatBlockKind, client)

	c := character.Character{
		ID:         "c1",
		StatSource: chat.MessageRef{ChannelID: "chan", MessageID: "m1"},
	}
	changed, msg, err := detector.Changed(context.Background(), c)
	if err != nil {
		t.Fatalf("Changed: %v", err)
	}
	if !changed {
		t.Error("character without previous block should report changed")
	}
	if msg.Content != "STR 15" {
		t.Errorf("message content = %q", msg.Content)
	}
}

func TestChangeDetectorUnchanged(t *testing.T) {
	client := newFakeChat()
	client.setMessage("m1", "STR 15")
	detector := NewChangeDetector(StatBlockKind, client)

	c := character.Character{
		ID:         "c1",
		StatSource: chat.MessageRef{ChannelID: "chan", MessageID: "m1"},
		StatBlock:  character.Block{JSON: `{}`, Hash: Hash("STR 15"), SchemaVersion: 1},
	}
	changed, _, err := detector.Changed(context.Background(), c)
	if err != nil {
		t.Fatalf("Changed: %v", err)
	}
	if changed {
		t.Error("identical content should report unchanged")
	}
}

func TestChangeDetectorNormalizedWhitespaceUnchanged(t *testing.T) {
	client := newFakeChat()
	client.setMessage("m1", "STR 15\r\nDEX 12  ")
	detector := NewChangeDetector(StatBlockKind, client)

	c := character.Character{
		ID:         "c1",
		StatSource: chat.MessageRef{ChannelID: "chan", MessageID: "m1"},
		StatBlock:  character.Block{JSON: `{}`, Hash: Hash("STR 15\nDEX 12"), SchemaVersion: 1},
	}
	changed, _, err := detector.Changed(context.Background(), c)
	if err != nil {
		t.Fatalf("Changed: %v", err)
	}
	if changed {
		t.Error("line ending and trailing space differences should not count as edits")
	}
}

func TestChangeDetectorEditDetected(t *testing.T) {
	client := newFakeChat()
	client.setMessage("m1", "STR 16")
	detector := NewChangeDetector(StatBlockKind, client)

	c := character.Character{
		ID:         "c1",
		StatSource: chat.MessageRef{ChannelID: "chan", MessageID: "m1"},
		StatBlock:  character.Block{JSON: `{}`, Hash: Hash("STR 15"), SchemaVersion: 1},
	}
	changed, msg, err := detector.Changed(context.Background(), c)
	if err != nil {
		t.Fatalf("Changed: %v", err)
	}
	if !changed {
		t.Error("edited content should report changed")
	}
	if msg.Content != "STR 16" {
		t.Errorf("message content = %q", msg.Content)
	}
}
