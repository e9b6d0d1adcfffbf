// Package mana tracks character mana pools and mirrors them to a pinned
// chat readout message.
package mana

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
)

// ErrInsufficientMana indicates a spend larger than the current pool.
var ErrInsufficientMana = errors.New("not enough mana")

// ErrInvalidAmount indicates a negative spend or restore amount.
var ErrInvalidAmount = errors.New("amount must be non-negative")

// Store persists mana changes for the tracker.
type Store interface {
	SetMana(ctx context.Context, characterID string, mana int) error
	BindManaReadout(ctx context.Context, characterID string, ref chat.MessageRef) error
}

// Tracker applies mana changes and keeps the chat readout in sync.
//
// Every change is clamped to [0, max] before it is persisted. When the
// character has a bound readout message the tracker edits it in place;
// a character without one is not an error, and a failed edit never rolls
// back the persisted change.
type Tracker struct {
	store  Store
	client chat.Client
}

// NewTracker builds a tracker over a store and a chat client.
func NewTracker(store Store, client chat.Client) *Tracker {
	return &Tracker{store: store, client: client}
}

// Set overwrites the character's current mana, clamped to [0, max].
// It returns the value actually persisted.
func (t *Tracker) Set(ctx context.Context, c character.Character, value, max int) (int, error) {
	return t.apply(ctx, c, clamp(value, max), max)
}

// Spend removes cost from the pool. Spending more than the current pool
// fails with ErrInsufficientMana and changes nothing.
func (t *Tracker) Spend(ctx context.Context, c character.Character, cost, max int) (int, error) {
	if cost < 0 {
		return 0, fmt.Errorf("spend %d: %w", cost, ErrInvalidAmount)
	}
	if cost > c.Mana {
		return 0, fmt.Errorf("spend %d with %d available: %w", cost, c.Mana, ErrInsufficientMana)
	}
	return t.apply(ctx, c, clamp(c.Mana-cost, max), max)
}

// Restore adds amount to the pool, clamped to max.
func (t *Tracker) Restore(ctx context.Context, c character.Character, amount, max int) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("restore %d: %w", amount, ErrInvalidAmount)
	}
	return t.apply(ctx, c, clamp(c.Mana+amount, max), max)
}

// BindReadout posts a fresh readout message to the channel and records it
// as the character's mana readout.
func (t *Tracker) BindReadout(ctx context.Context, c character.Character, channelID string, max int) (chat.MessageRef, error) {
	ref, err := t.client.SendMessage(ctx, channelID, FormatReadout(c.Name, c.Mana, max))
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("send mana readout: %w", err)
	}
	if err := t.store.BindManaReadout(ctx, c.ID, ref); err != nil {
		return chat.MessageRef{}, fmt.Errorf("bind mana readout: %w", err)
	}
	return ref, nil
}

// FormatReadout renders the readout message body.
func FormatReadout(name string, current, max int) string {
	return fmt.Sprintf("%s | Mana: %d/%d", name, current, max)
}

func (t *Tracker) apply(ctx context.Context, c character.Character, value, max int) (int, error) {
	if err := t.store.SetMana(ctx, c.ID, value); err != nil {
		return 0, fmt.Errorf("set mana for %s: %w", c.ID, err)
	}

	if !c.ManaReadout.IsZero() {
		if err := t.client.EditMessage(ctx, c.ManaReadout, FormatReadout(c.Name, value, max)); err != nil {
			log.Printf("edit mana readout for %s: %v", c.ID, err)
		}
	}
	return value, nil
}

// clamp bounds value to [0, max]. A max of zero means the pool size is
// unknown and only the lower bound applies.
func clamp(value, max int) int {
	if value < 0 {
		return 0
	}
	if max > 0 && value > max {
		return max
	}
	return value
}
