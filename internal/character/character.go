// Package character models the assistant's view of a player character.
//
// A character is owned by exactly one user and carries, per derivable sheet
// kind, the last-persisted JSON blob, its content hash, and the reference to
// the chat message that is the source of truth for that kind.
package character

import (
	"errors"
	"strings"
	"time"

	"github.com/avelione/grimoire.chat/internal/chat"
)

var (
	// ErrEmptyID indicates an ID is required.
	ErrEmptyID = errors.New("id is required")
	// ErrEmptyOwnerUserID indicates owner user ID is required.
	ErrEmptyOwnerUserID = errors.New("owner user id is required")
	// ErrEmptyName indicates character name is required.
	ErrEmptyName = errors.New("name is required")
	// ErrNegativeMana indicates a mana value below zero.
	ErrNegativeMana = errors.New("mana must be non-negative")
)

// Block is a persisted derived record: the raw JSON blob, the content hash
// of the source text it was derived from, and the schema version it was
// derived under.
type Block struct {
	JSON          string
	Hash          string
	SchemaVersion int
}

// IsZero reports whether no block has been persisted.
func (b Block) IsZero() bool {
	return b.JSON == "" && b.Hash == ""
}

// Character is the persisted character record.
type Character struct {
	ID          string
	OwnerUserID string
	Name        string
	Level       int

	// Mana is the character's current energy value; the pool maximum comes
	// from the derived stat block.
	Mana int

	StatBlock  Block
	StatSource chat.MessageRef

	SpellBlock  Block
	SpellSource chat.MessageRef

	// ManaReadout points at the assistant-owned message that mirrors the
	// current mana value, when the player has bound one.
	ManaReadout chat.MessageRef

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput captures user-provided fields for creating a character.
type CreateInput struct {
	OwnerUserID string
	Name        string
}

// NormalizeCreateInput validates and canonicalizes create input.
func NormalizeCreateInput(input CreateInput) (CreateInput, error) {
	input.OwnerUserID = strings.TrimSpace(input.OwnerUserID)
	if input.OwnerUserID == "" {
		return CreateInput{}, ErrEmptyOwnerUserID
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateInput{}, ErrEmptyName
	}

	return input, nil
}

// New builds a character from normalized input.
func New(id string, input CreateInput, now time.Time) (Character, error) {
	if strings.TrimSpace(id) == "" {
		return Character{}, ErrEmptyID
	}
	normalized, err := NormalizeCreateInput(input)
	if err != nil {
		return Character{}, err
	}
	return Character{
		ID:          id,
		OwnerUserID: normalized.OwnerUserID,
		Name:        normalized.Name,
		Level:       1,
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}, nil
}

// SetMana replaces the current mana value, clamped to [0, max]. A max of
// zero means the pool size is unknown and only the lower bound applies.
func (c *Character) SetMana(value, max int) error {
	if value < 0 {
		return ErrNegativeMana
	}
	if max > 0 && value > max {
		value = max
	}
	c.Mana = value
	return nil
}
