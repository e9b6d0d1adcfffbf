// Package storage defines the persistence interfaces for the assistant.
//
// It provides a high-level abstraction for storing character records, their
// derived sheet blocks, and per-user character selection. Implementations of
// these interfaces (e.g., using SQLite) live in subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrUnknownKind indicates a sheet kind the store has no columns for.
var ErrUnknownKind = errors.New("unknown sheet kind")

// Sheet kind names understood by character stores.
const (
	KindStat  = "stat_block"
	KindSpell = "spell_sheet"
)

// CharacterStore persists character records.
type CharacterStore interface {
	// PutCharacter inserts or replaces a character record.
	PutCharacter(ctx context.Context, c character.Character) error

	// GetCharacter retrieves a character by id.
	GetCharacter(ctx context.Context, id string) (character.Character, error)

	// CharactersByOwner lists all characters owned by a user.
	CharactersByOwner(ctx context.Context, ownerUserID string) ([]character.Character, error)

	// SelectCharacter marks a character as the owner's active character.
	SelectCharacter(ctx context.Context, ownerUserID, characterID string) error

	// SelectedCharacter returns the owner's active character.
	SelectedCharacter(ctx context.Context, ownerUserID string) (character.Character, error)

	// SaveBlock persists a derived sheet block for one kind.
	SaveBlock(ctx context.Context, characterID, kind string, block character.Block) error

	// SetSource records the chat message that backs one sheet kind.
	SetSource(ctx context.Context, characterID, kind string, ref chat.MessageRef) error

	// SetMana updates the character's current mana value.
	SetMana(ctx context.Context, characterID string, mana int) error

	// BindManaReadout records the assistant-owned mana readout message.
	BindManaReadout(ctx context.Context, characterID string, ref chat.MessageRef) error
}
