package sheet

import (
	"context"
	"fmt"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/storage"
)

// Bridge is the thin adapter between the cache and the persistent store.
type Bridge struct {
	store storage.CharacterStore
}

// NewBridge wraps a character store.
func NewBridge(store storage.CharacterStore) *Bridge {
	return &Bridge{store: store}
}

// Load reads the last-persisted block for a kind. Blocks derived under an
// older schema version are treated as absent so they are re-derived lazily.
func Load[R Record](kind Kind[R], c character.Character) (character.Block, bool) {
	block, ok := kind.PreviousBlock(c)
	if !ok {
		return character.Block{}, false
	}
	if block.SchemaVersion != kind.SchemaVersion() {
		return character.Block{}, false
	}
	return block, true
}

// Save writes a derived block onto the character record. Failures wrap
// ErrStore so callers can treat them as non-fatal.
func (b *Bridge) Save(ctx context.Context, characterID, kindName string, block character.Block) error {
	if err := b.store.SaveBlock(ctx, characterID, kindName, block); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}
