// Package sheet implements the sheet synthesis and caching engine.
//
// Players post free-text character sheets as chat messages. The engine
// derives schema-validated records from that text through an external text
// generator, detects source edits by content hash, memoizes derived records
// in-process, and persists them on the owning character.
//
// Each derivable record type implements the Kind capability; StatBlockKind
// and SpellSheetKind are the two shipped kinds. Kinds are structurally
// different (scalar record vs. named collection), so the capability never
// assumes a flat schema.
package sheet

import (
	"errors"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
)

var (
	// ErrNotConfigured indicates the character has no source message for
	// the kind yet. Callers branch on this to show a setup hint rather
	// than an error.
	ErrNotConfigured = errors.New("sheet source message not configured")

	// ErrSourceMissing indicates the referenced source message no longer
	// exists on the chat platform.
	ErrSourceMissing = errors.New("sheet source message missing")

	// ErrSchemaMismatch indicates generator output parsed as JSON but
	// failed kind-specific extraction. It is terminal for a synthesis
	// call: the schema is unsatisfiable for this input, not flaky.
	ErrSchemaMismatch = errors.New("generator output does not match sheet schema")

	// ErrExhausted indicates the generator never produced parseable JSON
	// within the retry budget.
	ErrExhausted = errors.New("generator retries exhausted")

	// ErrStore indicates a persistence write failed. The in-memory cache
	// entry is still updated; memory and store may diverge until the next
	// successful write.
	ErrStore = errors.New("sheet store write failed")
)

// Record is a typed, schema-validated projection derived from generator
// output.
type Record interface {
	// SheetKind names the kind the record was derived under.
	SheetKind() string
}

// Kind is the capability every derivable record type implements.
type Kind[R Record] interface {
	// Name returns the storage-level kind name.
	Name() string

	// SchemaVersion versions the schema prompt and the persisted blob.
	// Persisted blocks from older versions are re-derived lazily.
	SchemaVersion() int

	// SchemaPrompt is the system instruction describing the exact JSON
	// shape the generator must produce.
	SchemaPrompt() string

	// Decode extracts typed fields from generator JSON. Absent or
	// malformed optional fields resolve to defaults; a core shape
	// mismatch returns an error wrapping ErrSchemaMismatch.
	Decode(raw []byte) (R, error)

	// SourceRef returns the chat message backing this kind, or an error
	// wrapping ErrNotConfigured when the character has none.
	SourceRef(c character.Character) (chat.MessageRef, error)

	// PreviousBlock reads the last-persisted state for this kind.
	PreviousBlock(c character.Character) (character.Block, bool)
}

// SheetInfo captures one synthesis attempt before it is folded into the
// cache and the persistent store.
type SheetInfo[R Record] struct {
	RawText  string
	JSONText string
	Hash     string
	Record   R

	// Dirty signals the derived record must be written back to the store.
	Dirty bool
}

// Block builds the persistable unit for a synthesis result.
func (i SheetInfo[R]) Block(version int) character.Block {
	return character.Block{JSON: i.JSONText, Hash: i.Hash, SchemaVersion: version}
}
