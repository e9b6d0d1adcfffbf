package sheet

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
	"github.com/avelione/grimoire.chat/internal/storage"
)

const spellSheetSchemaVersion = 1

// SpellType tags how a spell is activated.
type SpellType string

const (
	SpellSingle  SpellType = "single"
	SpellToggle  SpellType = "toggle"
	SpellSummon  SpellType = "summon"
	SpellUnknown SpellType = "unknown"
)

// ParseSpellType maps a free-form type tag to a SpellType. Unrecognized
// tags map to SpellUnknown, never to an error.
func ParseSpellType(value string) SpellType {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "single":
		return SpellSingle
	case "toggle":
		return SpellToggle
	case "summon":
		return SpellSummon
	default:
		return SpellUnknown
	}
}

// Spell is one named entry on a spell sheet.
type Spell struct {
	Cost     int
	CastTime string
	Type     SpellType
}

// SpellSheet is the derived collection record for a character's spells.
type SpellSheet struct {
	Spells map[string]Spell
}

// SheetKind implements Record.
func (*SpellSheet) SheetKind() string { return storage.KindSpell }

// Spell returns the named spell, matching case-insensitively.
func (s *SpellSheet) Spell(name string) (Spell, bool) {
	if spell, ok := s.Spells[name]; ok {
		return spell, true
	}
	for candidate, spell := range s.Spells {
		if strings.EqualFold(candidate, name) {
			return spell, true
		}
	}
	return Spell{}, false
}

// SpellSheetKind is the Kind capability for spell sheets.
var SpellSheetKind Kind[*SpellSheet] = spellSheetKind{}

type spellSheetKind struct{}

func (spellSheetKind) Name() string { return storage.KindSpell }

func (spellSheetKind) SchemaVersion() int { return spellSheetSchemaVersion }

func (spellSheetKind) SchemaPrompt() string {
	return `You convert a tabletop RPG spell list into JSON. Respond with a single JSON object and nothing else, using exactly this shape:
{
  "spells": {
    "Fireball": {"cost": 5, "cast_time": "1 action", "type": "single"},
    "Mage Armour": {"cost": 2, "cast_time": "1 minute", "type": "toggle"}
  }
}
"spells" maps each spell name to an object. "cost" is the integer mana cost. "cast_time" is the casting time verbatim from the list. "type" is one of "single", "toggle", or "summon"; use "unknown" when the list does not say. Never wrap the JSON in markdown fences or add commentary.`
}

type spellWire struct {
	Cost     json.RawMessage `json:"cost"`
	CastTime json.RawMessage `json:"cast_time"`
	Type     json.RawMessage `json:"type"`
}

func (spellSheetKind) Decode(raw []byte) (*SpellSheet, error) {
	var wire struct {
		Spells map[string]spellWire `json:"spells"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: spell sheet is not a json object: %v", ErrSchemaMismatch, err)
	}

	spells := make(map[string]Spell, len(wire.Spells))
	for name, entry := range wire.Spells {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		spells[name] = Spell{
			Cost:     intOrDefault(entry.Cost, 0),
			CastTime: stringOrDefault(entry.CastTime, ""),
			Type:     ParseSpellType(stringOrDefault(entry.Type, "")),
		}
	}
	return &SpellSheet{Spells: spells}, nil
}

func (spellSheetKind) SourceRef(c character.Character) (chat.MessageRef, error) {
	if c.SpellSource.IsZero() {
		return chat.MessageRef{}, fmt.Errorf("spell sheet: %w", ErrNotConfigured)
	}
	return c.SpellSource, nil
}

func (spellSheetKind) PreviousBlock(c character.Character) (character.Block, bool) {
	if c.SpellBlock.IsZero() {
		return character.Block{}, false
	}
	return c.SpellBlock, true
}
