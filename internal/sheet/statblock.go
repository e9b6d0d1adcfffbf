package sheet

import (
	"encoding/json"
	"fmt"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
	"github.com/avelione/grimoire.chat/internal/storage"
)

const statBlockSchemaVersion = 1

// StatBlock is the derived scalar record for a character's stat sheet.
type StatBlock struct {
	Stats      map[string]int
	EnergyPool int

	HP        int
	MaxHP     int
	Armour    int
	MaxArmour int
	Soul      int
	MaxSoul   int
	Hunger    int

	// DefaultRoll is the expression used when a roll command omits one.
	DefaultRoll string

	// ModifierFormula derives a stat's roll modifier; evaluated by the
	// dice package with the stat value bound as a variable.
	ModifierFormula string

	// Growth maps a pool name to the die rolled for it on level-up.
	Growth map[string]string
}

// SheetKind implements Record.
func (*StatBlock) SheetKind() string { return storage.KindStat }

// StatBlockKind is the Kind capability for stat blocks.
var StatBlockKind Kind[*StatBlock] = statBlockKind{}

type statBlockKind struct{}

func (statBlockKind) Name() string { return storage.KindStat }

func (statBlockKind) SchemaVersion() int { return statBlockSchemaVersion }

func (statBlockKind) SchemaPrompt() string {
	return `You convert a tabletop RPG character sheet into JSON. Respond with a single JSON object and nothing else, using exactly this shape:
{
  "stats": {"str": 15, "dex": 12},
  "energy_pool": 20,
  "hp": 20,
  "current_hp": 20,
  "armour": 5,
  "current_armour": 5,
  "soul": 3,
  "current_soul": 3,
  "hunger": 0,
  "default_roll": "1d20+STR",
  "modifier_formula": "(stat - 10) // 2",
  "growth": {"hp": "1d8", "energy_pool": "1d6"}
}
"stats" maps lowercase attribute names to integers. "hp", "armour", and "soul" are maximum values; the matching "current_*" keys are present only when the sheet states a current value. Omit any key the sheet gives no information for. Never wrap the JSON in markdown fences or add commentary.`
}

type statBlockWire struct {
	Stats           json.RawMessage `json:"stats"`
	EnergyPool      json.RawMessage `json:"energy_pool"`
	HP              json.RawMessage `json:"hp"`
	CurrentHP       json.RawMessage `json:"current_hp"`
	Armour          json.RawMessage `json:"armour"`
	CurrentArmour   json.RawMessage `json:"current_armour"`
	Soul            json.RawMessage `json:"soul"`
	CurrentSoul     json.RawMessage `json:"current_soul"`
	Hunger          json.RawMessage `json:"hunger"`
	DefaultRoll     json.RawMessage `json:"default_roll"`
	ModifierFormula json.RawMessage `json:"modifier_formula"`
	Growth          json.RawMessage `json:"growth"`
}

func (statBlockKind) Decode(raw []byte) (*StatBlock, error) {
	var wire statBlockWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: stat block is not a json object: %v", ErrSchemaMismatch, err)
	}

	stats := map[string]int{}
	if len(wire.Stats) > 0 {
		if err := json.Unmarshal(wire.Stats, &stats); err != nil {
			return nil, fmt.Errorf("%w: stats must map names to integers: %v", ErrSchemaMismatch, err)
		}
	}

	block := &StatBlock{
		Stats:           stats,
		EnergyPool:      intOrDefault(wire.EnergyPool, 0),
		MaxHP:           intOrDefault(wire.HP, 0),
		MaxArmour:       intOrDefault(wire.Armour, 0),
		MaxSoul:         intOrDefault(wire.Soul, 0),
		Hunger:          intOrDefault(wire.Hunger, 0),
		DefaultRoll:     stringOrDefault(wire.DefaultRoll, ""),
		ModifierFormula: stringOrDefault(wire.ModifierFormula, ""),
		Growth:          stringMapOrDefault(wire.Growth),
	}

	// Current pool values default to their maximum when the sheet is
	// silent about them.
	block.HP = intOrDefault(wire.CurrentHP, block.MaxHP)
	block.Armour = intOrDefault(wire.CurrentArmour, block.MaxArmour)
	block.Soul = intOrDefault(wire.CurrentSoul, block.MaxSoul)

	return block, nil
}

func (statBlockKind) SourceRef(c character.Character) (chat.MessageRef, error) {
	if c.StatSource.IsZero() {
		return chat.MessageRef{}, fmt.Errorf("stat block: %w", ErrNotConfigured)
	}
	return c.StatSource, nil
}

func (statBlockKind) PreviousBlock(c character.Character) (character.Block, bool) {
	if c.StatBlock.IsZero() {
		return character.Block{}, false
	}
	return c.StatBlock, true
}

func intOrDefault(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 {
		return fallback
	}
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return fallback
		}
		return int(f)
	}
	return value
}

func stringOrDefault(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return fallback
	}
	return value
}

func stringMapOrDefault(raw json.RawMessage) map[string]string {
	out := map[string]string{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]string{}
	}
	return out
}
