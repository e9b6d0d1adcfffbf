package sheet

import (
	"errors"
	"testing"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
)

func TestParseSpellType(t *testing.T) {
	cases := []struct {
		in   string
		want SpellType
	}{
		{"single", SpellSingle},
		{"toggle", SpellToggle},
		{"summon", SpellSummon},
		{"SINGLE", SpellSingle},
		{" Toggle ", SpellToggle},
		{"", SpellUnknown},
		{"ritual", SpellUnknown},
	}
	for _, tc := range cases {
		if got := ParseSpellType(tc.in); got != tc.want {
			t.Errorf("ParseSpellType(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSpellSheetDecode(t *testing.T) {
	raw := []byte(`{
		"spells": {
			"Fireball": {"cost": 5, "cast_time": "1 action", "type": "single"},
			"Mage Armour": {"cost": 2, "cast_time": "1 minute", "type": "toggle"},
			"Familiar": {"cost": 10, "type": "summon"},
			"Glimmer": {}
		}
	}`)

	sheet, err := SpellSheetKind.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(sheet.Spells) != 4 {
		t.Fatalf("got %d spells, want 4", len(sheet.Spells))
	}

	fireball := sheet.Spells["Fireball"]
	if fireball.Cost != 5 || fireball.CastTime != "1 action" || fireball.Type != SpellSingle {
		t.Errorf("Fireball = %+v", fireball)
	}
	if sheet.Spells["Familiar"].CastTime != "" {
		t.Errorf("Familiar cast time should default empty")
	}
	if sheet.Spells["Glimmer"].Type != SpellUnknown {
		t.Errorf("Glimmer type = %q, want unknown", sheet.Spells["Glimmer"].Type)
	}
}

func TestSpellSheetDecodeSkipsBlankNames(t *testing.T) {
	sheet, err := SpellSheetKind.Decode([]byte(`{"spells": {"  ": {"cost": 1}, "Spark": {"cost": 1}}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(sheet.Spells) != 1 {
		t.Fatalf("got %d spells, want 1", len(sheet.Spells))
	}
}

func TestSpellSheetDecodeSchemaMismatch(t *testing.T) {
	if _, err := SpellSheetKind.Decode([]byte(`["Fireball"]`)); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("Decode error = %v, want ErrSchemaMismatch", err)
	}
}

func TestSpellSheetLookupCaseInsensitive(t *testing.T) {
	sheet := &SpellSheet{Spells: map[string]Spell{
		"Fireball": {Cost: 5, Type: SpellSingle},
	}}

	if _, ok := sheet.Spell("Fireball"); !ok {
		t.Fatal("exact name should match")
	}
	spell, ok := sheet.Spell("fireball")
	if !ok {
		t.Fatal("case-insensitive name should match")
	}
	if spell.Cost != 5 {
		t.Errorf("Cost = %d, want 5", spell.Cost)
	}
	if _, ok := sheet.Spell("Icicle"); ok {
		t.Fatal("unknown name should not match")
	}
}

func TestSpellSheetKindSourceRef(t *testing.T) {
	var c character.Character
	if _, err := SpellSheetKind.SourceRef(c); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("SourceRef without source error = %v, want ErrNotConfigured", err)
	}

	c.SpellSource = chat.MessageRef{ChannelID: "chan", MessageID: "msg"}
	ref, err := SpellSheetKind.SourceRef(c)
	if err != nil {
		t.Fatalf("SourceRef: %v", err)
	}
	if ref != c.SpellSource {
		t.Errorf("SourceRef = %+v, want %+v", ref, c.SpellSource)
	}
}
