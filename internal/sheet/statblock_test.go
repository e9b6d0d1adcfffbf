package sheet

import (
	"errors"
	"testing"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
	"github.com/avelione/grimoire.chat/internal/storage"
)

func TestStatBlockDecode(t *testing.T) {
	raw := []byte(`{
		"stats": {"str": 15, "dex": 12},
		"energy_pool": 20,
		"hp": 24,
		"current_hp": 18,
		"armour": 5,
		"soul": 3,
		"hunger": 1,
		"default_roll": "1d20+STR",
		"modifier_formula": "(stat - 10) // 2",
		"growth": {"hp": "1d8"}
	}`)

	block, err := StatBlockKind.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if block.Stats["str"] != 15 {
		t.Errorf("Stats[str] = %d, want 15", block.Stats["str"])
	}
	if block.Stats["dex"] != 12 {
		t.Errorf("Stats[dex] = %d, want 12", block.Stats["dex"])
	}
	if block.EnergyPool != 20 {
		t.Errorf("EnergyPool = %d, want 20", block.EnergyPool)
	}
	if block.MaxHP != 24 || block.HP != 18 {
		t.Errorf("HP = %d/%d, want 18/24", block.HP, block.MaxHP)
	}
	if block.MaxArmour != 5 || block.Armour != 5 {
		t.Errorf("Armour = %d/%d, want 5/5", block.Armour, block.MaxArmour)
	}
	if block.MaxSoul != 3 || block.Soul != 3 {
		t.Errorf("Soul = %d/%d, want 3/3", block.Soul, block.MaxSoul)
	}
	if block.Hunger != 1 {
		t.Errorf("Hunger = %d, want 1", block.Hunger)
	}
	if block.DefaultRoll != "1d20+STR" {
		t.Errorf("DefaultRoll = %q", block.DefaultRoll)
	}
	if block.ModifierFormula != "(stat - 10) // 2" {
		t.Errorf("ModifierFormula = %q", block.ModifierFormula)
	}
	if block.Growth["hp"] != "1d8" {
		t.Errorf("Growth[hp] = %q, want 1d8", block.Growth["hp"])
	}
}

func TestStatBlockDecodeCurrentDefaultsToMax(t *testing.T) {
	block, err := StatBlockKind.Decode([]byte(`{"stats":{"str":15},"hp":20,"current_hp":20}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if block.Stats["str"] != 15 {
		t.Errorf("Stats[str] = %d, want 15", block.Stats["str"])
	}
	if block.MaxHP != 20 {
		t.Errorf("MaxHP = %d, want 20", block.MaxHP)
	}
	if block.HP != 20 {
		t.Errorf("HP = %d, want 20", block.HP)
	}
	if block.Armour != 0 || block.Soul != 0 {
		t.Errorf("absent pools should be zero, got armour %d soul %d", block.Armour, block.Soul)
	}
}

func TestStatBlockDecodeAbsentKeys(t *testing.T) {
	block, err := StatBlockKind.Decode([]byte(`{}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if block.Stats == nil || len(block.Stats) != 0 {
		t.Errorf("Stats = %v, want empty non-nil map", block.Stats)
	}
	if block.Growth == nil || len(block.Growth) != 0 {
		t.Errorf("Growth = %v, want empty non-nil map", block.Growth)
	}
	if block.DefaultRoll != "" {
		t.Errorf("DefaultRoll = %q, want empty", block.DefaultRoll)
	}
}

func TestStatBlockDecodeFloatValues(t *testing.T) {
	block, err := StatBlockKind.Decode([]byte(`{"hp": 20.0}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if block.MaxHP != 20 {
		t.Errorf("MaxHP = %d, want 20", block.MaxHP)
	}
}

func TestStatBlockDecodeSchemaMismatch(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"array root", `[1, 2, 3]`},
		{"string root", `"not a sheet"`},
		{"stats as array", `{"stats": [15, 12]}`},
		{"stats with string values", `{"stats": {"str": "fifteen"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := StatBlockKind.Decode([]byte(tc.raw)); !errors.Is(err, ErrSchemaMismatch) {
				t.Fatalf("Decode(%s) error = %v, want ErrSchemaMismatch", tc.raw, err)
			}
		})
	}
}

func TestStatBlockKindSourceRef(t *testing.T) {
	var c character.Character
	if _, err := StatBlockKind.SourceRef(c); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("SourceRef without source error = %v, want ErrNotConfigured", err)
	}

	c.StatSource = chat.MessageRef{ChannelID: "chan", MessageID: "msg"}
	ref, err := StatBlockKind.SourceRef(c)
	if err != nil {
		t.Fatalf("SourceRef: %v", err)
	}
	if ref != c.StatSource {
		t.Errorf("SourceRef = %+v, want %+v", ref, c.StatSource)
	}
}

func TestStatBlockKindPreviousBlock(t *testing.T) {
	var c character.Character
	if _, ok := StatBlockKind.PreviousBlock(c); ok {
		t.Fatal("PreviousBlock on fresh character should report absent")
	}

	c.StatBlock = character.Block{JSON: `{}`, Hash: "abc", SchemaVersion: 1}
	block, ok := StatBlockKind.PreviousBlock(c)
	if !ok {
		t.Fatal("PreviousBlock should report present")
	}
	if block.Hash != "abc" {
		t.Errorf("Hash = %q, want abc", block.Hash)
	}
}

func TestStatBlockKindName(t *testing.T) {
	if got := StatBlockKind.Name(); got != storage.KindStat {
		t.Errorf("Name = %q, want %q", got, storage.KindStat)
	}
	if got := (&StatBlock{}).SheetKind(); got != storage.KindStat {
		t.Errorf("SheetKind = %q, want %q", got, storage.KindStat)
	}
}
