// Package assistant implements the chat assistant's operations over
// characters, sheets, dice, and mana.
//
// It is the service layer between the MCP tool surface and the sheet
// engine: every operation resolves the caller's selected character, runs
// the sheet caches as needed, and returns plain result structs for the
// tool handlers to serialize.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
	"github.com/avelione/grimoire.chat/internal/dice"
	"github.com/avelione/grimoire.chat/internal/genai"
	"github.com/avelione/grimoire.chat/internal/mana"
	"github.com/avelione/grimoire.chat/internal/platform/id"
	"github.com/avelione/grimoire.chat/internal/sheet"
	"github.com/avelione/grimoire.chat/internal/storage"
)

var (
	// ErrNoCharacterSelected indicates the user has no active character.
	ErrNoCharacterSelected = errors.New("no character selected")

	// ErrCharacterNotFound indicates no owned character matches the
	// requested id or name.
	ErrCharacterNotFound = errors.New("character not found")

	// ErrSpellNotFound indicates the spell sheet has no such spell.
	ErrSpellNotFound = errors.New("spell not found")

	// ErrNoDefaultRoll indicates a roll without an expression and a stat
	// block without a default.
	ErrNoDefaultRoll = errors.New("no roll expression and no default roll")

	// ErrNoGrowth indicates a level-up on a stat block without growth dice.
	ErrNoGrowth = errors.New("stat block defines no growth dice")
)

// Service implements the assistant operations.
type Service struct {
	store   storage.CharacterStore
	client  chat.Client
	stats   *sheet.Cache[*sheet.StatBlock]
	spells  *sheet.Cache[*sheet.SpellSheet]
	tracker *mana.Tracker
	now     func() time.Time
	seed    func() int64
}

// Option customizes a Service.
type Option func(*config)

type config struct {
	now       func() time.Time
	seed      func() int64
	sheetOpts []sheet.CacheOption
}

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(cfg *config) { cfg.now = now }
}

// WithSeed overrides the roll seed source.
func WithSeed(seed func() int64) Option {
	return func(cfg *config) { cfg.seed = seed }
}

// WithSheetOptions forwards options to both sheet caches.
func WithSheetOptions(opts ...sheet.CacheOption) Option {
	return func(cfg *config) { cfg.sheetOpts = append(cfg.sheetOpts, opts...) }
}

// New builds the assistant service over its collaborators.
func New(store storage.CharacterStore, client chat.Client, gen genai.Generator, opts ...Option) (*Service, error) {
	cfg := config{
		now:  time.Now,
		seed: func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	stats, err := sheet.NewCache(sheet.StatBlockKind, gen, client, store, cfg.sheetOpts...)
	if err != nil {
		return nil, fmt.Errorf("stat block cache: %w", err)
	}
	spells, err := sheet.NewCache(sheet.SpellSheetKind, gen, client, store, cfg.sheetOpts...)
	if err != nil {
		return nil, fmt.Errorf("spell sheet cache: %w", err)
	}

	return &Service{
		store:   store,
		client:  client,
		stats:   stats,
		spells:  spells,
		tracker: mana.NewTracker(store, client),
		now:     cfg.now,
		seed:    cfg.seed,
	}, nil
}

// CreateCharacter creates a character and selects it as the owner's active
// character.
func (s *Service) CreateCharacter(ctx context.Context, ownerUserID, name string) (character.Character, error) {
	characterID, err := id.NewID()
	if err != nil {
		return character.Character{}, fmt.Errorf("new character id: %w", err)
	}

	c, err := character.New(characterID, character.CreateInput{
		OwnerUserID: ownerUserID,
		Name:        name,
	}, s.now())
	if err != nil {
		return character.Character{}, err
	}

	if err := s.store.PutCharacter(ctx, c); err != nil {
		return character.Character{}, fmt.Errorf("put character: %w", err)
	}
	if err := s.store.SelectCharacter(ctx, c.OwnerUserID, c.ID); err != nil {
		return character.Character{}, fmt.Errorf("select character: %w", err)
	}
	return c, nil
}

// Characters lists the owner's characters sorted by name.
func (s *Service) Characters(ctx context.Context, ownerUserID string) ([]character.Character, error) {
	characters, err := s.store.CharactersByOwner(ctx, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	sort.Slice(characters, func(i, j int) bool {
		return characters[i].Name < characters[j].Name
	})
	return characters, nil
}

// SelectCharacter switches the owner's active character. The target may be
// a character id or a name; names match case-insensitively among the
// owner's characters.
func (s *Service) SelectCharacter(ctx context.Context, ownerUserID, target string) (character.Character, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return character.Character{}, ErrCharacterNotFound
	}

	characters, err := s.store.CharactersByOwner(ctx, ownerUserID)
	if err != nil {
		return character.Character{}, fmt.Errorf("list characters: %w", err)
	}

	var match character.Character
	found := false
	for _, c := range characters {
		if c.ID == target || strings.EqualFold(c.Name, target) {
			match = c
			found = true
			break
		}
	}
	if !found {
		return character.Character{}, fmt.Errorf("%q: %w", target, ErrCharacterNotFound)
	}

	if err := s.store.SelectCharacter(ctx, ownerUserID, match.ID); err != nil {
		return character.Character{}, fmt.Errorf("select character: %w", err)
	}
	return match, nil
}

// Selected returns the owner's active character.
func (s *Service) Selected(ctx context.Context, ownerUserID string) (character.Character, error) {
	c, err := s.store.SelectedCharacter(ctx, ownerUserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return character.Character{}, ErrNoCharacterSelected
		}
		return character.Character{}, fmt.Errorf("selected character: %w", err)
	}
	return c, nil
}

// SubmitSheet binds a chat message as the source of truth for one sheet
// kind on the owner's active character, creating and selecting a character
// first when the owner has none. The previously cached derivation for the
// kind is dropped so the next read re-derives from the new source.
func (s *Service) SubmitSheet(ctx context.Context, ownerUserID, kind string, ref chat.MessageRef, characterName string) (character.Character, error) {
	if kind != storage.KindStat && kind != storage.KindSpell {
		return character.Character{}, fmt.Errorf("%q: %w", kind, storage.ErrUnknownKind)
	}
	if err := ref.Validate(); err != nil {
		return character.Character{}, err
	}

	// The message must exist before it becomes a source of truth.
	if _, err := s.client.FetchMessage(ctx, ref); err != nil {
		if errors.Is(err, chat.ErrMessageNotFound) {
			return character.Character{}, fmt.Errorf("%s/%s: %w", ref.ChannelID, ref.MessageID, sheet.ErrSourceMissing)
		}
		return character.Character{}, fmt.Errorf("fetch sheet message: %w", err)
	}

	c, err := s.Selected(ctx, ownerUserID)
	if errors.Is(err, ErrNoCharacterSelected) {
		name := strings.TrimSpace(characterName)
		if name == "" {
			name = "Adventurer"
		}
		c, err = s.CreateCharacter(ctx, ownerUserID, name)
	}
	if err != nil {
		return character.Character{}, err
	}

	if err := s.store.SetSource(ctx, c.ID, kind, ref); err != nil {
		return character.Character{}, fmt.Errorf("set %s source: %w", kind, err)
	}

	switch kind {
	case storage.KindStat:
		c.StatSource = ref
		s.stats.Invalidate(c.ID)
	case storage.KindSpell:
		c.SpellSource = ref
		s.spells.Invalidate(c.ID)
	}
	return c, nil
}

// Status summarizes the owner's active character and its derived sheets.
type Status struct {
	Character character.Character

	// StatBlock is nil when the stat sheet is not configured; StatHint
	// then carries the setup instruction.
	StatBlock *sheet.StatBlock
	StatHint  string

	// Modifiers holds the per-stat roll modifier when the stat block
	// defines a modifier formula.
	Modifiers map[string]int

	// SpellSheet is nil when the spell sheet is not configured; SpellHint
	// then carries the setup instruction.
	SpellSheet *sheet.SpellSheet
	SpellHint  string
}

// SheetStatus resolves both sheet kinds for the owner's active character.
//
// A kind without a configured source is reported as a hint, not an error;
// any other resolution failure is surfaced.
func (s *Service) SheetStatus(ctx context.Context, ownerUserID string) (Status, error) {
	c, err := s.Selected(ctx, ownerUserID)
	if err != nil {
		return Status{}, err
	}
	status := Status{Character: c}

	block, err := s.stats.Get(ctx, c)
	switch {
	case errors.Is(err, sheet.ErrNotConfigured):
		status.StatHint = "No stat sheet configured. Post your sheet in chat and submit it with sheet_submit."
	case err != nil:
		return Status{}, fmt.Errorf("resolve stat block: %w", err)
	default:
		status.StatBlock = block
		status.Modifiers = statModifiers(block)
	}

	spellSheet, err := s.spells.Get(ctx, c)
	switch {
	case errors.Is(err, sheet.ErrNotConfigured):
		status.SpellHint = "No spell sheet configured. Post your spell list in chat and submit it with sheet_submit."
	case err != nil:
		return Status{}, fmt.Errorf("resolve spell sheet: %w", err)
	default:
		status.SpellSheet = spellSheet
	}

	return status, nil
}

// statModifiers evaluates the modifier formula for every stat. A block
// without a formula, or a formula that fails for a stat, yields no entry.
func statModifiers(block *sheet.StatBlock) map[string]int {
	if block.ModifierFormula == "" || len(block.Stats) == 0 {
		return nil
	}
	modifiers := make(map[string]int, len(block.Stats))
	for name, value := range block.Stats {
		modifier, err := dice.Modifier(block.ModifierFormula, value)
		if err != nil {
			continue
		}
		modifiers[name] = modifier
	}
	return modifiers
}

// RollOutcome is the result of a roll operation.
type RollOutcome struct {
	Character  string
	Expression string
	Breakdown  string
	Rolls      []dice.DieRoll
	Total      int
}

// Roll evaluates a roll expression for the owner's active character.
//
// An empty expression falls back to the stat block's default roll. Stat
// names in the expression substitute values from the resolved stat block;
// a roll with no stat references works without a configured stat sheet.
func (s *Service) Roll(ctx context.Context, ownerUserID, expression string) (RollOutcome, error) {
	c, err := s.Selected(ctx, ownerUserID)
	if err != nil {
		return RollOutcome{}, err
	}

	var stats map[string]int
	block, err := s.stats.Get(ctx, c)
	switch {
	case errors.Is(err, sheet.ErrNotConfigured):
		// Plain dice still roll without a sheet.
	case err != nil:
		return RollOutcome{}, fmt.Errorf("resolve stat block: %w", err)
	default:
		stats = block.Stats
	}

	expression = strings.TrimSpace(expression)
	if expression == "" {
		if block == nil || block.DefaultRoll == "" {
			return RollOutcome{}, ErrNoDefaultRoll
		}
		expression = block.DefaultRoll
	}

	expr, err := dice.ParseExpression(expression)
	if err != nil {
		return RollOutcome{}, err
	}
	result, err := expr.Roll(stats, s.seed())
	if err != nil {
		return RollOutcome{}, err
	}

	return RollOutcome{
		Character:  c.Name,
		Expression: result.Expression,
		Breakdown:  result.Breakdown,
		Rolls:      result.Rolls,
		Total:      result.Total,
	}, nil
}

// CastOutcome is the result of casting a spell.
type CastOutcome struct {
	Character string
	Spell     string
	Type      sheet.SpellType
	CastTime  string
	Cost      int
	Mana      int
	ManaMax   int
}

// CastSpell resolves a spell by name and spends its mana cost.
func (s *Service) CastSpell(ctx context.Context, ownerUserID, spellName string) (CastOutcome, error) {
	c, err := s.Selected(ctx, ownerUserID)
	if err != nil {
		return CastOutcome{}, err
	}

	spellSheet, err := s.spells.Get(ctx, c)
	if err != nil {
		return CastOutcome{}, fmt.Errorf("resolve spell sheet: %w", err)
	}
	spell, ok := spellSheet.Spell(spellName)
	if !ok {
		return CastOutcome{}, fmt.Errorf("%q: %w", spellName, ErrSpellNotFound)
	}

	block, err := s.stats.Get(ctx, c)
	if err != nil {
		return CastOutcome{}, fmt.Errorf("resolve stat block: %w", err)
	}

	remaining, err := s.tracker.Spend(ctx, c, spell.Cost, block.EnergyPool)
	if err != nil {
		return CastOutcome{}, err
	}

	return CastOutcome{
		Character: c.Name,
		Spell:     spellName,
		Type:      spell.Type,
		CastTime:  spell.CastTime,
		Cost:      spell.Cost,
		Mana:      remaining,
		ManaMax:   block.EnergyPool,
	}, nil
}

// SetMana overwrites the active character's mana, clamped to the energy
// pool, and returns the persisted value and the pool maximum.
func (s *Service) SetMana(ctx context.Context, ownerUserID string, value int) (int, int, error) {
	c, err := s.Selected(ctx, ownerUserID)
	if err != nil {
		return 0, 0, err
	}
	block, err := s.stats.Get(ctx, c)
	if err != nil {
		return 0, 0, fmt.Errorf("resolve stat block: %w", err)
	}
	persisted, err := s.tracker.Set(ctx, c, value, block.EnergyPool)
	if err != nil {
		return 0, 0, err
	}
	return persisted, block.EnergyPool, nil
}

// BindManaReadout posts a mana readout message to the channel and binds it
// to the active character. Later mana changes edit the message in place.
func (s *Service) BindManaReadout(ctx context.Context, ownerUserID, channelID string) (chat.MessageRef, error) {
	c, err := s.Selected(ctx, ownerUserID)
	if err != nil {
		return chat.MessageRef{}, err
	}
	block, err := s.stats.Get(ctx, c)
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("resolve stat block: %w", err)
	}
	return s.tracker.BindReadout(ctx, c, channelID, block.EnergyPool)
}

// LevelOutcome is the result of a level-up.
type LevelOutcome struct {
	Character string
	Level     int

	// Gains maps each growth pool to the amount rolled for it. The player
	// folds the gains into the sheet message; derived maxima always come
	// from the source text.
	Gains map[string]GrowthRoll
}

// GrowthRoll is one growth die result.
type GrowthRoll struct {
	Die       string
	Breakdown string
	Gain      int
}

// LevelUp advances the active character one level and rolls the stat
// block's growth dice.
func (s *Service) LevelUp(ctx context.Context, ownerUserID string) (LevelOutcome, error) {
	c, err := s.Selected(ctx, ownerUserID)
	if err != nil {
		return LevelOutcome{}, err
	}
	block, err := s.stats.Get(ctx, c)
	if err != nil {
		return LevelOutcome{}, fmt.Errorf("resolve stat block: %w", err)
	}
	if len(block.Growth) == 0 {
		return LevelOutcome{}, ErrNoGrowth
	}

	pools := make([]string, 0, len(block.Growth))
	for pool := range block.Growth {
		pools = append(pools, pool)
	}
	sort.Strings(pools)

	gains := make(map[string]GrowthRoll, len(pools))
	for _, pool := range pools {
		die := block.Growth[pool]
		expr, err := dice.ParseExpression(die)
		if err != nil {
			return LevelOutcome{}, fmt.Errorf("growth die for %s: %w", pool, err)
		}
		result, err := expr.Roll(block.Stats, s.seed())
		if err != nil {
			return LevelOutcome{}, fmt.Errorf("growth roll for %s: %w", pool, err)
		}
		gains[pool] = GrowthRoll{Die: die, Breakdown: result.Breakdown, Gain: result.Total}
	}

	c.Level++
	c.UpdatedAt = s.now().UTC()
	if err := s.store.PutCharacter(ctx, c); err != nil {
		return LevelOutcome{}, fmt.Errorf("put character: %w", err)
	}

	return LevelOutcome{
		Character: c.Name,
		Level:     c.Level,
		Gains:     gains,
	}, nil
}
