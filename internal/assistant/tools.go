package assistant

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avelione/grimoire.chat/internal/chat"
)

// CharacterCreateInput represents the MCP tool input for creating a character.
type CharacterCreateInput struct {
	UserID string `json:"user_id" jsonschema:"chat user id of the owner"`
	Name   string `json:"name" jsonschema:"character name"`
}

// CharacterResult represents the MCP tool output describing a character.
type CharacterResult struct {
	ID    string `json:"id" jsonschema:"character id"`
	Name  string `json:"name" jsonschema:"character name"`
	Level int    `json:"level" jsonschema:"character level"`
	Mana  int    `json:"mana" jsonschema:"current mana"`
}

// CharacterSelectInput represents the MCP tool input for switching characters.
type CharacterSelectInput struct {
	UserID string `json:"user_id" jsonschema:"chat user id of the owner"`
	Target string `json:"target" jsonschema:"character id or name"`
}

// SheetSubmitInput represents the MCP tool input for binding a sheet message.
type SheetSubmitInput struct {
	UserID        string `json:"user_id" jsonschema:"chat user id of the owner"`
	Kind          string `json:"kind" jsonschema:"sheet kind (stat_block or spell_sheet)"`
	ChannelID     string `json:"channel_id" jsonschema:"channel containing the sheet message"`
	MessageID     string `json:"message_id" jsonschema:"message holding the sheet text"`
	CharacterName string `json:"character_name,omitempty" jsonschema:"name for the character created on first submission"`
}

// SheetSubmitResult represents the MCP tool output for a sheet submission.
type SheetSubmitResult struct {
	CharacterID string `json:"character_id" jsonschema:"character the sheet was bound to"`
	Character   string `json:"character" jsonschema:"character name"`
	Kind        string `json:"kind" jsonschema:"sheet kind bound"`
}

// SheetStatusInput represents the MCP tool input for the status summary.
type SheetStatusInput struct {
	UserID string `json:"user_id" jsonschema:"chat user id of the owner"`
}

// SpellSummary represents one spell in the status summary.
type SpellSummary struct {
	Name     string `json:"name" jsonschema:"spell name"`
	Cost     int    `json:"cost" jsonschema:"mana cost"`
	CastTime string `json:"cast_time,omitempty" jsonschema:"casting time"`
	Type     string `json:"type" jsonschema:"spell type"`
}

// SheetStatusResult represents the MCP tool output for the status summary.
type SheetStatusResult struct {
	Character string         `json:"character" jsonschema:"character name"`
	Level     int            `json:"level" jsonschema:"character level"`
	Mana      int            `json:"mana" jsonschema:"current mana"`
	ManaMax   int            `json:"mana_max,omitempty" jsonschema:"energy pool maximum"`
	Stats     map[string]int `json:"stats,omitempty" jsonschema:"stat values"`
	Modifiers map[string]int `json:"modifiers,omitempty" jsonschema:"per-stat roll modifiers"`
	HP        string         `json:"hp,omitempty" jsonschema:"current/max hit points"`
	StatHint  string         `json:"stat_hint,omitempty" jsonschema:"setup hint when no stat sheet is configured"`
	Spells    []SpellSummary `json:"spells,omitempty" jsonschema:"known spells"`
	SpellHint string         `json:"spell_hint,omitempty" jsonschema:"setup hint when no spell sheet is configured"`
}

// RollInput represents the MCP tool input for rolling dice.
type RollInput struct {
	UserID     string `json:"user_id" jsonschema:"chat user id of the owner"`
	Expression string `json:"expression,omitempty" jsonschema:"roll expression such as 2d6+STR-1; empty uses the sheet default"`
}

// RollResult represents the MCP tool output for a roll.
type RollResult struct {
	Character  string `json:"character" jsonschema:"character name"`
	Expression string `json:"expression" jsonschema:"expression rolled"`
	Breakdown  string `json:"breakdown" jsonschema:"per-term account of the roll"`
	Total      int    `json:"total" jsonschema:"roll total"`
}

// SpellCastInput represents the MCP tool input for casting a spell.
type SpellCastInput struct {
	UserID string `json:"user_id" jsonschema:"chat user id of the owner"`
	Spell  string `json:"spell" jsonschema:"spell name, matched case-insensitively"`
}

// SpellCastResult represents the MCP tool output for a cast.
type SpellCastResult struct {
	Character string `json:"character" jsonschema:"character name"`
	Spell     string `json:"spell" jsonschema:"spell cast"`
	Type      string `json:"type" jsonschema:"spell type"`
	CastTime  string `json:"cast_time,omitempty" jsonschema:"casting time"`
	Cost      int    `json:"cost" jsonschema:"mana spent"`
	Mana      int    `json:"mana" jsonschema:"mana remaining"`
	ManaMax   int    `json:"mana_max" jsonschema:"energy pool maximum"`
}

// ManaSetInput represents the MCP tool input for overwriting mana.
type ManaSetInput struct {
	UserID string `json:"user_id" jsonschema:"chat user id of the owner"`
	Value  int    `json:"value" jsonschema:"new mana value, clamped to the energy pool"`
}

// ManaResult represents the MCP tool output for a mana change.
type ManaResult struct {
	Mana    int `json:"mana" jsonschema:"current mana"`
	ManaMax int `json:"mana_max" jsonschema:"energy pool maximum"`
}

// ManaReadoutBindInput represents the MCP tool input for binding a readout.
type ManaReadoutBindInput struct {
	UserID    string `json:"user_id" jsonschema:"chat user id of the owner"`
	ChannelID string `json:"channel_id" jsonschema:"channel to post the readout message in"`
}

// ManaReadoutBindResult represents the MCP tool output for a readout bind.
type ManaReadoutBindResult struct {
	ChannelID string `json:"channel_id" jsonschema:"channel holding the readout"`
	MessageID string `json:"message_id" jsonschema:"readout message id"`
}

// LevelUpInput represents the MCP tool input for leveling up.
type LevelUpInput struct {
	UserID string `json:"user_id" jsonschema:"chat user id of the owner"`
}

// GrowthGain represents one growth die result in a level-up.
type GrowthGain struct {
	Pool      string `json:"pool" jsonschema:"pool the gain applies to"`
	Die       string `json:"die" jsonschema:"growth die rolled"`
	Breakdown string `json:"breakdown" jsonschema:"per-term account of the roll"`
	Gain      int    `json:"gain" jsonschema:"amount gained"`
}

// LevelUpResult represents the MCP tool output for a level-up.
type LevelUpResult struct {
	Character string       `json:"character" jsonschema:"character name"`
	Level     int          `json:"level" jsonschema:"new level"`
	Gains     []GrowthGain `json:"gains" jsonschema:"growth rolls in pool order"`
}

// CharacterCreateTool defines the MCP tool schema for creating characters.
func CharacterCreateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "character_create",
		Description: "Creates a character and selects it",
	}
}

// CharacterSelectTool defines the MCP tool schema for switching characters.
func CharacterSelectTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "character_select",
		Description: "Switches the active character by id or name",
	}
}

// SheetSubmitTool defines the MCP tool schema for binding sheet messages.
func SheetSubmitTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "sheet_submit",
		Description: "Binds a chat message as the source of truth for a sheet kind",
	}
}

// SheetStatusTool defines the MCP tool schema for the status summary.
func SheetStatusTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "sheet_status",
		Description: "Summarizes the active character's derived sheets",
	}
}

// RollTool defines the MCP tool schema for rolling dice.
func RollTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll",
		Description: "Rolls a dice expression with stat substitution",
	}
}

// SpellCastTool defines the MCP tool schema for casting spells.
func SpellCastTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "spell_cast",
		Description: "Casts a spell and spends its mana cost",
	}
}

// ManaSetTool defines the MCP tool schema for overwriting mana.
func ManaSetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "mana_set",
		Description: "Overwrites the active character's mana",
	}
}

// ManaReadoutBindTool defines the MCP tool schema for binding a readout.
func ManaReadoutBindTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "mana_readout_bind",
		Description: "Posts a mana readout message and keeps it updated",
	}
}

// LevelUpTool defines the MCP tool schema for leveling up.
func LevelUpTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "level_up",
		Description: "Advances a level and rolls growth dice",
	}
}

// CharacterCreateHandler handles character_create tool calls.
func CharacterCreateHandler(svc *Service) mcp.ToolHandlerFor[CharacterCreateInput, CharacterResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CharacterCreateInput) (*mcp.CallToolResult, CharacterResult, error) {
		c, err := svc.CreateCharacter(ctx, input.UserID, input.Name)
		if err != nil {
			return nil, CharacterResult{}, fmt.Errorf("create character: %w", err)
		}
		return nil, CharacterResult{ID: c.ID, Name: c.Name, Level: c.Level, Mana: c.Mana}, nil
	}
}

// CharacterSelectHandler handles character_select tool calls.
func CharacterSelectHandler(svc *Service) mcp.ToolHandlerFor[CharacterSelectInput, CharacterResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input CharacterSelectInput) (*mcp.CallToolResult, CharacterResult, error) {
		c, err := svc.SelectCharacter(ctx, input.UserID, input.Target)
		if err != nil {
			return nil, CharacterResult{}, fmt.Errorf("select character: %w", err)
		}
		return nil, CharacterResult{ID: c.ID, Name: c.Name, Level: c.Level, Mana: c.Mana}, nil
	}
}

// SheetSubmitHandler handles sheet_submit tool calls.
func SheetSubmitHandler(svc *Service) mcp.ToolHandlerFor[SheetSubmitInput, SheetSubmitResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SheetSubmitInput) (*mcp.CallToolResult, SheetSubmitResult, error) {
		ref := chat.MessageRef{ChannelID: input.ChannelID, MessageID: input.MessageID}
		c, err := svc.SubmitSheet(ctx, input.UserID, input.Kind, ref, input.CharacterName)
		if err != nil {
			return nil, SheetSubmitResult{}, fmt.Errorf("submit sheet: %w", err)
		}
		return nil, SheetSubmitResult{CharacterID: c.ID, Character: c.Name, Kind: input.Kind}, nil
	}
}

// SheetStatusHandler handles sheet_status tool calls.
func SheetStatusHandler(svc *Service) mcp.ToolHandlerFor[SheetStatusInput, SheetStatusResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SheetStatusInput) (*mcp.CallToolResult, SheetStatusResult, error) {
		status, err := svc.SheetStatus(ctx, input.UserID)
		if err != nil {
			return nil, SheetStatusResult{}, fmt.Errorf("sheet status: %w", err)
		}

		result := SheetStatusResult{
			Character: status.Character.Name,
			Level:     status.Character.Level,
			Mana:      status.Character.Mana,
			StatHint:  status.StatHint,
			SpellHint: status.SpellHint,
			Modifiers: status.Modifiers,
		}
		if status.StatBlock != nil {
			result.ManaMax = status.StatBlock.EnergyPool
			result.Stats = status.StatBlock.Stats
			result.HP = fmt.Sprintf("%d/%d", status.StatBlock.HP, status.StatBlock.MaxHP)
		}
		if status.SpellSheet != nil {
			for name, spell := range status.SpellSheet.Spells {
				result.Spells = append(result.Spells, SpellSummary{
					Name:     name,
					Cost:     spell.Cost,
					CastTime: spell.CastTime,
					Type:     string(spell.Type),
				})
			}
		}
		return nil, result, nil
	}
}

// RollHandler handles roll tool calls.
func RollHandler(svc *Service) mcp.ToolHandlerFor[RollInput, RollResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollInput) (*mcp.CallToolResult, RollResult, error) {
		outcome, err := svc.Roll(ctx, input.UserID, input.Expression)
		if err != nil {
			return nil, RollResult{}, fmt.Errorf("roll: %w", err)
		}
		return nil, RollResult{
			Character:  outcome.Character,
			Expression: outcome.Expression,
			Breakdown:  outcome.Breakdown,
			Total:      outcome.Total,
		}, nil
	}
}

// SpellCastHandler handles spell_cast tool calls.
func SpellCastHandler(svc *Service) mcp.ToolHandlerFor[SpellCastInput, SpellCastResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SpellCastInput) (*mcp.CallToolResult, SpellCastResult, error) {
		outcome, err := svc.CastSpell(ctx, input.UserID, input.Spell)
		if err != nil {
			return nil, SpellCastResult{}, fmt.Errorf("cast spell: %w", err)
		}
		return nil, SpellCastResult{
			Character: outcome.Character,
			Spell:     outcome.Spell,
			Type:      string(outcome.Type),
			CastTime:  outcome.CastTime,
			Cost:      outcome.Cost,
			Mana:      outcome.Mana,
			ManaMax:   outcome.ManaMax,
		}, nil
	}
}

// ManaSetHandler handles mana_set tool calls.
func ManaSetHandler(svc *Service) mcp.ToolHandlerFor[ManaSetInput, ManaResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ManaSetInput) (*mcp.CallToolResult, ManaResult, error) {
		mana, max, err := svc.SetMana(ctx, input.UserID, input.Value)
		if err != nil {
			return nil, ManaResult{}, fmt.Errorf("set mana: %w", err)
		}
		return nil, ManaResult{Mana: mana, ManaMax: max}, nil
	}
}

// ManaReadoutBindHandler handles mana_readout_bind tool calls.
func ManaReadoutBindHandler(svc *Service) mcp.ToolHandlerFor[ManaReadoutBindInput, ManaReadoutBindResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ManaReadoutBindInput) (*mcp.CallToolResult, ManaReadoutBindResult, error) {
		ref, err := svc.BindManaReadout(ctx, input.UserID, input.ChannelID)
		if err != nil {
			return nil, ManaReadoutBindResult{}, fmt.Errorf("bind mana readout: %w", err)
		}
		return nil, ManaReadoutBindResult{ChannelID: ref.ChannelID, MessageID: ref.MessageID}, nil
	}
}

// LevelUpHandler handles level_up tool calls.
func LevelUpHandler(svc *Service) mcp.ToolHandlerFor[LevelUpInput, LevelUpResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input LevelUpInput) (*mcp.CallToolResult, LevelUpResult, error) {
		outcome, err := svc.LevelUp(ctx, input.UserID)
		if err != nil {
			return nil, LevelUpResult{}, fmt.Errorf("level up: %w", err)
		}

		result := LevelUpResult{Character: outcome.Character, Level: outcome.Level}
		pools := make([]string, 0, len(outcome.Gains))
		for pool := range outcome.Gains {
			pools = append(pools, pool)
		}
		sort.Strings(pools)
		for _, pool := range pools {
			gain := outcome.Gains[pool]
			result.Gains = append(result.Gains, GrowthGain{
				Pool:      pool,
				Die:       gain.Die,
				Breakdown: gain.Breakdown,
				Gain:      gain.Gain,
			})
		}
		return nil, result, nil
	}
}

// AddTools registers every assistant tool on the MCP server.
func AddTools(server *mcp.Server, svc *Service) {
	mcp.AddTool(server, CharacterCreateTool(), CharacterCreateHandler(svc))
	mcp.AddTool(server, CharacterSelectTool(), CharacterSelectHandler(svc))
	mcp.AddTool(server, SheetSubmitTool(), SheetSubmitHandler(svc))
	mcp.AddTool(server, SheetStatusTool(), SheetStatusHandler(svc))
	mcp.AddTool(server, RollTool(), RollHandler(svc))
	mcp.AddTool(server, SpellCastTool(), SpellCastHandler(svc))
	mcp.AddTool(server, ManaSetTool(), ManaSetHandler(svc))
	mcp.AddTool(server, ManaReadoutBindTool(), ManaReadoutBindHandler(svc))
	mcp.AddTool(server, LevelUpTool(), LevelUpHandler(svc))
}
