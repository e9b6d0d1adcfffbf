// Package sqlite provides SQLite-backed persistence for character records.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
	"github.com/avelione/grimoire.chat/internal/platform/storage/sqlitemigrate"
	"github.com/avelione/grimoire.chat/internal/storage"
	"github.com/avelione/grimoire.chat/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store provides SQLite-backed persistence for character records.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store at the provided path and applies embedded
// migrations before the store is handed to higher layers.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

const characterColumns = `id, owner_user_id, name, level, mana,
stat_block, stat_block_hash, stat_schema_version, stat_channel_id, stat_message_id,
spell_block, spell_block_hash, spell_schema_version, spell_channel_id, spell_message_id,
mana_readout_channel_id, mana_readout_message_id, created_at, updated_at`

// PutCharacter inserts or replaces a character record.
func (s *Store) PutCharacter(ctx context.Context, c character.Character) error {
	if strings.TrimSpace(c.ID) == "" {
		return character.ErrEmptyID
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO characters (`+characterColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    owner_user_id = excluded.owner_user_id,
    name = excluded.name,
    level = excluded.level,
    mana = excluded.mana,
    stat_block = excluded.stat_block,
    stat_block_hash = excluded.stat_block_hash,
    stat_schema_version = excluded.stat_schema_version,
    stat_channel_id = excluded.stat_channel_id,
    stat_message_id = excluded.stat_message_id,
    spell_block = excluded.spell_block,
    spell_block_hash = excluded.spell_block_hash,
    spell_schema_version = excluded.spell_schema_version,
    spell_channel_id = excluded.spell_channel_id,
    spell_message_id = excluded.spell_message_id,
    mana_readout_channel_id = excluded.mana_readout_channel_id,
    mana_readout_message_id = excluded.mana_readout_message_id,
    updated_at = excluded.updated_at`,
		c.ID, c.OwnerUserID, c.Name, c.Level, c.Mana,
		c.StatBlock.JSON, c.StatBlock.Hash, c.StatBlock.SchemaVersion, c.StatSource.ChannelID, c.StatSource.MessageID,
		c.SpellBlock.JSON, c.SpellBlock.Hash, c.SpellBlock.SchemaVersion, c.SpellSource.ChannelID, c.SpellSource.MessageID,
		c.ManaReadout.ChannelID, c.ManaReadout.MessageID,
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put character: %w", err)
	}
	return nil
}

func scanCharacter(row interface{ Scan(...any) error }) (character.Character, error) {
	var (
		c                    character.Character
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&c.ID, &c.OwnerUserID, &c.Name, &c.Level, &c.Mana,
		&c.StatBlock.JSON, &c.StatBlock.Hash, &c.StatBlock.SchemaVersion, &c.StatSource.ChannelID, &c.StatSource.MessageID,
		&c.SpellBlock.JSON, &c.SpellBlock.Hash, &c.SpellBlock.SchemaVersion, &c.SpellSource.ChannelID, &c.SpellSource.MessageID,
		&c.ManaReadout.ChannelID, &c.ManaReadout.MessageID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return character.Character{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// GetCharacter retrieves a character by id.
func (s *Store) GetCharacter(ctx context.Context, id string) (character.Character, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = ?`, id)
	c, err := scanCharacter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return character.Character{}, fmt.Errorf("character %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return character.Character{}, fmt.Errorf("get character: %w", err)
	}
	return c, nil
}

// CharactersByOwner lists all characters owned by a user, oldest first.
func (s *Store) CharactersByOwner(ctx context.Context, ownerUserID string) ([]character.Character, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE owner_user_id = ? ORDER BY created_at`, ownerUserID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var out []character.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate characters: %w", err)
	}
	return out, nil
}

// SelectCharacter marks a character as the owner's active character.
func (s *Store) SelectCharacter(ctx context.Context, ownerUserID, characterID string) error {
	c, err := s.GetCharacter(ctx, characterID)
	if err != nil {
		return err
	}
	if c.OwnerUserID != ownerUserID {
		return fmt.Errorf("character %s for owner %s: %w", characterID, ownerUserID, storage.ErrNotFound)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO selected_characters (owner_user_id, character_id)
VALUES (?, ?)
ON CONFLICT (owner_user_id) DO UPDATE SET character_id = excluded.character_id`,
		ownerUserID, characterID)
	if err != nil {
		return fmt.Errorf("select character: %w", err)
	}
	return nil
}

// SelectedCharacter returns the owner's active character.
func (s *Store) SelectedCharacter(ctx context.Context, ownerUserID string) (character.Character, error) {
	var characterID string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT character_id FROM selected_characters WHERE owner_user_id = ?`, ownerUserID).
		Scan(&characterID)
	if errors.Is(err, sql.ErrNoRows) {
		return character.Character{}, fmt.Errorf("selection for owner %s: %w", ownerUserID, storage.ErrNotFound)
	}
	if err != nil {
		return character.Character{}, fmt.Errorf("get selection: %w", err)
	}
	return s.GetCharacter(ctx, characterID)
}

func kindColumns(kind string) (blockCol, hashCol, versionCol, channelCol, messageCol string, err error) {
	switch kind {
	case storage.KindStat:
		return "stat_block", "stat_block_hash", "stat_schema_version", "stat_channel_id", "stat_message_id", nil
	case storage.KindSpell:
		return "spell_block", "spell_block_hash", "spell_schema_version", "spell_channel_id", "spell_message_id", nil
	default:
		return "", "", "", "", "", fmt.Errorf("kind %q: %w", kind, storage.ErrUnknownKind)
	}
}

// SaveBlock persists a derived sheet block for one kind.
func (s *Store) SaveBlock(ctx context.Context, characterID, kind string, block character.Block) error {
	blockCol, hashCol, versionCol, _, _, err := kindColumns(kind)
	if err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx, fmt.Sprintf(
		`UPDATE characters SET %s = ?, %s = ?, %s = ?, updated_at = ? WHERE id = ?`,
		blockCol, hashCol, versionCol),
		block.JSON, block.Hash, block.SchemaVersion, toMillis(time.Now()), characterID)
	if err != nil {
		return fmt.Errorf("save %s block: %w", kind, err)
	}
	return requireRow(res, characterID)
}

// SetSource records the chat message that backs one sheet kind.
func (s *Store) SetSource(ctx context.Context, characterID, kind string, ref chat.MessageRef) error {
	_, _, _, channelCol, messageCol, err := kindColumns(kind)
	if err != nil {
		return err
	}

	res, err := s.sqlDB.ExecContext(ctx, fmt.Sprintf(
		`UPDATE characters SET %s = ?, %s = ?, updated_at = ? WHERE id = ?`,
		channelCol, messageCol),
		ref.ChannelID, ref.MessageID, toMillis(time.Now()), characterID)
	if err != nil {
		return fmt.Errorf("set %s source: %w", kind, err)
	}
	return requireRow(res, characterID)
}

// SetMana updates the character's current mana value.
func (s *Store) SetMana(ctx context.Context, characterID string, mana int) error {
	if mana < 0 {
		return character.ErrNegativeMana
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE characters SET mana = ?, updated_at = ? WHERE id = ?`,
		mana, toMillis(time.Now()), characterID)
	if err != nil {
		return fmt.Errorf("set mana: %w", err)
	}
	return requireRow(res, characterID)
}

// BindManaReadout records the assistant-owned mana readout message.
func (s *Store) BindManaReadout(ctx context.Context, characterID string, ref chat.MessageRef) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE characters SET mana_readout_channel_id = ?, mana_readout_message_id = ?, updated_at = ? WHERE id = ?`,
		ref.ChannelID, ref.MessageID, toMillis(time.Now()), characterID)
	if err != nil {
		return fmt.Errorf("bind mana readout: %w", err)
	}
	return requireRow(res, characterID)
}

func requireRow(res sql.Result, characterID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("character %s: %w", characterID, storage.ErrNotFound)
	}
	return nil
}
