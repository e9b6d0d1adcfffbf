package sheet

import (
	"context"
	"fmt"
	"sync"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
	"github.com/avelione/grimoire.chat/internal/genai"
	"github.com/avelione/grimoire.chat/internal/storage"
)

// fakeGenerator returns scripted responses in order, repeating the last one,
// and counts invocations.
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	calls     int
	gate      chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt genai.Prompt) (string, error) {
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.calls
	g.calls++
	if idx < len(g.errs) && g.errs[idx] != nil {
		return "", g.errs[idx]
	}
	if len(g.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	if idx >= len(g.responses) {
		idx = len(g.responses) - 1
	}
	return g.responses[idx], nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// fakeChat serves messages from an in-memory map keyed by message id.
type fakeChat struct {
	mu       sync.Mutex
	messages map[string]string
	fetches  int
}

func newFakeChat() *fakeChat {
	return &fakeChat{messages: make(map[string]string)}
}

func (c *fakeChat) setMessage(messageID, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages[messageID] = content
}

func (c *fakeChat) deleteMessage(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.messages, messageID)
}

func (c *fakeChat) FetchMessage(ctx context.Context, ref chat.MessageRef) (chat.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches++
	content, ok := c.messages[ref.MessageID]
	if !ok {
		return chat.Message{}, fmt.Errorf("message %s: %w", ref.MessageID, chat.ErrMessageNotFound)
	}
	return chat.Message{Ref: ref, Content: content}, nil
}

func (c *fakeChat) EditMessage(ctx context.Context, ref chat.MessageRef, content string) error {
	c.setMessage(ref.MessageID, content)
	return nil
}

func (c *fakeChat) SendMessage(ctx context.Context, channelID, content string) (chat.MessageRef, error) {
	ref := chat.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("sent-%d", len(c.messages))}
	c.setMessage(ref.MessageID, content)
	return ref, nil
}

// memStore is an in-memory CharacterStore with injectable save failures.
type memStore struct {
	mu         sync.Mutex
	characters map[string]character.Character
	selected   map[string]string
	saveErr    error
	saves      int
}

func newMemStore() *memStore {
	return &memStore{
		characters: make(map[string]character.Character),
		selected:   make(map[string]string),
	}
}

func (s *memStore) PutCharacter(ctx context.Context, c character.Character) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters[c.ID] = c
	return nil
}

func (s *memStore) GetCharacter(ctx context.Context, id string) (character.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[id]
	if !ok {
		return character.Character{}, fmt.Errorf("character %s: %w", id, storage.ErrNotFound)
	}
	return c, nil
}

func (s *memStore) CharactersByOwner(ctx context.Context, ownerUserID string) ([]character.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []character.Character
	for _, c := range s.characters {
		if c.OwnerUserID == ownerUserID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) SelectCharacter(ctx context.Context, ownerUserID, characterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.characters[characterID]; !ok {
		return fmt.Errorf("character %s: %w", characterID, storage.ErrNotFound)
	}
	s.selected[ownerUserID] = characterID
	return nil
}

func (s *memStore) SelectedCharacter(ctx context.Context, ownerUserID string) (character.Character, error) {
	s.mu.Lock()
	characterID, ok := s.selected[ownerUserID]
	s.mu.Unlock()
	if !ok {
		return character.Character{}, fmt.Errorf("selection for %s: %w", ownerUserID, storage.ErrNotFound)
	}
	return s.GetCharacter(ctx, characterID)
}

func (s *memStore) SaveBlock(ctx context.Context, characterID, kind string, block character.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	c, ok := s.characters[characterID]
	if !ok {
		return fmt.Errorf("character %s: %w", characterID, storage.ErrNotFound)
	}
	switch kind {
	case storage.KindStat:
		c.StatBlock = block
	case storage.KindSpell:
		c.SpellBlock = block
	default:
		return fmt.Errorf("kind %q: %w", kind, storage.ErrUnknownKind)
	}
	s.characters[characterID] = c
	return nil
}

func (s *memStore) SetSource(ctx context.Context, characterID, kind string, ref chat.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[characterID]
	if !ok {
		return fmt.Errorf("character %s: %w", characterID, storage.ErrNotFound)
	}
	switch kind {
	case storage.KindStat:
		c.StatSource = ref
	case storage.KindSpell:
		c.SpellSource = ref
	default:
		return fmt.Errorf("kind %q: %w", kind, storage.ErrUnknownKind)
	}
	s.characters[characterID] = c
	return nil
}

func (s *memStore) SetMana(ctx context.Context, characterID string, mana int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[characterID]
	if !ok {
		return fmt.Errorf("character %s: %w", characterID, storage.ErrNotFound)
	}
	c.Mana = mana
	s.characters[characterID] = c
	return nil
}

func (s *memStore) BindManaReadout(ctx context.Context, characterID string, ref chat.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.characters[characterID]
	if !ok {
		return fmt.Errorf("character %s: %w", characterID, storage.ErrNotFound)
	}
	c.ManaReadout = ref
	s.characters[characterID] = c
	return nil
}
