package sheet

import (
	"context"
	"fmt"
	"log"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/avelione/grimoire.chat/internal/character"
	"github.com/avelione/grimoire.chat/internal/chat"
	"github.com/avelione/grimoire.chat/internal/genai"
	"github.com/avelione/grimoire.chat/internal/storage"
)

const defaultCacheSize = 512

// Cache memoizes derived records for one kind, keyed by character id.
//
// Consistency: an entry's hash matches the character's persisted hash for
// the kind whenever no synthesis is in flight. Staleness is only possible
// for the duration of an in-flight refresh, and a failed refresh keeps the
// prior entry while surfacing the error on the failing call only.
//
// Synthesis is at-most-one-concurrent per character: concurrent Get calls
// for the same character share a single in-flight resolution through a
// singleflight group. The entry map itself is only touched for O(1)
// lookups; no network call ever blocks access to unrelated characters.
type Cache[R Record] struct {
	kind     Kind[R]
	synth    *Synthesizer[R]
	detector *ChangeDetector[R]
	bridge   *Bridge
	entries  *lru.Cache[string, cacheEntry[R]]
	flight   singleflight.Group
	tracer   trace.Tracer
}

type cacheEntry[R Record] struct {
	record R
	hash   string
}

// CacheOption customizes a Cache.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	size      int
	synthOpts []SynthesizerOption
}

// WithCacheSize bounds the number of memoized characters per kind.
func WithCacheSize(size int) CacheOption {
	return func(cfg *cacheConfig) {
		if size > 0 {
			cfg.size = size
		}
	}
}

// WithSynthesizer forwards options to the cache's synthesizer.
func WithSynthesizer(opts ...SynthesizerOption) CacheOption {
	return func(cfg *cacheConfig) {
		cfg.synthOpts = append(cfg.synthOpts, opts...)
	}
}

// NewCache builds the cache for one kind.
func NewCache[R Record](kind Kind[R], gen genai.Generator, client chat.Client, store storage.CharacterStore, opts ...CacheOption) (*Cache[R], error) {
	cfg := cacheConfig{size: defaultCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	entries, err := lru.New[string, cacheEntry[R]](cfg.size)
	if err != nil {
		return nil, fmt.Errorf("new sheet cache: %w", err)
	}

	return &Cache[R]{
		kind:     kind,
		synth:    NewSynthesizer(kind, gen, cfg.synthOpts...),
		detector: NewChangeDetector(kind, client),
		bridge:   NewBridge(store),
		entries:  entries,
		tracer:   otel.Tracer("sheet"),
	}, nil
}

// Get resolves the record of this cache's kind for the character.
//
// The character must be the current persisted row; its per-kind hash is the
// reference point for change detection.
func (c *Cache[R]) Get(ctx context.Context, ch character.Character) (R, error) {
	var zero R
	if ch.ID == "" {
		return zero, character.ErrEmptyID
	}

	value, err, _ := c.flight.Do(ch.ID, func() (any, error) {
		return c.resolve(ctx, ch)
	})
	if err != nil {
		return zero, err
	}
	return value.(cacheEntry[R]).record, nil
}

// Invalidate drops the memoized entry for a character, forcing the next Get
// to re-derive. Used when a new source message is submitted.
func (c *Cache[R]) Invalidate(characterID string) {
	c.entries.Remove(characterID)
}

func (c *Cache[R]) resolve(ctx context.Context, ch character.Character) (cacheEntry[R], error) {
	ctx, span := c.tracer.Start(ctx, "sheet.cache.resolve",
		trace.WithAttributes(
			attribute.String("sheet.kind", c.kind.Name()),
			attribute.String("character.id", ch.ID),
		))
	defer span.End()

	changed, msg, err := c.detector.Changed(ctx, ch)
	if err != nil {
		span.RecordError(err)
		return cacheEntry[R]{}, err
	}

	if !changed {
		if entry, cached := c.entries.Get(ch.ID); cached {
			return entry, nil
		}
		// Cold start: the persisted blob matches the source, so it
		// revives the entry without touching the generator.
		if block, ok := Load(c.kind, ch); ok {
			record, err := c.kind.Decode([]byte(block.JSON))
			if err == nil {
				entry := cacheEntry[R]{record: record, hash: block.Hash}
				c.entries.Add(ch.ID, entry)
				return entry, nil
			}
			log.Printf("persisted %s block for %s no longer decodes, re-deriving: %v", c.kind.Name(), ch.ID, err)
		}
	}

	refreshed, err := c.refresh(ctx, ch, msg.Content)
	if err != nil {
		// Any prior entry stays cached; stale data is preferred over no
		// data, but this call still reports the failure.
		span.RecordError(err)
		return cacheEntry[R]{}, err
	}
	return refreshed, nil
}

func (c *Cache[R]) refresh(ctx context.Context, ch character.Character, rawText string) (cacheEntry[R], error) {
	info, err := c.synth.Synthesize(ctx, rawText)
	if err != nil {
		return cacheEntry[R]{}, err
	}

	entry := cacheEntry[R]{record: info.Record, hash: info.Hash}
	c.entries.Add(ch.ID, entry)

	if info.Dirty {
		if err := c.bridge.Save(ctx, ch.ID, c.kind.Name(), info.Block(c.kind.SchemaVersion())); err != nil {
			// Memory and store diverge until the next successful write;
			// availability wins over store consistency here.
			log.Printf("save %s block for %s: %v", c.kind.Name(), ch.ID, err)
		}
	}
	return entry, nil
}
