package sheet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/avelione/grimoire.chat/internal/genai"
)

const (
	defaultMaxTries        = 5
	defaultInitialInterval = 500 * time.Millisecond
)

// Synthesizer drives the external generator until output parses as valid
// JSON matching the kind's expectations.
//
// Malformed generator output is retried with exponential backoff up to a
// bounded number of tries; retries are never surfaced individually, only
// terminal outcomes cross the component boundary. A schema mismatch after a
// successful parse is terminal and not retried.
type Synthesizer[R Record] struct {
	kind            Kind[R]
	gen             genai.Generator
	maxTries        uint
	initialInterval time.Duration
	tracer          trace.Tracer
}

// SynthesizerOption customizes a Synthesizer.
type SynthesizerOption func(*synthesizerConfig)

type synthesizerConfig struct {
	maxTries        uint
	initialInterval time.Duration
}

// WithMaxTries bounds the retry loop. Zero keeps the default.
func WithMaxTries(tries uint) SynthesizerOption {
	return func(cfg *synthesizerConfig) {
		if tries > 0 {
			cfg.maxTries = tries
		}
	}
}

// WithInitialInterval sets the first retry delay. Zero keeps the default.
func WithInitialInterval(interval time.Duration) SynthesizerOption {
	return func(cfg *synthesizerConfig) {
		if interval > 0 {
			cfg.initialInterval = interval
		}
	}
}

// NewSynthesizer builds a synthesizer for one kind.
func NewSynthesizer[R Record](kind Kind[R], gen genai.Generator, opts ...SynthesizerOption) *Synthesizer[R] {
	cfg := synthesizerConfig{
		maxTries:        defaultMaxTries,
		initialInterval: defaultInitialInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Synthesizer[R]{
		kind:            kind,
		gen:             gen,
		maxTries:        cfg.maxTries,
		initialInterval: cfg.initialInterval,
		tracer:          otel.Tracer("sheet"),
	}
}

// Synthesize derives a typed record from raw sheet text. It has no side
// effects beyond the returned SheetInfo; persistence is the caller's job.
func (s *Synthesizer[R]) Synthesize(ctx context.Context, rawText string) (SheetInfo[R], error) {
	ctx, span := s.tracer.Start(ctx, "sheet.synthesize",
		trace.WithAttributes(attribute.String("sheet.kind", s.kind.Name())))
	defer span.End()

	prompt := genai.Prompt{
		System: s.kind.SchemaPrompt(),
		User:   rawText,
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.initialInterval

	jsonText, err := backoff.Retry(ctx, func() (string, error) {
		output, err := s.gen.Generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}
		cleaned := StripFences(output)
		if !json.Valid([]byte(cleaned)) {
			return "", fmt.Errorf("generator output is not valid json")
		}
		return cleaned, nil
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(s.maxTries))
	if err != nil {
		span.RecordError(err)
		// A canceled caller is not generator flakiness; surface the
		// context error untouched.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return SheetInfo[R]{}, ctxErr
		}
		return SheetInfo[R]{}, fmt.Errorf("%w after %d tries: %v", ErrExhausted, s.maxTries, err)
	}

	record, err := s.kind.Decode([]byte(jsonText))
	if err != nil {
		span.RecordError(err)
		return SheetInfo[R]{}, err
	}

	return SheetInfo[R]{
		RawText:  rawText,
		JSONText: jsonText,
		Hash:     Hash(rawText),
		Record:   record,
		Dirty:    true,
	}, nil
}

// StripFences removes markdown code-fence markers from generator output.
// Generators routinely wrap JSON in fences despite instructions not to.
func StripFences(output string) string {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
