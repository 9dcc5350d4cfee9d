// Package summarize provides the text summarization capability used to build digests.
package summarize

import (
	"context"
	"fmt"
	"strings"
)

// Request is one summarization call. MinLength and MaxLength bound the
// output length in words. Deterministic asks for reproducible output.
type Request struct {
	Text          string
	MinLength     int
	MaxLength     int
	Deterministic bool
}

// Summarizer turns a block of text into a shorter one.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to Summarizer.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Summarize(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Config selects and configures a Summarizer implementation.
type Config struct {
	Provider string // "extractive", "openai" or "anthropic"
	Model    string
	APIKey   string
	BaseURL  string
}

// New builds the Summarizer named by cfg.Provider. LLM providers without an
// API key fall back to the extractive summarizer. Provider names are
// case-insensitive.
func New(cfg Config) (Summarizer, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "extractive":
		return NewExtractive(), nil
	case "openai", "anthropic":
		if cfg.APIKey == "" {
			return NewExtractive(), nil
		}
		return NewLLM(provider, cfg.Model, cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown summarizer provider %q", cfg.Provider)
	}
}
