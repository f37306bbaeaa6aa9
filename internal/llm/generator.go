// Package llm provides the text-generation boundary used to write incident summaries.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Generator maps a prompt to generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Provider names accepted by New.
const (
	ProviderStub   = "stub"
	ProviderOllama = "ollama"
)

// StubGenerator echoes a bounded prefix of the prompt. It never fails and is the
// default until a model backend is configured.
type StubGenerator struct {
	// Limit bounds how many runes of the prompt are echoed; zero means 200.
	Limit int
}

// Generate implements Generator.
func (g StubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	limit := g.Limit
	if limit <= 0 {
		limit = 200
	}
	runes := []rune(prompt)
	if len(runes) > limit {
		runes = runes[:limit]
	}
	return "[LLM ANALYSIS]: " + string(runes), nil
}

// Options selects and configures a Generator.
type Options struct {
	Provider string
	Ollama   OllamaConfig
}

// New builds the generator for the configured provider.
func New(opts Options) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderStub:
		return StubGenerator{}, nil
	case ProviderOllama:
		return NewOllamaClient(opts.Ollama)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
