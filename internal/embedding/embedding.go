// Package embedding wraps the external embedding model. The contract for
// callers is uniform: an empty vector means unavailable or failed, and no
// call ever returns an error.
package embedding

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"balancesheet-rag/internal/config"
	"balancesheet-rag/internal/models"
)

// Provider holds a live-or-absent embedder handle.
type Provider struct {
	embedder *embeddings.EmbedderImpl
}

// NewProvider builds a provider from config. A missing or broken
// configuration yields a provider with no client rather than an error;
// every embedding call on it returns an empty vector.
func NewProvider(cfg *config.LLMConfig) *Provider {
	if cfg == nil || cfg.Model == "" {
		return &Provider{}
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		log.Warn().Err(err).Str("model", cfg.Model).Msg("Embedding provider unavailable")
		return &Provider{}
	}
	return &Provider{embedder: embedder}
}

func newEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	switch cfg.Provider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	default:
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	}
}

// Available reports whether a client is configured.
func (p *Provider) Available() bool {
	return p != nil && p.embedder != nil
}

// CreateEmbedding converts text to a vector. Unconfigured provider, blank
// text, and provider failures all yield an empty vector.
func (p *Provider) CreateEmbedding(ctx context.Context, text string) models.Vector {
	if !p.Available() {
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		log.Debug().Err(err).Msg("Embedding call failed")
		return nil
	}
	return models.FromFloat32(vec)
}

// CreateEmbeddingsBatch embeds texts sequentially. A failure on one entry
// only empties that entry's vector; the batch never short-circuits.
func (p *Provider) CreateEmbeddingsBatch(ctx context.Context, texts []string) []models.Vector {
	out := make([]models.Vector, len(texts))
	for i, text := range texts {
		out[i] = p.CreateEmbedding(ctx, text)
	}
	return out
}
