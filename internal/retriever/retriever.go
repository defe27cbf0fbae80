// Package retriever selects the chunks most likely to answer a query and
// assembles them into a bounded context string. Vector similarity is tried
// first; keyword matching is the fallback when embeddings are unavailable.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"balancesheet-rag/internal/models"
	"balancesheet-rag/internal/vectormath"
)

// ChunkStore is the persistence collaborator. Section is an optional
// filter; the empty string fetches everything for the document set.
type ChunkStore interface {
	FetchChunks(ctx context.Context, documentIDs []int64, section models.SectionLabel) ([]models.Chunk, error)
}

// Embedder is the query-embedding collaborator. An empty vector signals
// unavailable, never an error.
type Embedder interface {
	Available() bool
	CreateEmbedding(ctx context.Context, text string) models.Vector
}

// Config carries the keyword table and budgets. One keyword list drives
// both balance-sheet query detection and the section boost so the two can
// never drift apart.
type Config struct {
	BalanceSheetKeywords []string
	TopK                 int
	MaxChunkChars        int
	MaxContextChars      int
}

func DefaultConfig() Config {
	return Config{
		BalanceSheetKeywords: []string{
			"asset", "liability", "equity", "current assets", "total assets", "balance sheet",
		},
		TopK:            8,
		MaxChunkChars:   4000,
		MaxContextChars: 8000,
	}
}

const (
	titleBoost   = 0.10
	contentBoost = 0.05
	sectionBoost = 0.05
)

type Retriever struct {
	store    ChunkStore
	embedder Embedder
	cfg      Config
}

// New builds a retriever. Zero-valued config fields fall back to their
// defaults individually, so a caller can override just the keyword table or
// just a budget.
func New(store ChunkStore, embedder Embedder, cfg Config) *Retriever {
	def := DefaultConfig()
	if len(cfg.BalanceSheetKeywords) == 0 {
		cfg.BalanceSheetKeywords = def.BalanceSheetKeywords
	}
	if cfg.TopK == 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MaxChunkChars == 0 {
		cfg.MaxChunkChars = def.MaxChunkChars
	}
	if cfg.MaxContextChars == 0 {
		cfg.MaxContextChars = def.MaxContextChars
	}
	return &Retriever{store: store, embedder: embedder, cfg: cfg}
}

// GetRelevantChunks returns the top-ranked chunks for a query, at most
// cfg.TopK of them. An empty result means no candidates exist or nothing
// matched; it is not an error condition.
func (r *Retriever) GetRelevantChunks(ctx context.Context, query string, documentIDs []int64, useVectorSearch bool) ([]models.Chunk, error) {
	candidates, err := r.store.FetchChunks(ctx, documentIDs, "")
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	isBalanceQuery := r.isBalanceSheetQuery(query)
	if isBalanceQuery {
		candidates = partitionBalanceSheetFirst(candidates)
	}

	if useVectorSearch && r.embedder != nil && r.embedder.Available() {
		if top := r.vectorSearch(ctx, query, candidates, isBalanceQuery); len(top) > 0 {
			return top, nil
		}
	}

	return r.keywordSearch(query, candidates), nil
}

func (r *Retriever) isBalanceSheetQuery(query string) bool {
	queryLower := strings.ToLower(query)
	for _, keyword := range r.cfg.BalanceSheetKeywords {
		if strings.Contains(queryLower, keyword) {
			return true
		}
	}
	return false
}

// partitionBalanceSheetFirst stably moves balance-sheet chunks ahead of the
// rest. Nothing is dropped.
func partitionBalanceSheetFirst(chunks []models.Chunk) []models.Chunk {
	out := make([]models.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.SectionLabel == models.SectionBalanceSheet {
			out = append(out, c)
		}
	}
	for _, c := range chunks {
		if c.SectionLabel != models.SectionBalanceSheet {
			out = append(out, c)
		}
	}
	return out
}

// vectorSearch ranks candidates by cosine similarity plus keyword boosts.
// It returns nil when the query could not be embedded or no candidate has a
// usable embedding, letting the caller fall through to keyword search.
func (r *Retriever) vectorSearch(ctx context.Context, query string, candidates []models.Chunk, isBalanceQuery bool) []models.Chunk {
	queryVec := r.embedder.CreateEmbedding(ctx, query)
	if len(queryVec) == 0 {
		log.Debug().Msg("Query embedding unavailable, falling back to keywords")
		return nil
	}

	queryLower := strings.ToLower(query)
	scored := make([]models.ScoredChunk, 0, len(candidates))
	for i := range candidates {
		chunk := &candidates[i]
		if !chunk.HasEmbedding() || len(chunk.Embedding) != len(queryVec) {
			continue
		}
		similarity := vectormath.CosineSimilarity(queryVec, chunk.Embedding)
		scored = append(scored, models.ScoredChunk{
			Chunk: chunk,
			Score: similarity + r.boosts(chunk, queryLower, isBalanceQuery),
		})
	}
	if len(scored) == 0 {
		return nil
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return takeTop(scored, r.cfg.TopK)
}

func (r *Retriever) boosts(chunk *models.Chunk, queryLower string, isBalanceQuery bool) float64 {
	titleLower := strings.ToLower(chunk.SourceTitle)
	contentLower := strings.ToLower(chunk.Content)

	var boost float64
	for _, word := range strings.Fields(queryLower) {
		if strings.Contains(titleLower, word) {
			boost += titleBoost
			break
		}
	}
	for _, word := range strings.Fields(queryLower) {
		if len(word) > 3 && strings.Contains(contentLower, word) {
			boost += contentBoost
			break
		}
	}
	if isBalanceQuery && chunk.SectionLabel == models.SectionBalanceSheet {
		boost += sectionBoost
	}
	return boost
}

// keywordSearch scores each chunk by query-token hits: one point per token
// found in the content, two per token found in the title. Zero-score chunks
// are discarded.
func (r *Retriever) keywordSearch(query string, candidates []models.Chunk) []models.Chunk {
	tokens := strings.Fields(strings.ToLower(query))

	scored := make([]models.ScoredChunk, 0, len(candidates))
	for i := range candidates {
		chunk := &candidates[i]
		contentLower := strings.ToLower(chunk.Content)
		titleLower := strings.ToLower(chunk.SourceTitle)

		var score float64
		for _, token := range tokens {
			if strings.Contains(contentLower, token) {
				score += 1
			}
			if strings.Contains(titleLower, token) {
				score += 2
			}
		}
		if score > 0 {
			scored = append(scored, models.ScoredChunk{Chunk: chunk, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return takeTop(scored, r.cfg.TopK)
}

func takeTop(scored []models.ScoredChunk, k int) []models.Chunk {
	if k > len(scored) {
		k = len(scored)
	}
	out := make([]models.Chunk, 0, k)
	for _, s := range scored[:k] {
		out = append(out, *s.Chunk)
	}
	return out
}

// FormatChunksForContext renders chunks into the context string handed to
// the language model. Each chunk gets a provenance header and at most
// MaxChunkChars of content; accumulation stops before the chunk that would
// push the total past MaxContextChars, provided at least one chunk is
// already in. An empty chunk list yields the fixed placeholder.
func (r *Retriever) FormatChunksForContext(chunks []models.Chunk) string {
	return FormatContext(chunks, r.cfg)
}

// FormatContext is the formatting pass behind FormatChunksForContext,
// usable with any chunk source.
func FormatContext(chunks []models.Chunk, cfg Config) string {
	if len(chunks) == 0 {
		return models.NoContextPlaceholder
	}

	var parts []string
	total := 0
	for i := range chunks {
		chunk := &chunks[i]
		title := chunk.SourceTitle
		if title == "" {
			title = string(chunk.SectionLabel)
		}

		snippet := chunk.Content
		if len(snippet) > cfg.MaxChunkChars {
			snippet = snippet[:cfg.MaxChunkChars]
		}

		header := fmt.Sprintf("[Page %d] %s (%s)", chunk.PrimaryPage, title, chunk.ChunkKind)
		if chunk.Period != "" {
			header = fmt.Sprintf("[Page %d] %s, %s (%s)", chunk.PrimaryPage, title, chunk.Period, chunk.ChunkKind)
		}
		chunkText := header + "\n" + snippet

		if total+len(chunkText) > cfg.MaxContextChars && len(parts) > 0 {
			break
		}
		parts = append(parts, chunkText)
		total += len(chunkText)
	}

	return strings.Join(parts, models.ContextSeparator)
}
