// Package ingest runs the document pipeline: extract page text, segment it
// into content blocks, build labeled chunks, persist them, and backfill
// embeddings. Parsing and chunking are deterministic; only the embedding
// pass talks to the network.
package ingest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"balancesheet-rag/internal/chunker"
	"balancesheet-rag/internal/models"
	"balancesheet-rag/internal/reader"
	"balancesheet-rag/internal/segmenter"
	"balancesheet-rag/internal/validate"
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	CreateDocument(ctx context.Context, doc *models.Document) (int64, error)
	CreateFinancialData(ctx context.Context, fd *models.FinancialData) error
	PersistChunks(ctx context.Context, chunks []models.Chunk) error
	ChunksWithoutEmbedding(ctx context.Context, documentIDs []int64) ([]models.Chunk, error)
	UpdateEmbedding(ctx context.Context, chunkID int64, vec models.Vector) error
}

// Embedder produces chunk vectors. An empty vector signals failure for that
// text; the pipeline skips the chunk and moves on.
type Embedder interface {
	Available() bool
	CreateEmbedding(ctx context.Context, text string) models.Vector
}

type Pipeline struct {
	store    Store
	embedder Embedder
	builder  *chunker.Builder
}

func NewPipeline(store Store, embedder Embedder) *Pipeline {
	return &Pipeline{
		store:    store,
		embedder: embedder,
		builder:  chunker.NewBuilder(chunker.DefaultConfig()),
	}
}

// ChunkFile extracts and chunks a document without touching the store. The
// dry-run flow uses this to preview chunk boundaries.
func (p *Pipeline) ChunkFile(filePath string) ([]models.Chunk, error) {
	pages, err := reader.ExtractPages(filePath)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	blocks := segmenter.Segment(pages)
	chunks := p.builder.Build(0, blocks)

	log.Info().
		Str("file", filePath).
		Int("pages", len(pages)).
		Int("blocks", len(blocks)).
		Int("chunks", len(chunks)).
		Msg("Document chunked")
	return chunks, nil
}

// IngestFile runs the full pipeline for one file: a document record is
// created, chunks are persisted, and embeddings are backfilled. Returns the
// document ID and the stored chunks.
func (p *Pipeline) IngestFile(ctx context.Context, filePath string, doc *models.Document) (int64, []models.Chunk, error) {
	chunks, err := p.ChunkFile(filePath)
	if err != nil {
		return 0, nil, err
	}

	doc.SourcePath = filePath
	docID, err := p.store.CreateDocument(ctx, doc)
	if err != nil {
		return 0, nil, fmt.Errorf("create document: %w", err)
	}

	period := doc.PeriodLabel()
	for i := range chunks {
		chunks[i].DocumentID = docID
		chunks[i].Period = period
	}
	if err := p.store.PersistChunks(ctx, chunks); err != nil {
		return 0, nil, fmt.Errorf("persist chunks: %w", err)
	}

	embedded, err := p.BackfillEmbeddings(ctx, []int64{docID})
	if err != nil {
		return 0, nil, err
	}
	log.Info().
		Int64("document_id", docID).
		Int("chunks", len(chunks)).
		Int("embedded", embedded).
		Msg("Document ingested")
	return docID, chunks, nil
}

// BackfillEmbeddings embeds every stored chunk that still lacks a vector.
// Chunks are processed one at a time; a failed embedding skips that chunk
// only. Returns the number of chunks embedded.
func (p *Pipeline) BackfillEmbeddings(ctx context.Context, documentIDs []int64) (int, error) {
	if p.embedder == nil || !p.embedder.Available() {
		log.Warn().Msg("Embedding provider unavailable, skipping backfill")
		return 0, nil
	}

	pending, err := p.store.ChunksWithoutEmbedding(ctx, documentIDs)
	if err != nil {
		return 0, fmt.Errorf("list pending chunks: %w", err)
	}

	embedded := 0
	for i := range pending {
		chunk := &pending[i]
		vec := p.embedder.CreateEmbedding(ctx, chunk.Content)
		if len(vec) == 0 {
			log.Warn().Int64("chunk_id", chunk.ID).Msg("Embedding failed, chunk skipped")
			continue
		}
		if err := p.store.UpdateEmbedding(ctx, chunk.ID, vec); err != nil {
			return embedded, fmt.Errorf("update embedding for chunk %d: %w", chunk.ID, err)
		}
		embedded++
	}
	return embedded, nil
}

// RecordFinancials validates extracted figures and stores them with the
// validation outcome attached.
func (p *Pipeline) RecordFinancials(ctx context.Context, fd *models.FinancialData) error {
	validate.Apply(fd)
	for _, w := range fd.Warnings {
		log.Warn().Int64("document_id", fd.DocumentID).Str("warning", w).Msg("Financial data check")
	}
	return p.store.CreateFinancialData(ctx, fd)
}
