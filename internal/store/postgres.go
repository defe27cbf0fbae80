// Package store persists documents, financial data, and chunks. The
// Postgres store is the production backend; a chromem-backed store exists
// for embedded local runs.
package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"balancesheet-rag/internal/config"
	"balancesheet-rag/internal/models"
)

// ConnectDB opens the Postgres connection. A configured password selects
// the pgdriver connector (hosted setups pass the key separately); plain
// DSNs go through lib/pq.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Password != "" {
		return sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(cfg.DSN),
			pgdriver.WithPassword(cfg.Password),
		)), nil
	}
	dsn, err := pq.ParseURL(cfg.DSN)
	if err != nil {
		dsn = cfg.DSN
	}
	return sql.Open("postgres", dsn)
}

// NewDB wraps the connection with bun and, in debug mode, query logging.
func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// Postgres implements chunk and financial-data persistence on bun.
type Postgres struct {
	db *bun.DB
}

func NewPostgres(db *bun.DB) *Postgres {
	return &Postgres{db: db}
}

// Init creates the tables when missing.
func (s *Postgres) Init(ctx context.Context) error {
	for _, model := range []any{
		(*models.Document)(nil),
		(*models.FinancialData)(nil),
		(*models.Chunk)(nil),
	} {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Postgres) Close() error {
	return s.db.Close()
}

// FetchChunks returns the chunks of a document set ordered by page, with an
// optional section filter.
func (s *Postgres) FetchChunks(ctx context.Context, documentIDs []int64, section models.SectionLabel) ([]models.Chunk, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	var chunks []models.Chunk
	q := s.db.NewSelect().
		Model(&chunks).
		Where("document_id IN (?)", bun.In(documentIDs)).
		Order("start_page ASC", "section_label ASC")
	if section != "" {
		q = q.Where("section_label = ?", section)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return chunks, nil
}

// PersistChunk stores one chunk, deriving page_range and primary_page
// first, and returns the assigned ID.
func (s *Postgres) PersistChunk(ctx context.Context, chunk *models.Chunk) (int64, error) {
	chunk.Normalize()
	if _, err := s.db.NewInsert().Model(chunk).Exec(ctx); err != nil {
		return 0, err
	}
	return chunk.ID, nil
}

// PersistChunks stores a batch in one insert.
func (s *Postgres) PersistChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		chunks[i].Normalize()
	}
	_, err := s.db.NewInsert().Model(&chunks).Exec(ctx)
	return err
}

// UpdateEmbedding backfills the vector of one chunk. Overwriting is always
// safe; each chunk is embedded at most once per ingestion.
func (s *Postgres) UpdateEmbedding(ctx context.Context, chunkID int64, vec models.Vector) error {
	_, err := s.db.NewUpdate().
		Model((*models.Chunk)(nil)).
		Set("embedding = ?", vec).
		Where("id = ?", chunkID).
		Exec(ctx)
	return err
}

// ChunksWithoutEmbedding lists chunks still waiting for a vector, for the
// backfill pass.
func (s *Postgres) ChunksWithoutEmbedding(ctx context.Context, documentIDs []int64) ([]models.Chunk, error) {
	var chunks []models.Chunk
	q := s.db.NewSelect().
		Model(&chunks).
		Where("embedding IS NULL OR embedding = '[]'::jsonb").
		Order("id ASC")
	if len(documentIDs) > 0 {
		q = q.Where("document_id IN (?)", bun.In(documentIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return chunks, nil
}

// CreateDocument stores a document record and returns its ID.
func (s *Postgres) CreateDocument(ctx context.Context, doc *models.Document) (int64, error) {
	if _, err := s.db.NewInsert().Model(doc).Exec(ctx); err != nil {
		return 0, err
	}
	return doc.ID, nil
}

// CreateFinancialData stores the structured metrics of one document.
func (s *Postgres) CreateFinancialData(ctx context.Context, fd *models.FinancialData) error {
	_, err := s.db.NewInsert().Model(fd).Exec(ctx)
	return err
}

// FetchDocuments loads document records with their latest financial data.
func (s *Postgres) FetchDocuments(ctx context.Context, documentIDs []int64) ([]models.Document, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}
	var docs []models.Document
	err := s.db.NewSelect().
		Model(&docs).
		Where("id IN (?)", bun.In(documentIDs)).
		Order("year DESC", "uploaded_at DESC").
		Scan(ctx)
	return docs, err
}

// ListDocuments returns every stored document, newest first.
func (s *Postgres) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.NewSelect().
		Model(&docs).
		Order("year DESC", "uploaded_at DESC").
		Scan(ctx)
	return docs, err
}

// LatestFinancialData returns the most recent metrics record for a
// document, or nil when none exists.
func (s *Postgres) LatestFinancialData(ctx context.Context, documentID int64) (*models.FinancialData, error) {
	var fd models.FinancialData
	err := s.db.NewSelect().
		Model(&fd).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fd, nil
}
