package store

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"balancesheet-rag/internal/helper"
	"balancesheet-rag/internal/models"
)

const compress = false

// ChromemIndex is the embedded vector store used in local mode, where no
// Postgres is around. Chunks are stored as chromem documents with their
// labels and page provenance in the metadata map; Search reconstructs them.
type ChromemIndex struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	encryptionKey string
	filePath      string
}

// NewChromemIndex opens or creates the index. inMemory skips persistence,
// which is what the dry-run flow wants.
func NewChromemIndex(dbPath, collectionName string, inMemory bool, encryptionKey string) (*ChromemIndex, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %v", err)
	}

	return &ChromemIndex{
		db:            db,
		collection:    collection,
		dbPath:        dbPath,
		encryptionKey: encryptionKey,
		filePath:      dbPath + "/" + collectionName + ".chromem",
	}, nil
}

// AddChunks stores embedded chunks. Chunks without an embedding are
// skipped; the backfill pass will bring them in later.
func (m *ChromemIndex) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	var docs []chromem.Document
	for i := range chunks {
		chunk := &chunks[i]
		if !chunk.HasEmbedding() {
			continue
		}
		id, err := helper.GenerateUUID()
		if err != nil {
			return err
		}
		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   chunk.Content,
			Metadata:  chunkMetadata(chunk),
			Embedding: chunk.Embedding.Float32(),
		})
	}
	if len(docs) == 0 {
		return nil
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %v", err)
	}
	return nil
}

// Search runs a similarity query and rebuilds chunks from the results. The
// document filter is applied after the query; chromem rejects a result
// count larger than the filtered set, which the caller cannot know up
// front.
func (m *ChromemIndex) Search(ctx context.Context, queryVec models.Vector, topK int, documentIDs []int64) ([]models.Chunk, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("query embedding must be provided")
	}

	count := m.collection.Count()
	if count == 0 {
		return nil, nil
	}

	n := topK
	if len(documentIDs) > 0 {
		// Over-fetch so post-filtering still leaves topK results.
		n = topK * 4
	}
	if n > count {
		n = count
	}

	opts := chromem.QueryOptions{
		QueryEmbedding: queryVec.Float32(),
		NResults:       n,
	}

	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %v", err)
	}

	wanted := make(map[int64]bool, len(documentIDs))
	for _, id := range documentIDs {
		wanted[id] = true
	}

	var chunks []models.Chunk
	for _, result := range results {
		chunk := chunkFromResult(result)
		if len(documentIDs) > 0 && !wanted[chunk.DocumentID] {
			continue
		}
		chunks = append(chunks, chunk)
		if len(chunks) == topK {
			break
		}
	}
	return chunks, nil
}

// Reset drops the collection and recreates it empty, for re-ingestion.
func (m *ChromemIndex) Reset() error {
	name := m.collection.Name
	if err := m.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	collection, err := m.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %v", err)
	}
	m.collection = collection
	return nil
}

// Export writes an encrypted snapshot of the collection to disk. This is
// the persistence path for in-memory indexes.
func (m *ChromemIndex) Export(ctx context.Context) error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	log.Debug().Str("collection", m.collection.Name).Str("file", m.filePath).Msg("Exporting collection")
	if err := m.db.ExportToFile(m.filePath, compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

// Import loads a previously exported snapshot and rebinds the collection
// handle to the imported data.
func (m *ChromemIndex) Import(ctx context.Context) error {
	if err := m.db.ImportFromFile(m.filePath, m.encryptionKey); err != nil {
		return fmt.Errorf("failed to import database: %v", err)
	}
	collection, err := m.db.GetOrCreateCollection(m.collection.Name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to create/get collection: %v", err)
	}
	m.collection = collection
	return nil
}

func chunkMetadata(chunk *models.Chunk) map[string]string {
	return map[string]string{
		"document_id":   strconv.FormatInt(chunk.DocumentID, 10),
		"section_label": string(chunk.SectionLabel),
		"chunk_kind":    string(chunk.ChunkKind),
		"start_page":    strconv.Itoa(chunk.StartPage),
		"end_page":      strconv.Itoa(chunk.EndPage),
		"page_range":    chunk.PageRange,
		"primary_page":  strconv.Itoa(chunk.PrimaryPage),
		"source_title":  chunk.SourceTitle,
		"period":        chunk.Period,
		"confidence":    strconv.FormatFloat(chunk.Confidence, 'f', -1, 64),
	}
}

func chunkFromResult(result chromem.Result) models.Chunk {
	meta := result.Metadata
	docID, _ := strconv.ParseInt(meta["document_id"], 10, 64)
	startPage, _ := strconv.Atoi(meta["start_page"])
	endPage, _ := strconv.Atoi(meta["end_page"])
	primaryPage, _ := strconv.Atoi(meta["primary_page"])
	confidence, _ := strconv.ParseFloat(meta["confidence"], 64)

	chunk := models.Chunk{
		DocumentID:   docID,
		SectionLabel: models.SectionLabel(meta["section_label"]),
		ChunkKind:    models.ChunkKind(meta["chunk_kind"]),
		StartPage:    startPage,
		EndPage:      endPage,
		PageRange:    meta["page_range"],
		PrimaryPage:  primaryPage,
		SourceTitle:  meta["source_title"],
		Period:       meta["period"],
		Confidence:   confidence,
		Content:      result.Content,
		Embedding:    models.FromFloat32(result.Embedding),
	}
	chunk.Normalize()
	return chunk
}
