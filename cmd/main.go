package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"balancesheet-rag/internal/composer"
	"balancesheet-rag/internal/config"
	"balancesheet-rag/internal/embedding"
	"balancesheet-rag/internal/genai"
	"balancesheet-rag/internal/helper"
	"balancesheet-rag/internal/ingest"
	"balancesheet-rag/internal/models"
	"balancesheet-rag/internal/retriever"
	"balancesheet-rag/internal/store"
)

const (
	configFilePath = "./configs/config.yaml"
	vectorDBPath   = "./vectordb"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found")
	}

	filePath := flag.String("file", "", "Path to the statement document to ingest")
	company := flag.String("company", "", "Company name for the ingested document")
	year := flag.Int("year", 0, "Reporting year for the ingested document")
	quarter := flag.String("quarter", "", "Reporting quarter, empty for annual")
	query := flag.String("query", "", "Question to answer against ingested documents")
	docIDs := flag.String("docs", "", "Comma-separated document IDs to scope the query, empty for all")
	dryRun := flag.Bool("dry-run", false, "Chunk the document and print the result without storing")
	backfill := flag.Bool("backfill", false, "Embed stored chunks that still lack a vector")
	local := flag.Bool("local", false, "Use the embedded vector store instead of Postgres")
	reset := flag.Bool("reset", false, "Drop the local collection before ingesting")
	flag.Parse()

	ctx := context.Background()

	switch {
	case *filePath != "" && *dryRun:
		dryRunChunk(*filePath)
	case *filePath != "" && *local:
		ingestLocal(ctx, *filePath, *reset)
	case *filePath != "":
		ingestDocument(ctx, *filePath, *company, *year, *quarter)
	case *backfill:
		backfillEmbeddings(ctx)
	case *query != "" && *local:
		answerQueryLocal(ctx, *query)
	case *query != "":
		answerQuery(ctx, *query, *docIDs)
	default:
		log.Fatal().Msg("Provide a document with -file or a question with -query")
	}
}

// dryRunChunk previews chunk boundaries without any storage or network.
func dryRunChunk(filePath string) {
	pipeline := ingest.NewPipeline(nil, nil)
	chunks, err := pipeline.ChunkFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error chunking document")
	}
	helper.PrettyPrint(chunks)
}

func ingestDocument(ctx context.Context, filePath, company string, year int, quarter string) {
	cfg, pg, cleanup := openPostgres(ctx)
	defer cleanup()

	embedder := embedding.NewProvider(&cfg.EmbedLLM)
	pipeline := ingest.NewPipeline(pg, embedder)

	doc := &models.Document{Company: company, Year: year, Quarter: quarter}
	docID, chunks, err := pipeline.IngestFile(ctx, filePath, doc)
	if err != nil {
		log.Fatal().Err(err).Msg("Error ingesting document")
	}
	log.Info().Int64("document_id", docID).Int("chunks", len(chunks)).Msg("Ingestion complete")
}

// ingestLocal chunks and embeds a document into the embedded vector store.
// No document record exists in this mode; chunks keep document ID zero.
// With an encryption key configured the index lives in memory and persists
// as an encrypted snapshot instead of a plain on-disk database.
func ingestLocal(ctx context.Context, filePath string, reset bool) {
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	index, snapshot := openLocalIndex(cfg)
	if reset {
		if err := index.Reset(); err != nil {
			log.Fatal().Err(err).Msg("Error resetting collection")
		}
	} else if snapshot {
		if err := index.Import(ctx); err != nil {
			log.Debug().Err(err).Msg("No local snapshot to import")
		}
	}

	pipeline := ingest.NewPipeline(nil, nil)
	chunks, err := pipeline.ChunkFile(filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error chunking document")
	}

	embedder := embedding.NewProvider(&cfg.EmbedLLM)
	if !embedder.Available() {
		log.Fatal().Msg("Embedding provider is required for local ingestion")
	}
	for i := range chunks {
		chunks[i].Embedding = embedder.CreateEmbedding(ctx, chunks[i].Content)
	}

	if err := index.AddChunks(ctx, chunks); err != nil {
		log.Fatal().Err(err).Msg("Error storing chunks")
	}
	if snapshot {
		if err := index.Export(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error exporting snapshot")
		}
	}
	log.Info().Int("chunks", len(chunks)).Msg("Local ingestion complete")
}

func backfillEmbeddings(ctx context.Context) {
	cfg, pg, cleanup := openPostgres(ctx)
	defer cleanup()

	embedder := embedding.NewProvider(&cfg.EmbedLLM)
	pipeline := ingest.NewPipeline(pg, embedder)

	embedded, err := pipeline.BackfillEmbeddings(ctx, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Error backfilling embeddings")
	}
	log.Info().Int("embedded", embedded).Msg("Backfill complete")
}

func answerQuery(ctx context.Context, query, docIDs string) {
	cfg, pg, cleanup := openPostgres(ctx)
	defer cleanup()

	embedder := embedding.NewProvider(&cfg.EmbedLLM)
	ret := retriever.New(pg, embedder, retrieverConfig(cfg))
	gen := genai.NewClient(&cfg.ChatLLM)
	comp := composer.New(ret, gen, cfg.RAG.UseVectorSearch)

	ids, err := parseDocumentIDs(docIDs)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid -docs value")
	}

	var docs []models.Document
	if len(ids) > 0 {
		docs, err = pg.FetchDocuments(ctx, ids)
	} else {
		docs, err = pg.ListDocuments(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading documents")
	}
	records := make([]composer.DocumentRecord, 0, len(docs))
	for _, doc := range docs {
		fd, err := pg.LatestFinancialData(ctx, doc.ID)
		if err != nil {
			log.Fatal().Err(err).Msg("Error loading financial data")
		}
		records = append(records, composer.DocumentRecord{Document: doc, Financials: fd})
	}

	answer := comp.Answer(ctx, query, records, true)
	printAnswer(query, answer)
}

func answerQueryLocal(ctx context.Context, query string) {
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	index, snapshot := openLocalIndex(cfg)
	if snapshot {
		if err := index.Import(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error importing snapshot")
		}
	}

	embedder := embedding.NewProvider(&cfg.EmbedLLM)
	ret := &localRetriever{index: index, embedder: embedder, cfg: retrieverConfig(cfg)}
	gen := genai.NewClient(&cfg.ChatLLM)
	comp := composer.New(ret, gen, true)

	answer := comp.Answer(ctx, query, nil, true)
	printAnswer(query, answer)
}

func openPostgres(ctx context.Context) (*config.Config, *store.Postgres, func()) {
	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	sqldb, err := store.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	db := store.NewDB(sqldb, cfg.Database.Debug)

	pg := store.NewPostgres(db)
	if err := pg.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	return cfg, pg, func() { pg.Close() }
}

// openLocalIndex opens the embedded vector index. A configured encryption
// key selects snapshot mode: the index is in-memory and persists through
// Export/Import of an encrypted file.
func openLocalIndex(cfg *config.Config) (*store.ChromemIndex, bool) {
	dbPath := cfg.RAG.VectorDBPath
	if dbPath == "" {
		dbPath = vectorDBPath
	}
	if err := helper.CreateFolder(dbPath); err != nil {
		log.Fatal().Err(err).Msg("Error creating folder")
	}

	snapshot := cfg.RAG.EncryptionKey != ""
	index, err := store.NewChromemIndex(dbPath, cfg.RAG.Collection, snapshot, cfg.RAG.EncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector database")
	}
	return index, snapshot
}

// parseDocumentIDs reads the -docs flag value. Empty means all documents.
func parseDocumentIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid document ID %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func retrieverConfig(cfg *config.Config) retriever.Config {
	rc := retriever.DefaultConfig()
	rc.TopK = cfg.RAG.TopK
	rc.MaxChunkChars = cfg.RAG.MaxChunkChars
	rc.MaxContextChars = cfg.RAG.MaxContextChars
	return rc
}

func printAnswer(query, answer string) {
	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", answer)
}

// localRetriever adapts the embedded vector index to the composer's
// retrieval interface. Similarity ranking happens inside chromem, so only
// query embedding and context formatting live here.
type localRetriever struct {
	index    *store.ChromemIndex
	embedder *embedding.Provider
	cfg      retriever.Config
}

func (r *localRetriever) GetRelevantChunks(ctx context.Context, query string, documentIDs []int64, useVectorSearch bool) ([]models.Chunk, error) {
	if !r.embedder.Available() {
		return nil, fmt.Errorf("embedding provider unavailable")
	}
	queryVec := r.embedder.CreateEmbedding(ctx, query)
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("query embedding failed")
	}
	return r.index.Search(ctx, queryVec, r.cfg.TopK, documentIDs)
}

func (r *localRetriever) FormatChunksForContext(chunks []models.Chunk) string {
	return retriever.FormatContext(chunks, r.cfg)
}
