package retriever

import (
	"context"
	"strings"
	"testing"

	"balancesheet-rag/internal/models"
)

type fakeStore struct {
	chunks []models.Chunk
	err    error
}

func (f *fakeStore) FetchChunks(ctx context.Context, documentIDs []int64, section models.SectionLabel) ([]models.Chunk, error) {
	return f.chunks, f.err
}

type fakeEmbedder struct {
	vectors map[string]models.Vector
}

func (f *fakeEmbedder) Available() bool { return f != nil }

func (f *fakeEmbedder) CreateEmbedding(ctx context.Context, text string) models.Vector {
	return f.vectors[text]
}

func chunk(id int64, label models.SectionLabel, title, content string, embedding models.Vector) models.Chunk {
	c := models.Chunk{
		ID:           id,
		DocumentID:   1,
		SectionLabel: label,
		ChunkKind:    models.KindNarrativeText,
		StartPage:    int(id),
		EndPage:      int(id),
		SourceTitle:  title,
		Content:      content,
	}
	c.Normalize()
	c.Embedding = embedding
	return c
}

func TestNewDefaultsOnlyZeroFields(t *testing.T) {
	custom := Config{
		BalanceSheetKeywords: []string{"inventory", "working capital"},
		MaxChunkChars:        1000,
	}
	r := New(&fakeStore{}, nil, custom)

	if len(r.cfg.BalanceSheetKeywords) != 2 || r.cfg.BalanceSheetKeywords[0] != "inventory" {
		t.Errorf("custom keyword table discarded: %v", r.cfg.BalanceSheetKeywords)
	}
	if r.cfg.MaxChunkChars != 1000 {
		t.Errorf("MaxChunkChars = %d, want 1000", r.cfg.MaxChunkChars)
	}
	if r.cfg.TopK != 8 {
		t.Errorf("TopK = %d, want default 8", r.cfg.TopK)
	}
	if r.cfg.MaxContextChars != 8000 {
		t.Errorf("MaxContextChars = %d, want default 8000", r.cfg.MaxContextChars)
	}
}

func TestGetRelevantChunksEmptyStore(t *testing.T) {
	r := New(&fakeStore{}, nil, DefaultConfig())
	got, err := r.GetRelevantChunks(context.Background(), "total assets", []int64{1}, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestKeywordSearchRanksAndFilters(t *testing.T) {
	store := &fakeStore{chunks: []models.Chunk{
		chunk(1, models.SectionOther, "", "segment reporting disclosures only", nil),
		chunk(2, models.SectionBalanceSheet, "Balance Sheet", "total assets and revenue for the year", nil),
	}}
	r := New(store, nil, DefaultConfig())

	got, err := r.GetRelevantChunks(context.Background(), "total assets revenue", []int64{1}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d chunks, want 1: %+v", len(got), got)
	}
	if got[0].ID != 2 {
		t.Errorf("top chunk ID = %d, want 2", got[0].ID)
	}
}

func TestKeywordSearchTitleOutweighsContent(t *testing.T) {
	store := &fakeStore{chunks: []models.Chunk{
		chunk(1, models.SectionOther, "", "the word equity appears once here", nil),
		chunk(2, models.SectionOther, "Statement of Changes in Equity", "unrelated body text", nil),
	}}
	r := New(store, nil, DefaultConfig())

	got, err := r.GetRelevantChunks(context.Background(), "equity", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("title match should rank first, got ID %d", got[0].ID)
	}
}

func TestGetRelevantChunksCapsAtTopK(t *testing.T) {
	store := &fakeStore{}
	for i := int64(1); i <= 20; i++ {
		store.chunks = append(store.chunks,
			chunk(i, models.SectionNotes, "", "assets note body with assets in it", nil))
	}
	r := New(store, nil, DefaultConfig())

	got, err := r.GetRelevantChunks(context.Background(), "assets", nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 8 {
		t.Errorf("got %d chunks, want 8", len(got))
	}
}

func TestVectorSearchRanksBySimilarity(t *testing.T) {
	query := "what were total assets"
	embedder := &fakeEmbedder{vectors: map[string]models.Vector{
		query: {1, 0, 0},
	}}
	store := &fakeStore{chunks: []models.Chunk{
		chunk(1, models.SectionOther, "", "far away content", models.Vector{0, 1, 0}),
		chunk(2, models.SectionOther, "", "close content", models.Vector{0.9, 0.1, 0}),
	}}
	r := New(store, embedder, DefaultConfig())

	got, err := r.GetRelevantChunks(context.Background(), query, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d chunks, want 2", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("closest chunk should rank first, got ID %d", got[0].ID)
	}
}

func TestVectorSearchSectionBoost(t *testing.T) {
	// Same similarity for both chunks; the balance-sheet label must
	// decide the order because the query is a balance-sheet question.
	query := "total assets of the company"
	embedder := &fakeEmbedder{vectors: map[string]models.Vector{
		query: {1, 0},
	}}
	store := &fakeStore{chunks: []models.Chunk{
		chunk(1, models.SectionNotes, "", "xyz", models.Vector{1, 0}),
		chunk(2, models.SectionBalanceSheet, "", "xyz", models.Vector{1, 0}),
	}}
	r := New(store, embedder, DefaultConfig())

	got, err := r.GetRelevantChunks(context.Background(), query, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].ID != 2 {
		t.Errorf("boosted chunk should rank first, got ID %d", got[0].ID)
	}
}

func TestVectorSearchFallsBackOnMissingEmbeddings(t *testing.T) {
	query := "revenue for the latest year"
	embedder := &fakeEmbedder{vectors: map[string]models.Vector{
		query: {1, 0, 0},
	}}
	// Candidates carry no usable embedding, so the vector pass yields
	// nothing and keyword search must take over.
	store := &fakeStore{chunks: []models.Chunk{
		chunk(1, models.SectionIncomeStatement, "", "revenue from operations 1,200", nil),
		chunk(2, models.SectionOther, "", "director remuneration details", models.Vector{1, 0}),
	}}
	r := New(store, embedder, DefaultConfig())

	got, err := r.GetRelevantChunks(context.Background(), query, nil, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("keyword fallback returned nothing")
	}
	if got[0].ID != 1 {
		t.Errorf("got ID %d, want 1", got[0].ID)
	}
}

func TestFormatContext(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("empty chunk list yields placeholder", func(t *testing.T) {
		if got := FormatContext(nil, cfg); got != models.NoContextPlaceholder {
			t.Errorf("got %q", got)
		}
	})

	t.Run("headers carry provenance", func(t *testing.T) {
		chunks := []models.Chunk{
			chunk(3, models.SectionBalanceSheet, "Balance Sheet", "Total assets 1,500", nil),
		}
		got := FormatContext(chunks, cfg)
		if !strings.HasPrefix(got, "[Page 3] Balance Sheet (Narrative_Text)") {
			t.Errorf("header missing or wrong: %q", got)
		}
		if !strings.Contains(got, "Total assets 1,500") {
			t.Error("content missing")
		}
	})

	t.Run("period appears in the header when set", func(t *testing.T) {
		c := chunk(3, models.SectionBalanceSheet, "Balance Sheet", "Total assets 1,500", nil)
		c.Period = "as at 31st March 2023"
		got := FormatContext([]models.Chunk{c}, cfg)
		if !strings.HasPrefix(got, "[Page 3] Balance Sheet, as at 31st March 2023 (Narrative_Text)") {
			t.Errorf("header missing period: %q", got)
		}
	})

	t.Run("untitled chunk falls back to section label", func(t *testing.T) {
		chunks := []models.Chunk{
			chunk(1, models.SectionNotes, "", "note body", nil),
		}
		got := FormatContext(chunks, cfg)
		if !strings.Contains(got, "[Page 1] NOTES") {
			t.Errorf("label fallback missing: %q", got)
		}
	})

	t.Run("oversized chunk is truncated", func(t *testing.T) {
		chunks := []models.Chunk{
			chunk(1, models.SectionNotes, "Notes", strings.Repeat("a", cfg.MaxChunkChars+500), nil),
		}
		got := FormatContext(chunks, cfg)
		if len(got) > cfg.MaxChunkChars+100 {
			t.Errorf("formatted length %d exceeds chunk budget", len(got))
		}
	})

	t.Run("accumulation stops at the context budget", func(t *testing.T) {
		big := strings.Repeat("b", cfg.MaxChunkChars)
		chunks := []models.Chunk{
			chunk(1, models.SectionNotes, "A", big, nil),
			chunk(2, models.SectionNotes, "B", big, nil),
			chunk(3, models.SectionNotes, "C", big, nil),
		}
		got := FormatContext(chunks, cfg)
		if strings.Contains(got, "[Page 3]") {
			t.Error("third chunk should not fit the context budget")
		}
		if !strings.Contains(got, "[Page 1]") {
			t.Error("first chunk must always be included")
		}
	})
}
