package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "postgres://localhost/statements"
  debug: true
embed_llm:
  provider: "ollama"
  base_url: "http://localhost:11434"
  model: "nomic-embed-text"
chat_llm:
  provider: "openai"
  key: "sk-test"
  model: "gpt-4o-mini"
rag:
  top_k: 5
  use_vector_search: true
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.DSN != "postgres://localhost/statements" || !cfg.Database.Debug {
		t.Errorf("database config = %+v", cfg.Database)
	}
	if cfg.EmbedLLM.Provider != "ollama" || cfg.EmbedLLM.Model != "nomic-embed-text" {
		t.Errorf("embed config = %+v", cfg.EmbedLLM)
	}
	if cfg.RAG.TopK != 5 {
		t.Errorf("TopK = %d, want 5", cfg.RAG.TopK)
	}
	if !cfg.RAG.UseVectorSearch {
		t.Error("UseVectorSearch not set")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "postgres://localhost/statements"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RAG.TopK != 8 {
		t.Errorf("TopK = %d, want default 8", cfg.RAG.TopK)
	}
	if cfg.RAG.MaxContextChars != 8000 {
		t.Errorf("MaxContextChars = %d, want default 8000", cfg.RAG.MaxContextChars)
	}
	if cfg.RAG.MaxChunkChars != 4000 {
		t.Errorf("MaxChunkChars = %d, want default 4000", cfg.RAG.MaxChunkChars)
	}
	if cfg.RAG.Collection != "statement_chunks" {
		t.Errorf("Collection = %q", cfg.RAG.Collection)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfig(t, "database: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}
