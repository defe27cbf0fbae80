package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	ChatLLM  LLMConfig      `yaml:"chat_llm"`
	RAG      RAGConfig      `yaml:"rag"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type LLMConfig struct {
	// Provider selects the client constructor: "openai" for any
	// OpenAI-compatible endpoint, "ollama" for a local server.
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type RAGConfig struct {
	TopK            int    `yaml:"top_k"`
	MaxContextChars int    `yaml:"max_context_chars"`
	MaxChunkChars   int    `yaml:"max_chunk_chars"`
	UseVectorSearch bool   `yaml:"use_vector_search"`
	VectorDBPath    string `yaml:"vector_db_path"`
	Collection      string `yaml:"collection"`
	EncryptionKey   string `yaml:"encryption_key"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.RAG.TopK == 0 {
		c.RAG.TopK = 8
	}
	if c.RAG.MaxContextChars == 0 {
		c.RAG.MaxContextChars = 8000
	}
	if c.RAG.MaxChunkChars == 0 {
		c.RAG.MaxChunkChars = 4000
	}
	if c.RAG.Collection == "" {
		c.RAG.Collection = "statement_chunks"
	}
}
