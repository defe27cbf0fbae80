package embedding

import (
	"context"
	"testing"

	"balancesheet-rag/internal/config"
)

func TestNewProviderUnconfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.LLMConfig
	}{
		{"nil config", nil},
		{"empty model", &config.LLMConfig{Provider: "openai"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(tt.cfg)
			if p.Available() {
				t.Error("provider should not be available")
			}
			if vec := p.CreateEmbedding(context.Background(), "some text"); vec != nil {
				t.Errorf("got %v, want nil", vec)
			}
		})
	}
}

func TestCreateEmbeddingBlankText(t *testing.T) {
	p := &Provider{}
	if vec := p.CreateEmbedding(context.Background(), "   \n\t"); vec != nil {
		t.Errorf("got %v, want nil", vec)
	}
}

func TestCreateEmbeddingsBatchUnavailable(t *testing.T) {
	p := NewProvider(nil)
	got := p.CreateEmbeddingsBatch(context.Background(), []string{"a", "b", "c"})
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for i, vec := range got {
		if vec != nil {
			t.Errorf("entry %d = %v, want nil", i, vec)
		}
	}
}
