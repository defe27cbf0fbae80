package genai

import (
	"context"
	"testing"

	"balancesheet-rag/internal/config"
)

func TestNewClientUnconfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  *config.LLMConfig
	}{
		{"nil config", nil},
		{"empty model", &config.LLMConfig{Provider: "openai"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.cfg)
			if c.Available() {
				t.Error("client should not be available")
			}
			if got := c.Generate(context.Background(), "prompt", Options{}); got != nil {
				t.Errorf("got %+v, want nil", got)
			}
		})
	}
}

func TestMapStopReason(t *testing.T) {
	tests := []struct {
		reason string
		want   FinishReason
	}{
		{"", ReasonUnknown},
		{"stop", ReasonStop},
		{"STOP", ReasonStop},
		{"end_turn", ReasonStop},
		{"stop_sequence", ReasonStop},
		{"length", ReasonLength},
		{"max_tokens", ReasonLength},
		{"SAFETY", ReasonSafety},
		{"content_filter", ReasonSafety},
		{"blocked_by_safety_filter", ReasonSafety},
		{"something_else", ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			if got := mapStopReason(tt.reason); got != tt.want {
				t.Errorf("mapStopReason(%q) = %v, want %v", tt.reason, got, tt.want)
			}
		})
	}
}

func TestResultBlocked(t *testing.T) {
	var nilResult *Result
	if nilResult.Blocked() {
		t.Error("nil result must not report blocked")
	}
	if (&Result{Reason: ReasonStop}).Blocked() {
		t.Error("stop must not report blocked")
	}
	if !(&Result{Reason: ReasonSafety}).Blocked() {
		t.Error("safety must report blocked")
	}
}
