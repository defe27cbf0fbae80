// Package genai adapts the external generative model. All provider
// specifics, including the finish-reason codes that mark a safety block,
// stay behind this boundary. A nil Result means the call failed or the
// provider is not configured; callers treat that as "no response", never as
// an error.
package genai

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"balancesheet-rag/internal/config"
)

// FinishReason is the normalized completion status of a generation.
type FinishReason int

const (
	ReasonUnknown FinishReason = iota
	ReasonStop
	ReasonLength
	ReasonSafety
)

// Result is one generation outcome.
type Result struct {
	Text   string
	Reason FinishReason
}

// Blocked reports whether the provider's safety filter refused the prompt.
func (r *Result) Blocked() bool {
	return r != nil && r.Reason == ReasonSafety
}

// Options are the generation knobs the composer tunes per attempt.
type Options struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
}

// Client holds a live-or-absent model handle.
type Client struct {
	llm llms.Model
}

// NewClient builds a client from config. Missing or broken configuration
// yields a client with no handle; Generate on it returns nil.
func NewClient(cfg *config.LLMConfig) *Client {
	if cfg == nil || cfg.Model == "" {
		return &Client{}
	}

	llm, err := newModel(cfg)
	if err != nil {
		log.Warn().Err(err).Str("model", cfg.Model).Msg("Generative model unavailable")
		return &Client{}
	}
	return &Client{llm: llm}
}

func newModel(cfg *config.LLMConfig) (llms.Model, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		return openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	}
}

// Available reports whether a model handle is configured.
func (c *Client) Available() bool {
	return c != nil && c.llm != nil
}

// Generate runs one completion. Transport and provider failures come back
// as nil.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) *Result {
	if !c.Available() {
		return nil
	}

	callOpts := []llms.CallOption{
		llms.WithTemperature(opts.Temperature),
	}
	if opts.TopP > 0 {
		callOpts = append(callOpts, llms.WithTopP(opts.TopP))
	}
	if opts.TopK > 0 {
		callOpts = append(callOpts, llms.WithTopK(opts.TopK))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	resp, err := c.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		log.Debug().Err(err).Msg("Generation call failed")
		return nil
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil
	}

	choice := resp.Choices[0]
	return &Result{
		Text:   choice.Content,
		Reason: mapStopReason(choice.StopReason),
	}
}

// mapStopReason folds the provider's finish-reason strings into the
// internal enum. Different backends report safety blocking as "SAFETY" or
// "content_filter"; both map to ReasonSafety.
func mapStopReason(reason string) FinishReason {
	switch r := strings.ToLower(strings.TrimSpace(reason)); {
	case r == "":
		return ReasonUnknown
	case strings.Contains(r, "safety"), strings.Contains(r, "content_filter"):
		return ReasonSafety
	case r == "length", r == "max_tokens":
		return ReasonLength
	case r == "stop", r == "end_turn", r == "stop_sequence":
		return ReasonStop
	default:
		return ReasonUnknown
	}
}
