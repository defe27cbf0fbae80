// Package composer produces the final answer for a query. It builds
// context through the retriever (or from structured financial data), calls
// the generative model, and recovers from safety blocking with a neutral
// retry followed by deterministic pattern extraction. Every failure path
// resolves to a human-readable message; the composer never returns an
// error to its caller.
package composer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"balancesheet-rag/internal/genai"
	"balancesheet-rag/internal/models"
)

// ChunkRetriever is the retrieval collaborator.
type ChunkRetriever interface {
	GetRelevantChunks(ctx context.Context, query string, documentIDs []int64, useVectorSearch bool) ([]models.Chunk, error)
	FormatChunksForContext(chunks []models.Chunk) string
}

// Generator is the generative-model collaborator. A nil result means the
// call failed; the composer treats that as an absent response.
type Generator interface {
	Available() bool
	Generate(ctx context.Context, prompt string, opts genai.Options) *genai.Result
}

// DocumentRecord bundles a document with its extracted financial metrics
// for the structured-context fallback.
type DocumentRecord struct {
	Document   models.Document
	Financials *models.FinancialData
}

const (
	notConfiguredMsg = "The analysis model is not configured. Please set the chat model key in the configuration."
	blockedMsg       = "I'm having trouble processing your question due to content filtering. Please try rephrasing your question or ensure the balance sheet data has been properly uploaded."
	noDataMsg        = "No financial data available. Please upload balance sheet data first."
	cannotExtractMsg = "I couldn't extract that specific information. The data may need to be uploaded or the question rephrased."

	neutralContextLimit = 3000
	neutralMaxTokens    = 150
)

type Composer struct {
	retriever ChunkRetriever
	gen       Generator
	useVector bool
}

func New(retriever ChunkRetriever, gen Generator, useVectorSearch bool) *Composer {
	return &Composer{retriever: retriever, gen: gen, useVector: useVectorSearch}
}

// Answer runs the full pipeline for one query. useChunks selects
// chunk-based retrieval; when off (or when retrieval yields nothing) the
// context is built from each document's structured financial figures.
func (c *Composer) Answer(ctx context.Context, query string, docs []DocumentRecord, useChunks bool) string {
	if c.gen == nil || !c.gen.Available() {
		return notConfiguredMsg
	}

	contextText := c.buildContext(ctx, query, docs, useChunks)
	prompt := fmt.Sprintf(models.AnswerPromptTemplate, contextText, query)

	resp := c.generate(ctx, prompt)

	if resp == nil || resp.Blocked() || strings.TrimSpace(resp.Text) == "" {
		return c.recoverBlocked(ctx, query, contextText)
	}

	return cleanResponse(resp.Text)
}

// buildContext prefers retrieved chunks and falls back to a structured
// summary of stored financial figures.
func (c *Composer) buildContext(ctx context.Context, query string, docs []DocumentRecord, useChunks bool) string {
	if useChunks && c.retriever != nil {
		ids := make([]int64, 0, len(docs))
		for _, d := range docs {
			ids = append(ids, d.Document.ID)
		}

		chunks, err := c.retriever.GetRelevantChunks(ctx, query, ids, c.useVector)
		if err != nil {
			log.Debug().Err(err).Msg("Chunk retrieval failed, using financial context")
		}
		if len(chunks) > 0 {
			return c.retriever.FormatChunksForContext(chunks)
		}
	}

	return financialContext(docs)
}

// generate performs the primary completion and retries once with a minimal
// configuration on failure.
func (c *Composer) generate(ctx context.Context, prompt string) *genai.Result {
	resp := c.gen.Generate(ctx, prompt, genai.Options{Temperature: 0.0, TopP: 0.7, TopK: 10})
	if resp != nil {
		return resp
	}
	return c.gen.Generate(ctx, prompt, genai.Options{Temperature: 0.0})
}

// recoverBlocked handles a blocked or empty response: first an
// ultra-neutral reformulation, then deterministic extraction over the
// context, then a fixed message.
func (c *Composer) recoverBlocked(ctx context.Context, query, contextText string) string {
	if alt := c.retryNeutral(ctx, query, contextText); alt != "" && isValidResponse(alt) {
		return alt
	}

	if direct := extractDirectFromContext(query, contextText); direct != "" && isValidResponse(direct) {
		return direct
	}

	return blockedMsg
}

func (c *Composer) retryNeutral(ctx context.Context, query, contextText string) string {
	truncated := contextText
	if len(truncated) > neutralContextLimit {
		truncated = truncated[:neutralContextLimit]
	}
	prompt := fmt.Sprintf(models.NeutralPromptTemplate, truncated, query)

	resp := c.gen.Generate(ctx, prompt, genai.Options{Temperature: 0.0, MaxTokens: neutralMaxTokens})
	if resp == nil || resp.Blocked() {
		return ""
	}
	text := strings.TrimSpace(resp.Text)
	if len(text) <= 10 {
		return ""
	}
	return text
}

// isValidResponse rejects answers that merely restate a failure.
func isValidResponse(response string) bool {
	if response == "" {
		return false
	}
	lower := strings.ToLower(response)
	for _, indicator := range []string{"no ", "couldn't", "not found", "error", "failed"} {
		if strings.Contains(lower, indicator) {
			return false
		}
	}
	return true
}

// financialContext renders one labeled block per document period from the
// stored metrics, computing current ratio and debt-to-equity when they are
// not already stored.
func financialContext(docs []DocumentRecord) string {
	var parts []string

	for _, d := range docs {
		fd := d.Financials
		if fd == nil {
			continue
		}

		currentRatio := fd.CurrentRatio
		if currentRatio == nil && fd.CurrentAssets != nil && fd.CurrentLiabilities != nil && *fd.CurrentLiabilities != 0 {
			ratio := *fd.CurrentAssets / *fd.CurrentLiabilities
			currentRatio = &ratio
		}

		debtToEquity := fd.DebtToEquity
		if debtToEquity == nil && fd.TotalLiabilities != nil && fd.TotalEquity != nil && *fd.TotalEquity != 0 {
			ratio := *fd.TotalLiabilities / *fd.TotalEquity
			debtToEquity = &ratio
		}

		revenue := fd.Revenue
		if revenue == nil {
			revenue = fd.Sales
		}

		parts = append(parts, fmt.Sprintf(`Period: %s
Total Assets: %s
Current Assets: %s
Total Liabilities: %s
Total Equity: %s
Revenue: %s
Current Ratio: %s
Debt-to-Equity: %s`,
			d.Document.PeriodLabel(),
			fmtMetric(fd.TotalAssets),
			fmtMetric(fd.CurrentAssets),
			fmtMetric(fd.TotalLiabilities),
			fmtMetric(fd.TotalEquity),
			fmtMetric(revenue),
			fmtMetric(currentRatio),
			fmtMetric(debtToEquity),
		))
	}

	if len(parts) == 0 {
		return "No financial data available."
	}
	return strings.Join(parts, "\n\n")
}

func fmtMetric(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
