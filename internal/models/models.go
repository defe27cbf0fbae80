package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// SectionLabel is the coarse financial-statement category assigned to a chunk.
type SectionLabel string

const (
	SectionBalanceSheet    SectionLabel = "BALANCE_SHEET"
	SectionIncomeStatement SectionLabel = "INCOME_STATEMENT"
	SectionCashFlow        SectionLabel = "CASH_FLOW"
	SectionNotes           SectionLabel = "NOTES"
	SectionRatios          SectionLabel = "RATIOS"
	SectionOther           SectionLabel = "OTHER"
)

// ChunkKind describes how a chunk's content was produced.
type ChunkKind string

const (
	KindTableFS          ChunkKind = "Table_FS"
	KindNarrativeText    ChunkKind = "Narrative_Text"
	KindNarrativeNote    ChunkKind = "Narrative_Note"
	KindNarrativeIntro   ChunkKind = "Narrative_Intro"
	KindNarrativeGeneral ChunkKind = "Narrative_General"
)

// BlockKind tags a content block as prose or extracted table text.
type BlockKind string

const (
	BlockNarrative BlockKind = "Narrative_Text"
	BlockRawTable  BlockKind = "Raw_Table"
)

// PageText is one page of raw text pulled out of a source file.
type PageText struct {
	Number int
	Text   string
}

// ContentBlock is an intermediate unit produced by the segmenter. It only
// lives for the duration of chunking one document.
type ContentBlock struct {
	Text       string
	PageNumber int
	Kind       BlockKind
}

// Chunk is a stored, labeled unit of extracted document text with page
// provenance and an optional embedding.
type Chunk struct {
	bun.BaseModel `bun:"table:pdf_chunks,alias:c"`

	ID           int64        `bun:"id,pk,autoincrement"`
	DocumentID   int64        `bun:"document_id,notnull"`
	SectionLabel SectionLabel `bun:"section_label,notnull"`
	ChunkKind    ChunkKind    `bun:"chunk_kind,notnull"`
	StartPage    int          `bun:"start_page,notnull"`
	EndPage      int          `bun:"end_page,notnull"`
	PageRange    string       `bun:"page_range"`
	PrimaryPage  int          `bun:"primary_page"`
	SourceTitle  string       `bun:"source_title"`
	Period       string       `bun:"period"`
	Content      string       `bun:"content,notnull"`
	Confidence   float64      `bun:"confidence"`
	Embedding    Vector       `bun:"embedding,type:jsonb"`
	CreatedAt    time.Time    `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Normalize derives page_range and primary_page from start/end page and
// clamps the title and confidence into their valid ranges. It is applied
// before every persist so the derived fields can never drift.
func (c *Chunk) Normalize() {
	if c.EndPage < c.StartPage {
		c.EndPage = c.StartPage
	}
	if c.StartPage == c.EndPage {
		c.PageRange = fmt.Sprintf("%d", c.StartPage)
	} else {
		c.PageRange = fmt.Sprintf("%d-%d", c.StartPage, c.EndPage)
	}
	if c.PrimaryPage == 0 {
		c.PrimaryPage = c.StartPage
	}
	if len(c.SourceTitle) > MaxSourceTitleLen {
		c.SourceTitle = c.SourceTitle[:MaxSourceTitleLen]
	}
	if c.Confidence <= 0 || c.Confidence > 1 {
		c.Confidence = DefaultConfidence
	}
}

// HasEmbedding reports whether a usable vector has been computed.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ScoredChunk pairs a chunk with its retrieval score. The score is a rank
// key only and is never persisted.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// Document is one uploaded statement document (a company's balance sheet
// PDF for a reporting period).
type Document struct {
	bun.BaseModel `bun:"table:statement_documents,alias:d"`

	ID         int64     `bun:"id,pk,autoincrement"`
	Company    string    `bun:"company,notnull"`
	Year       int       `bun:"year,notnull"`
	Quarter    string    `bun:"quarter"`
	SourcePath string    `bun:"source_path"`
	UploadedAt time.Time `bun:"uploaded_at,nullzero,notnull,default:current_timestamp"`
}

// PeriodLabel renders the reporting period the way it appears in Indian
// annual reports.
func (d *Document) PeriodLabel() string {
	if d.Quarter != "" {
		return fmt.Sprintf("%d %s", d.Year, d.Quarter)
	}
	return fmt.Sprintf("as at 31st March %d", d.Year)
}

// FinancialData holds the structured metrics extracted from one document.
// Pointer fields distinguish "not found" from zero.
type FinancialData struct {
	bun.BaseModel `bun:"table:financial_data,alias:f"`

	ID         int64 `bun:"id,pk,autoincrement"`
	DocumentID int64 `bun:"document_id,notnull"`

	TotalAssets           *float64 `bun:"total_assets"`
	CurrentAssets         *float64 `bun:"current_assets"`
	NonCurrentAssets      *float64 `bun:"non_current_assets"`
	TotalLiabilities      *float64 `bun:"total_liabilities"`
	CurrentLiabilities    *float64 `bun:"current_liabilities"`
	NonCurrentLiabilities *float64 `bun:"non_current_liabilities"`
	TotalEquity           *float64 `bun:"total_equity"`

	Revenue *float64 `bun:"revenue"`
	Sales   *float64 `bun:"sales"`

	OperatingCashFlow *float64 `bun:"operating_cash_flow"`
	InvestingCashFlow *float64 `bun:"investing_cash_flow"`
	FinancingCashFlow *float64 `bun:"financing_cash_flow"`
	NetCashFlow       *float64 `bun:"net_cash_flow"`

	CurrentRatio *float64 `bun:"current_ratio"`
	DebtToEquity *float64 `bun:"debt_to_equity"`
	ROE          *float64 `bun:"roe"`

	BalanceCheck bool     `bun:"balance_check"`
	Warnings     []string `bun:"warnings,type:jsonb"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
