// Package chunker turns an ordered block stream into labeled chunks. It is
// the structure-aware half of the retrieval core: it recognizes financial
// statements that span several pages, collapses each into a single chunk,
// and splits the remaining narrative on genuine note boundaries.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"balancesheet-rag/internal/models"
)

// HeadingPattern recognizes a financial-statement heading. Patterns are
// checked in slice order, first match wins.
type HeadingPattern struct {
	Pattern *regexp.Regexp
	Label   models.SectionLabel
	Name    string
}

// Config is the immutable pattern table the builder runs on. Build one with
// DefaultConfig and override fields as needed; the zero value is not usable.
type Config struct {
	HeadingPatterns []HeadingPattern

	// NoteBoundary marks the start of a note section in narrative text.
	NoteBoundary *regexp.Regexp

	// Continuation decides whether a page extends the currently open
	// statement region. Pluggable so the density heuristic can be tuned
	// without touching the folding pass.
	Continuation func(pageText string) bool

	// MergeThreshold is the minimum fragment size in characters; smaller
	// fragments are merged forward into the next one.
	MergeThreshold int

	// DropThreshold discards fragments that stay below this size even
	// after merging.
	DropThreshold int
}

// DefaultConfig returns the pattern table used in production. Heading
// patterns are ordered by priority: balance sheet first, then profit and
// loss, then cash flow.
func DefaultConfig() Config {
	return Config{
		HeadingPatterns: []HeadingPattern{
			{regexp.MustCompile(`(?im)^.*Consolidated Balance Sheet.*$`), models.SectionBalanceSheet, "Consolidated Balance Sheet"},
			{regexp.MustCompile(`(?im)^.*Balance Sheet.*$`), models.SectionBalanceSheet, "Balance Sheet"},
			{regexp.MustCompile(`(?im)^.*Statement of Profit and Loss.*$`), models.SectionIncomeStatement, "Statement of Profit and Loss"},
			{regexp.MustCompile(`(?im)^.*Profit and Loss.*$`), models.SectionIncomeStatement, "Profit and Loss"},
			{regexp.MustCompile(`(?im)^.*Statement of Cash Flows?.*$`), models.SectionCashFlow, "Statement of Cash Flows"},
			{regexp.MustCompile(`(?im)^.*Cash Flow.*$`), models.SectionCashFlow, "Cash Flow Statement"},
		},
		NoteBoundary:   regexp.MustCompile(models.NoteBoundaryRegex),
		Continuation:   NumericDensityContinuation,
		MergeThreshold: 300,
		DropThreshold:  50,
	}
}

var numberTokenRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// NumericDensityContinuation is the default "mostly numbers, not prose"
// test: a statement page keeps running while it has more than 10 numeric
// tokens and fewer than 500 word tokens.
func NumericDensityContinuation(pageText string) bool {
	numbers := len(numberTokenRe.FindAllString(pageText, -1))
	words := len(strings.Fields(pageText))
	return numbers > 10 && words < 500
}

// Builder produces chunks for one document at a time.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg}
}

// page groups the blocks that share a page number.
type page struct {
	number int
	blocks []models.ContentBlock
}

func (p *page) text() string {
	if len(p.blocks) == 1 {
		return p.blocks[0].Text
	}
	var parts []string
	for _, b := range p.blocks {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

// Build runs the two-step chunking pass over an ordered block stream. The
// scan is strictly forward and each page is claimed by at most one region.
func (b *Builder) Build(documentID int64, blocks []models.ContentBlock) []models.Chunk {
	pages := groupByPage(blocks)
	var chunks []models.Chunk

	i := 0
	for i < len(pages) {
		pat := b.matchHeading(pages[i].text())
		if pat == nil {
			chunks = append(chunks, b.chunkSinglePage(documentID, &pages[i])...)
			i++
			continue
		}

		// A heading opens a statement region. Fold in following pages
		// while they look like a statement continuation and don't open a
		// different statement type.
		j := i + 1
		for j < len(pages) {
			next := b.matchHeading(pages[j].text())
			if next != nil && next.Label != pat.Label {
				break
			}
			if !b.cfg.Continuation(pages[j].text()) {
				break
			}
			j++
		}

		chunks = append(chunks, b.chunkStatementRegion(documentID, pages[i:j], pat))
		i = j
	}

	log.Debug().Int("pages", len(pages)).Int("chunks", len(chunks)).Msg("Built chunks")
	return chunks
}

func groupByPage(blocks []models.ContentBlock) []page {
	var pages []page
	for _, block := range blocks {
		if len(pages) > 0 && pages[len(pages)-1].number == block.PageNumber {
			last := &pages[len(pages)-1]
			last.blocks = append(last.blocks, block)
			continue
		}
		pages = append(pages, page{number: block.PageNumber, blocks: []models.ContentBlock{block}})
	}
	return pages
}

func (b *Builder) matchHeading(pageText string) *HeadingPattern {
	for idx := range b.cfg.HeadingPatterns {
		if b.cfg.HeadingPatterns[idx].Pattern.MatchString(pageText) {
			return &b.cfg.HeadingPatterns[idx]
		}
	}
	return nil
}

// chunkStatementRegion collapses a run of statement pages into one chunk.
func (b *Builder) chunkStatementRegion(documentID int64, region []page, pat *HeadingPattern) models.Chunk {
	parts := make([]string, 0, len(region))
	for i := range region {
		parts = append(parts, region[i].text())
	}

	title := strings.TrimSpace(pat.Pattern.FindString(region[0].text()))
	if title == "" {
		title = pat.Name
	}

	chunk := models.Chunk{
		DocumentID:   documentID,
		SectionLabel: pat.Label,
		ChunkKind:    models.KindTableFS,
		StartPage:    region[0].number,
		EndPage:      region[len(region)-1].number,
		SourceTitle:  title,
		Content:      strings.Join(parts, "\n\n"),
	}
	chunk.Normalize()
	return chunk
}

// chunkSinglePage handles a page that no statement region claimed: raw
// table blocks become standalone table chunks, narrative blocks go through
// note splitting.
func (b *Builder) chunkSinglePage(documentID int64, p *page) []models.Chunk {
	var chunks []models.Chunk
	for _, block := range p.blocks {
		if strings.TrimSpace(block.Text) == "" {
			continue
		}
		switch block.Kind {
		case models.BlockRawTable:
			chunks = append(chunks, b.chunkRawTable(documentID, block))
		default:
			chunks = append(chunks, b.chunkNarrative(documentID, block)...)
		}
	}
	return chunks
}

func (b *Builder) chunkRawTable(documentID int64, block models.ContentBlock) models.Chunk {
	label := models.SectionOther
	title := ""
	if pat := b.matchHeading(block.Text); pat != nil {
		label = pat.Label
		title = strings.TrimSpace(pat.Pattern.FindString(block.Text))
	}
	if title == "" {
		title = fmt.Sprintf("Financial Statement Table - Page %d", block.PageNumber)
	}

	chunk := models.Chunk{
		DocumentID:   documentID,
		SectionLabel: label,
		ChunkKind:    models.KindTableFS,
		StartPage:    block.PageNumber,
		EndPage:      block.PageNumber,
		SourceTitle:  title,
		Content:      block.Text,
	}
	chunk.Normalize()
	return chunk
}

func (b *Builder) chunkNarrative(documentID int64, block models.ContentBlock) []models.Chunk {
	fragments := b.splitOnNoteBoundaries(block.Text)

	if len(fragments) <= 1 {
		content := strings.TrimSpace(block.Text)
		if content == "" {
			return nil
		}
		chunk := models.Chunk{
			DocumentID:   documentID,
			SectionLabel: models.SectionOther,
			ChunkKind:    models.KindNarrativeGeneral,
			StartPage:    block.PageNumber,
			EndPage:      block.PageNumber,
			SourceTitle:  fmt.Sprintf("Page %d General Text", block.PageNumber),
			Content:      content,
		}
		chunk.Normalize()
		return []models.Chunk{chunk}
	}

	var chunks []models.Chunk
	for _, fragment := range b.mergeFragments(fragments) {
		if len(fragment) < b.cfg.DropThreshold {
			continue
		}
		chunk := models.Chunk{
			DocumentID:   documentID,
			SectionLabel: models.SectionNotes,
			ChunkKind:    models.KindNarrativeText,
			StartPage:    block.PageNumber,
			EndPage:      block.PageNumber,
			SourceTitle:  fmt.Sprintf("Note Content - Page %d", block.PageNumber),
			Content:      fragment,
		}
		chunk.Normalize()
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitOnNoteBoundaries cuts content at each note heading. The heading
// stays attached to the fragment it opens. With no boundary the whole
// content comes back as a single fragment.
func (b *Builder) splitOnNoteBoundaries(content string) []string {
	locs := b.cfg.NoteBoundary.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return []string{content}
	}

	var fragments []string
	prev := 0
	for _, loc := range locs {
		if loc[0] > prev {
			fragments = append(fragments, content[prev:loc[0]])
		}
		prev = loc[0]
	}
	fragments = append(fragments, content[prev:])
	return fragments
}

// mergeFragments accumulates undersized fragments forward into the next one
// and flushes whenever the running piece reaches the merge threshold. The
// trailing remainder is flushed as-is; the caller applies the drop
// threshold.
func (b *Builder) mergeFragments(fragments []string) []string {
	var merged []string
	var pending strings.Builder

	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		if pending.Len() > 0 {
			pending.WriteString("\n")
		}
		pending.WriteString(fragment)
		if pending.Len() >= b.cfg.MergeThreshold {
			merged = append(merged, pending.String())
			pending.Reset()
		}
	}
	if pending.Len() > 0 {
		merged = append(merged, pending.String())
	}
	return merged
}
