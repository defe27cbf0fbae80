// Package segmenter turns raw page text into typed content blocks.
package segmenter

import (
	"regexp"
	"strings"

	"balancesheet-rag/internal/models"
)

var tableMarkerRe = regexp.MustCompile(models.TableMarkerRegex)

// Segment walks pages in order and emits one or two blocks per page. A page
// carrying a table-section marker is split into a narrative prefix (when
// non-empty) and a raw-table suffix, both tagged with the same page number.
// Pages with no text produce no block.
func Segment(pages []models.PageText) []models.ContentBlock {
	var blocks []models.ContentBlock

	for _, page := range pages {
		loc := tableMarkerRe.FindStringIndex(page.Text)
		if loc != nil {
			narrative := page.Text[:loc[0]]
			if strings.TrimSpace(narrative) != "" {
				blocks = append(blocks, models.ContentBlock{
					Text:       narrative,
					PageNumber: page.Number,
					Kind:       models.BlockNarrative,
				})
			}
			blocks = append(blocks, models.ContentBlock{
				Text:       page.Text[loc[0]:],
				PageNumber: page.Number,
				Kind:       models.BlockRawTable,
			})
			continue
		}

		if strings.TrimSpace(page.Text) != "" {
			blocks = append(blocks, models.ContentBlock{
				Text:       page.Text,
				PageNumber: page.Number,
				Kind:       models.BlockNarrative,
			})
		}
	}

	return blocks
}
