package segmenter

import (
	"testing"

	"balancesheet-rag/internal/models"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name  string
		pages []models.PageText
		want  []models.ContentBlock
	}{
		{
			name: "plain narrative page",
			pages: []models.PageText{
				{Number: 1, Text: "Directors' report for the year."},
			},
			want: []models.ContentBlock{
				{Text: "Directors' report for the year.", PageNumber: 1, Kind: models.BlockNarrative},
			},
		},
		{
			name: "marker splits narrative and table",
			pages: []models.PageText{
				{Number: 4, Text: "Summary of borrowings.\nThe following table:\nParticulars  2023  2022\nTotal  100  90"},
			},
			want: []models.ContentBlock{
				{Text: "Summary of borrowings.\n", PageNumber: 4, Kind: models.BlockNarrative},
				{Text: "The following table:\nParticulars  2023  2022\nTotal  100  90", PageNumber: 4, Kind: models.BlockRawTable},
			},
		},
		{
			name: "marker at page start yields table only",
			pages: []models.PageText{
				{Number: 2, Text: "The following table:\nAssets  500"},
			},
			want: []models.ContentBlock{
				{Text: "The following table:\nAssets  500", PageNumber: 2, Kind: models.BlockRawTable},
			},
		},
		{
			name: "marker is case insensitive",
			pages: []models.PageText{
				{Number: 3, Text: "Intro.\nTHE FOLLOWING TABLE:\nRow  1"},
			},
			want: []models.ContentBlock{
				{Text: "Intro.\n", PageNumber: 3, Kind: models.BlockNarrative},
				{Text: "THE FOLLOWING TABLE:\nRow  1", PageNumber: 3, Kind: models.BlockRawTable},
			},
		},
		{
			name: "blank pages are dropped",
			pages: []models.PageText{
				{Number: 1, Text: "   \n\t"},
				{Number: 2, Text: "Real content."},
			},
			want: []models.ContentBlock{
				{Text: "Real content.", PageNumber: 2, Kind: models.BlockNarrative},
			},
		},
		{
			name:  "no pages",
			pages: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Segment(tt.pages)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d blocks, want %d: %+v", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("block %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
