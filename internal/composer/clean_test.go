package composer

import (
	"strings"
	"testing"
)

func TestCleanResponseStripsVerbosePrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "analyst preamble",
			in:   "As a financial analyst, total assets were ₹ 500 crore.",
			want: "total assets were ₹ 500 crore.",
		},
		{
			name: "expert preamble",
			in:   "As an expert financial analyst reviewing the statements: Total assets: ₹ 500 crore.",
			want: "Total assets: ₹ 500 crore.",
		},
		{
			name: "no preamble untouched",
			in:   "Total assets were ₹ 500 crore.",
			want: "Total assets were ₹ 500 crore.",
		},
		{
			name: "whitespace trimmed",
			in:   "  answer here  ",
			want: "answer here",
		},
		{
			name: "empty stays empty",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanResponse(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanResponseDropsPaddingConnectorLines(t *testing.T) {
	padding := "However " + strings.Repeat("this caveat adds nothing to the figure ", 6)
	in := "Total assets: ₹ 500 crore\n" + padding

	got := cleanResponse(in)
	if strings.Contains(got, "However") {
		t.Errorf("padding connector line survived: %q", got)
	}
	if !strings.Contains(got, "₹ 500 crore") {
		t.Errorf("answer line lost: %q", got)
	}
}

func TestCleanResponseKeepsConnectorLineWithContent(t *testing.T) {
	in := "Total assets: ₹ 500 crore\nHowever, equity was ₹ 200 crore"
	got := cleanResponse(in)
	if !strings.Contains(got, "equity was ₹ 200 crore") {
		t.Errorf("connector line carrying a figure was dropped: %q", got)
	}
}

func TestCleanResponseCapsNumericAnswerAtTwoLines(t *testing.T) {
	in := "Total assets: ₹ 500 crore\n" +
		"Total liabilities: ₹ 300 crore\n" +
		"Total equity: ₹ 200 crore\n" +
		"Current ratio: 1.8"

	got := cleanResponse(in)
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "₹ 500 crore") || !strings.Contains(lines[1], "₹ 300 crore") {
		t.Errorf("wrong lines kept: %q", got)
	}
}
