package composer

import (
	"regexp"
	"strings"

	"balancesheet-rag/internal/models"
)

// Response cleanup: models tend to open with analyst boilerplate and pad
// numeric answers with discourse. The cleanup strips the boilerplate,
// drops padding lines, and caps multi-line numeric answers at two lines.

var verbosePrefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)^As an expert financial analyst.*?(:|,|\.)`),
	regexp.MustCompile(`(?is)^As a financial analyst.*?(:|,|\.)`),
	regexp.MustCompile(`(?is)^Based on the financial data.*?(:|,|\.)`),
	regexp.MustCompile(`(?is)^I have reviewed.*?(:|,|\.)`),
	regexp.MustCompile(`(?is)^According to.*?(:|,|\.)`),
	regexp.MustCompile(`(?is)^I must highlight.*?(:|,|\.)`),
	regexp.MustCompile(`(?is)^I understand your question.*?(:|,|\.)`),
}

var discourseConnectors = []string{
	"However", "Therefore", "While", "Although", "Additionally", "Furthermore",
}

func cleanResponse(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return text
	}

	for _, pattern := range verbosePrefixPatterns {
		text = strings.TrimSpace(pattern.ReplaceAllString(text, ""))
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if startsWithConnector(line) && !lineCarriesContent(line) {
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) > 0 {
		text = strings.TrimSpace(strings.Join(kept, "\n"))
	}

	lines := strings.Split(text, "\n")
	if len(lines) > 2 && strings.Contains(text, models.CurrencyMark) {
		var numeric []string
		for _, line := range lines {
			if strings.Contains(line, models.CurrencyMark) || hasDigitRe.MatchString(line) {
				numeric = append(numeric, line)
			}
		}
		if len(numeric) > 0 {
			if len(numeric) > 2 {
				numeric = numeric[:2]
			}
			text = strings.TrimSpace(strings.Join(numeric, "\n"))
		} else {
			text = strings.TrimSpace(strings.Join(lines[:2], "\n"))
		}
	}

	return text
}

func startsWithConnector(line string) bool {
	for _, connector := range discourseConnectors {
		if strings.HasPrefix(line, connector) {
			return true
		}
	}
	return false
}

// lineCarriesContent keeps a connector line that still holds an answer: a
// currency mark, a labeled figure, or anything short enough to be one.
func lineCarriesContent(line string) bool {
	return strings.Contains(line, models.CurrencyMark) || strings.Contains(line, ":") || len(line) < 200
}
