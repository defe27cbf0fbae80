package composer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"balancesheet-rag/internal/models"
)

// Deterministic extraction over the context string, the last line of
// defense when the generative model is blocked. Matches the structured
// Period blocks first, then a handful of figure patterns common in Indian
// annual reports.

type structuredPattern struct {
	key     string
	pattern *regexp.Regexp
	name    string
}

var structuredPatterns = []structuredPattern{
	{"total assets", regexp.MustCompile(`Total Assets:\s*([\d,\.]+|N/A)`), "Total Assets"},
	{"revenue", regexp.MustCompile(`Revenue:\s*([\d,\.]+|N/A)`), "Revenue"},
	{"total liabilities", regexp.MustCompile(`Total Liabilities:\s*([\d,\.]+|N/A)`), "Total Liabilities"},
	{"total equity", regexp.MustCompile(`Total Equity:\s*([\d,\.]+|N/A)`), "Total Equity"},
	{"current assets", regexp.MustCompile(`Current Assets:\s*([\d,\.]+|N/A)`), "Current Assets"},
	{"current ratio", regexp.MustCompile(`Current Ratio:\s*([\d,\.]+|N/A)`), "Current Ratio"},
	{"debt", regexp.MustCompile(`Debt-to-Equity:\s*([\d,\.]+|N/A)`), "Debt-to-Equity"},
}

var currentAssetsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:\[Page\s+\d+\].*?(?:Balance\s+Sheet|Consolidated|Statement).*?)?Current\s+Assets[^\d]*?(\d{1,3}(?:[,\d]{3})*(?:\.\d+)?)`),
	regexp.MustCompile(`(?im)(?:^|\n|\.|,|;|\[)\s*Current\s+Assets[:\s]*[^\d]*?([\d,\.]+)`),
	regexp.MustCompile(`(?i)Current\s+Assets\s+(\d{1,3}(?:[,\d]{3})*(?:\.\d+)?)\s+(\d{1,3}(?:[,\d]{3})*(?:\.\d+)?)`),
	regexp.MustCompile(`(?is)Current\s+Assets.{0,300}?(\d{1,3}(?:[,\d]{3})*(?:\.\d+)?)`),
}

var goodwillPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)goodwill[^.]*?(?:amorti[sz]ed|amortization)[^.]*?(\d+)\s*years?`),
	regexp.MustCompile(`(?is)amortization[^.]*?goodwill[^.]*?(\d+)\s*years?`),
	regexp.MustCompile(`(?is)goodwill[^.]*?(\d+)\s*years?[^.]*?amorti`),
	regexp.MustCompile(`(?is)goodwill[^.]*?(?:over|for|period of)\s*(\d+)\s*years?`),
}

var (
	periodSplitRe   = regexp.MustCompile(`Period:\s*`)
	firstLineRe     = regexp.MustCompile(`^[^\n]+`)
	yearRe          = regexp.MustCompile(`(\d{4})`)
	snippetYearRe   = regexp.MustCompile(`(?i)(?:as\s+at|March|31st\s+March)\s*[,:\s]*(\d{4})`)
	fallbackYearRe  = regexp.MustCompile(`\b(20\d{2})\b`)
	nonNumericRe    = regexp.MustCompile(`[^\d,\.]`)
	hasDigitRe      = regexp.MustCompile(`\d`)
	currencyPrinter = message.NewPrinter(language.English)
)

// extractDirectFromContext pattern-matches the answer straight out of the
// context string.
func extractDirectFromContext(query, contextText string) string {
	if contextText == "" || strings.Contains(contextText, "No financial data") ||
		(strings.Contains(contextText, "No relevant") && len(contextText) < 100) {
		return noDataMsg
	}

	queryLower := strings.ToLower(query)

	if strings.Contains(contextText, "Period:") {
		if result := extractFromStructured(queryLower, contextText); result != "" {
			return result
		}
	}

	if strings.Contains(queryLower, "current assets") {
		if result := extractCurrentAssets(contextText); result != "" {
			return result
		}
	}

	if (strings.Contains(queryLower, "goodwill") && strings.Contains(queryLower, "amortization")) ||
		(strings.Contains(queryLower, "amortization") && strings.Contains(strings.ToLower(contextText), "goodwill")) {
		if result := extractGoodwillAmortization(contextText); result != "" {
			return result
		}
	}

	return cannotExtractMsg
}

// extractFromStructured reads metrics out of the "Period:" blocks produced
// by the financial-context fallback.
func extractFromStructured(queryLower, contextText string) string {
	var matched *structuredPattern
	for i := range structuredPatterns {
		if strings.Contains(queryLower, structuredPatterns[i].key) {
			matched = &structuredPatterns[i]
			break
		}
	}
	if matched == nil {
		return ""
	}

	var sections []string
	for _, s := range periodSplitRe.Split(contextText, -1) {
		if strings.TrimSpace(s) != "" {
			sections = append(sections, s)
		}
	}
	if len(sections) > 3 {
		sections = sections[:3]
	}

	var results []string
	for _, section := range sections {
		period := strings.TrimSpace(firstLineRe.FindString(section))
		if period == "" {
			continue
		}

		m := matched.pattern.FindStringSubmatch(section)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" || value == "N/A" {
			continue
		}

		num, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
		if err != nil {
			results = append(results, fmt.Sprintf("%s (%s): %s %s", matched.name, period, models.CurrencyMark, value))
			continue
		}

		if !strings.Contains(period, "as at") && !strings.Contains(period, "March") {
			if ym := yearRe.FindStringSubmatch(period); ym != nil {
				period = fmt.Sprintf("as at 31st March %s", ym[1])
			}
		}

		results = append(results, fmt.Sprintf("%s (%s): %s", matched.name, period, formatCurrency(num)))
	}

	return strings.Join(results, "\n")
}

// extractCurrentAssets pulls current-asset figures out of raw chunk text,
// trying patterns from most to least specific and stopping at the first
// that yields anything.
func extractCurrentAssets(contextText string) string {
	for _, pattern := range currentAssetsPatterns {
		matches := pattern.FindAllStringSubmatchIndex(contextText, 10)
		var results []string

		for _, loc := range matches {
			value := submatch(contextText, loc, 1)
			period := "Latest"
			if len(loc) >= 6 && loc[4] >= 0 {
				// Two captured figures mean current and previous year
				// columns; the second column is the comparative figure.
				value = submatch(contextText, loc, 2)
			}

			start := loc[0] - 300
			if start < 0 {
				start = 0
			}
			end := loc[1] + 300
			if end > len(contextText) {
				end = len(contextText)
			}
			snippet := contextText[start:end]

			if ym := snippetYearRe.FindStringSubmatch(snippet); ym != nil {
				period = "Year " + ym[1]
			} else if ym := fallbackYearRe.FindStringSubmatch(snippet); ym != nil {
				period = "Year " + ym[1]
			}

			numStr := strings.ReplaceAll(nonNumericRe.ReplaceAllString(value, ""), ",", "")
			if !hasDigitRe.MatchString(numStr) {
				continue
			}
			num, err := strconv.ParseFloat(numStr, 64)
			if err != nil || num < 100 {
				continue
			}

			line := fmt.Sprintf("Current Assets (%s): %s", period, formatCurrency(num))
			if !contains(results, line) {
				results = append(results, line)
			}
		}

		if len(results) > 0 {
			if len(results) > 2 {
				results = results[:2]
			}
			return strings.Join(results, "\n")
		}
	}
	return ""
}

func extractGoodwillAmortization(contextText string) string {
	for _, pattern := range goodwillPatterns {
		if m := pattern.FindStringSubmatch(contextText); m != nil {
			return fmt.Sprintf("Goodwill is amortized over %s years according to the Notes to Accounts.", m[1])
		}
	}
	return ""
}

// formatCurrency renders a rupee amount with Indian large-number units.
func formatCurrency(value float64) string {
	switch {
	case value >= 10000000:
		s := fmt.Sprintf("%s %.2f crore", models.CurrencyMark, value/10000000)
		return strings.Replace(s, ".00 ", " ", 1)
	case value >= 100000:
		s := fmt.Sprintf("%s %.2f lakh", models.CurrencyMark, value/100000)
		return strings.Replace(s, ".00 ", " ", 1)
	default:
		return fmt.Sprintf("%s %s", models.CurrencyMark, currencyPrinter.Sprintf("%.0f", value))
	}
}

func submatch(s string, loc []int, group int) string {
	lo, hi := loc[2*group], loc[2*group+1]
	if lo < 0 || hi < 0 {
		return ""
	}
	return s[lo:hi]
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
