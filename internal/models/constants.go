package models

const (
	// TableMarkerRegex splits a page into a narrative prefix and a raw table
	// suffix. The marker line is emitted by the table-extraction step.
	TableMarkerRegex = `(?i)The following table:\n`

	// NoteBoundaryRegex matches a genuine note heading: a literal Note/Notes
	// token followed by a number and a delimiter. Plain table references
	// ("refer to the following table") must not match.
	NoteBoundaryRegex = `(?im)^\s*(Notes?)\s+(\d+[A-Za-z]?)\s*[:.\-\s]`

	ContextSeparator = "\n\n---\n\n"

	// NoContextPlaceholder is returned when retrieval found nothing to cite.
	NoContextPlaceholder = "No relevant financial context found for your specific query."

	MaxSourceTitleLen = 200
	DefaultConfidence = 0.85

	// CurrencyMark is the rupee sign used throughout answer formatting.
	CurrencyMark = "₹"
)

var (
	// AnswerPromptTemplate wraps retrieved context and the user question.
	// Filled as (context, query).
	AnswerPromptTemplate = `Based on the financial documents provided below, answer the user's question.

FINANCIAL CONTEXT:
%s

QUESTION: %s

INSTRUCTIONS:
- Extract only information that appears in the financial context above
- Provide specific numbers with their units (e.g., ` + CurrencyMark + ` X crore, ` + CurrencyMark + ` Y lakh)
- If asking about "latest year", use the most recent period mentioned
- If the information is not in the context, state "Information not found in the provided documents"
- Keep the answer factual and concise (2-3 sentences maximum)

ANSWER:`

	// NeutralPromptTemplate is the stripped-down retry used after a safety
	// block. Filled as (truncated context, query).
	NeutralPromptTemplate = `Extract requested data from documents:

DOCUMENTS:
%s

REQUEST: %s

RESPONSE FORMAT: Numbers and facts only. If not found, write "Not found in documents".

RESPONSE:`
)
