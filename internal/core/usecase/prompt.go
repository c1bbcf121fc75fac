package usecase

import (
	"strings"
	"unicode/utf8"
)

const classificationSystemPrompt = `You are a precise classifier of business documents.
Respond with exactly one word naming the document category: Invoice, Contract, or Report.
Do not add punctuation, quotes, or any other text.`

const classificationUserPromptTemplate = `Classify the document below into exactly one category.

Document:
{document_text}

Category:`

const documentPlaceholder = "{document_text}"

func buildClassificationUserPrompt(text string, maxChars int) string {
	snippet := escapeDelimiters(truncateChars(text, maxChars))
	return strings.ReplaceAll(classificationUserPromptTemplate, documentPlaceholder, snippet)
}

func buildExtractionUserPrompt(template, text string) string {
	return strings.ReplaceAll(template, documentPlaceholder, text)
}

// escapeDelimiters doubles the placeholder delimiter characters so document
// content can never collide with a template placeholder.
func escapeDelimiters(s string) string {
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}

// truncateChars cuts s to at most max bytes without splitting a rune.
func truncateChars(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return cut
}
