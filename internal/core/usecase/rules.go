package usecase

import (
	"regexp"
	"strconv"
	"strings"
)

// fieldRule binds one rule-based field to an ordered list of patterns. The
// first pattern whose parsed value is non-empty wins. parse receives the
// submatch slice; when nil, the trimmed first capture group is used as-is.
type fieldRule struct {
	field    string
	patterns []*regexp.Regexp
	parse    func(match []string) (any, bool)
}

func (r fieldRule) apply(text string) (any, bool) {
	for _, pattern := range r.patterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		if r.parse != nil {
			if value, ok := r.parse(match); ok {
				return value, true
			}
			continue
		}
		if value := strings.TrimSpace(match[1]); value != "" {
			return value, true
		}
	}
	return nil, false
}

// datePattern accepts 12/31/2024, 31-12-24, 2024-12-31 and "Dec 31, 2024"
// style dates. Matched dates are kept verbatim; normalization is left to the
// model pass and downstream consumers.
const datePattern = `(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})`

const amountPattern = `([\d,]+(?:\.\d+)?)`

func parseAmount(match []string) (any, bool) {
	raw := strings.ReplaceAll(match[1], ",", "")
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return amount, true
}

func invoiceRules() []fieldRule {
	return []fieldRule{
		{
			field: "vendor_name",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?im)^(?:from|vendor|bill from|invoice from|billed by)[:\s]+(.+?)\s*$`),
				regexp.MustCompile(`(?m)^([A-Z][A-Za-z .,&'-]+(?:Inc|Corp|LLC|Ltd|Co|Company|GmbH))\.?\s*$`),
			},
		},
		{
			field: "total_amount",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:grand total|total due|amount due|total amount|total)[:\s]*(?:USD|EUR|GBP)?\s*[$€£]?\s*` + amountPattern),
			},
			parse: parseAmount,
		},
		{
			field: "currency",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(USD|EUR|GBP)\b`),
				regexp.MustCompile(`([$€£])\s*[\d,]`),
			},
			parse: parseCurrency,
		},
		{
			field: "invoice_date",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:invoice date|date of issue|issued(?: on)?|date)[:\s]*` + datePattern),
			},
		},
		{
			field: "due_date",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:due date|payment due(?: by)?|pay by|due on)[:\s]*` + datePattern),
			},
		},
	}
}

func parseCurrency(match []string) (any, bool) {
	switch strings.ToUpper(strings.TrimSpace(match[1])) {
	case "USD", "$":
		return "USD", true
	case "EUR", "€":
		return "EUR", true
	case "GBP", "£":
		return "GBP", true
	}
	return nil, false
}

func contractRules() []fieldRule {
	return []fieldRule{
		{
			field: "parties",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:by and )?between\s+(.+?)\s+and\s+(.+?)(?:[,.;(]|\n|$)`),
			},
			parse: parseParties,
		},
		{
			field: "effective_date",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:effective (?:as of|date|on)|dated(?: as of)?|commencing on)[:\s]*` + datePattern),
			},
		},
		{
			field: "termination_date",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:termination date|terminates? on|expir(?:es|ation)(?: date| on)?)[:\s]*` + datePattern),
			},
		},
		{
			field: "contract_type",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(master services agreement|service agreement|employment agreement|lease agreement|purchase agreement|license agreement|non-disclosure agreement|consulting agreement)\b`),
			},
			parse: func(match []string) (any, bool) {
				return strings.ToLower(match[1]), true
			},
		},
	}
}

func parseParties(match []string) (any, bool) {
	parties := make([]string, 0, len(match)-1)
	for _, raw := range match[1:] {
		if party := strings.TrimSpace(raw); party != "" {
			parties = append(parties, party)
		}
	}
	if len(parties) == 0 {
		return nil, false
	}
	return parties, true
}

func reportRules() []fieldRule {
	return []fieldRule{
		{
			field: "reporting_period",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)((?:quarter|three months|six months|nine months|year)\s+end(?:ed|ing)\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})`),
				regexp.MustCompile(`\b(Q[1-4]\s+(?:FY)?\d{4})\b`),
			},
		},
		{
			field: "report_date",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(?:report date|released(?: on)?|as of)[:\s]*` + datePattern),
			},
		},
		{
			field: "company_name",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?m)^([A-Z][A-Za-z .,&'-]+(?:Inc|Corp|Corporation|LLC|Ltd|Company|Group|Holdings))\.?\s*$`),
			},
		},
		{
			field: "fiscal_year",
			patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)fiscal year[\s:]*(\d{4})`),
				regexp.MustCompile(`\bFY\s?(\d{4})\b`),
			},
		},
	}
}
