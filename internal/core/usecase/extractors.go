package usecase

import (
	"fmt"

	"github.com/avolkov/document-analyzer/internal/core/domain"
	"github.com/avolkov/document-analyzer/internal/core/ports"
)

const invoiceExtractionSystemPrompt = `You extract structured data from invoices.
Return a strict JSON object with these keys:
line_items (array of objects with description, quantity, unit_price, amount),
vendor_details (object with name, address, contact),
payment_terms (string),
invoice_number (string).
Use null for anything the invoice does not state. No markdown, no extra keys.`

const invoiceExtractionUserTemplate = `Extract the fields from this invoice.

Invoice:
{document_text}`

const contractExtractionSystemPrompt = `You extract structured data from contracts.
Return a strict JSON object with these keys:
key_terms (array of strings),
obligations (array of strings, one per party obligation),
payment_terms (string),
contract_value (number),
governing_law (string).
Use null for anything the contract does not state. No markdown, no extra keys.`

const contractExtractionUserTemplate = `Extract the fields from this contract.

Contract:
{document_text}`

const reportExtractionSystemPrompt = `You extract structured data from financial and business reports.
Return a strict JSON object with these keys:
key_metrics (object of metric name to value),
executive_summary (string, at most three sentences),
financial_highlights (array of strings),
risk_factors (array of strings),
outlook (string).
Use null for anything the report does not state. No markdown, no extra keys.`

const reportExtractionUserTemplate = `Extract the fields from this report.

Report:
{document_text}`

func invoiceSpec() extractorSpec {
	return extractorSpec{
		category:     domain.CategoryInvoice,
		ruleFields:   []string{"vendor_name", "total_amount", "currency", "invoice_date", "due_date"},
		modelFields:  []string{"line_items", "vendor_details", "payment_terms", "invoice_number"},
		systemPrompt: invoiceExtractionSystemPrompt,
		userTemplate: invoiceExtractionUserTemplate,
		rules:        invoiceRules(),
	}
}

func contractSpec() extractorSpec {
	return extractorSpec{
		category:     domain.CategoryContract,
		ruleFields:   []string{"parties", "effective_date", "termination_date", "contract_type"},
		modelFields:  []string{"key_terms", "obligations", "payment_terms", "contract_value", "governing_law"},
		systemPrompt: contractExtractionSystemPrompt,
		userTemplate: contractExtractionUserTemplate,
		rules:        contractRules(),
	}
}

func reportSpec() extractorSpec {
	return extractorSpec{
		category:     domain.CategoryReport,
		ruleFields:   []string{"reporting_period", "report_date", "company_name", "fiscal_year"},
		modelFields:  []string{"key_metrics", "executive_summary", "financial_highlights", "risk_factors", "outlook"},
		systemPrompt: reportExtractionSystemPrompt,
		userTemplate: reportExtractionUserTemplate,
		rules:        reportRules(),
	}
}

func NewInvoiceExtractor(completions ports.CompletionClient, cfg ExtractorConfig) *FieldExtractor {
	return newFieldExtractor(invoiceSpec(), completions, cfg)
}

func NewContractExtractor(completions ports.CompletionClient, cfg ExtractorConfig) *FieldExtractor {
	return newFieldExtractor(contractSpec(), completions, cfg)
}

func NewReportExtractor(completions ports.CompletionClient, cfg ExtractorConfig) *FieldExtractor {
	return newFieldExtractor(reportSpec(), completions, cfg)
}

// Selector dispatches a classified category to its field extractor. It never
// substitutes a default: reporting invoice fields for a contract would
// misstate their provenance.
type Selector struct {
	extractors map[domain.Category]ports.FieldExtractor
}

func NewSelector(extractors ...ports.FieldExtractor) *Selector {
	table := make(map[domain.Category]ports.FieldExtractor, len(extractors))
	for _, extractor := range extractors {
		table[extractor.Category()] = extractor
	}
	return &Selector{extractors: table}
}

// NewDefaultSelector wires the three concrete extractors.
func NewDefaultSelector(completions ports.CompletionClient, cfg ExtractorConfig) *Selector {
	return NewSelector(
		NewInvoiceExtractor(completions, cfg),
		NewContractExtractor(completions, cfg),
		NewReportExtractor(completions, cfg),
	)
}

func (s *Selector) Select(category domain.Category) (ports.FieldExtractor, error) {
	extractor, ok := s.extractors[category]
	if !ok {
		return nil, domain.WrapError(
			domain.ErrUnsupportedCategory,
			"select extractor",
			fmt.Errorf("no field extractor for category %q", category),
		)
	}
	return extractor, nil
}
