package domain

import "strings"

// Category is the closed set of document classes the analyzer understands.
type Category string

const (
	CategoryInvoice  Category = "Invoice"
	CategoryContract Category = "Contract"
	CategoryReport   Category = "Report"

	// CategoryUnknown is a fallback value only. The classifier never returns
	// it as an argmax and no field extractor exists for it.
	CategoryUnknown Category = "Unknown"
)

// Categories returns every member in declaration order. The classifier relies
// on this order for its deterministic tie-break.
func Categories() []Category {
	return []Category{CategoryInvoice, CategoryContract, CategoryReport, CategoryUnknown}
}

// SupportedCategories returns the categories that have a field extractor.
func SupportedCategories() []Category {
	return []Category{CategoryInvoice, CategoryContract, CategoryReport}
}

// ParseCategory maps a label to a Category, case-insensitively.
// Anything unrecognized maps to CategoryUnknown.
func ParseCategory(label string) Category {
	for _, c := range SupportedCategories() {
		if strings.EqualFold(label, string(c)) {
			return c
		}
	}
	return CategoryUnknown
}

// Label is the exact token the completion service is asked to emit.
func (c Category) Label() string { return string(c) }

// Key is the canonical lower-case form used in persisted records.
func (c Category) Key() string { return strings.ToLower(string(c)) }
