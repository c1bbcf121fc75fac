package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/avolkov/document-analyzer/internal/core/domain"
	"github.com/avolkov/document-analyzer/internal/core/ports"
)

type fakeTextExtractor struct {
	text string
	err  error
}

func (f *fakeTextExtractor) ExtractText(context.Context, string) (string, error) {
	return f.text, f.err
}

func (f *fakeTextExtractor) ExtractTextChunk(context.Context, string, int) (string, error) {
	return f.text, f.err
}

type fakeClassifier struct {
	classification domain.Classification
	err            error
}

func (f *fakeClassifier) Classify(context.Context, string) (domain.Classification, error) {
	return f.classification, f.err
}

type fakeFieldExtractor struct {
	category   domain.Category
	extraction domain.FieldExtraction
	err        error
}

func (f *fakeFieldExtractor) Category() domain.Category { return f.category }

func (f *fakeFieldExtractor) Extract(context.Context, string) (domain.FieldExtraction, error) {
	return f.extraction, f.err
}

func invoiceClassification(confidence float64) domain.Classification {
	return domain.Classification{
		Category: domain.CategoryInvoice,
		Distribution: map[domain.Category]float64{
			domain.CategoryInvoice:  confidence,
			domain.CategoryContract: 0,
			domain.CategoryReport:   0,
			domain.CategoryUnknown:  0,
		},
	}
}

func writeTempDocument(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("%PDF-1.4 stub"), 0o644); err != nil {
		t.Fatalf("write temp document: %v", err)
	}
	return path
}

func TestAnalyzeProducesCanonicalResult(t *testing.T) {
	path := writeTempDocument(t, "invoice.pdf")

	extractor := &fakeFieldExtractor{
		category: domain.CategoryInvoice,
		extraction: domain.FieldExtraction{
			Category:   domain.CategoryInvoice,
			Fields:     map[string]any{"vendor_name": "Acme", "total_amount": 99.0},
			Confidence: 1.0,
			Method:     domain.MethodHybrid,
			Errors:     []string{},
		},
	}
	uc := NewAnalyzeUseCase(
		&fakeTextExtractor{text: "invoice text"},
		&fakeClassifier{classification: invoiceClassification(0.92)},
		NewSelector(extractor),
	)

	result, err := uc.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.ID == "" {
		t.Error("result id is empty")
	}
	if result.Filename != "invoice.pdf" {
		t.Errorf("filename = %q", result.Filename)
	}
	if result.Category != "invoice" {
		t.Errorf("category = %q, want lower-case invoice", result.Category)
	}
	if !almostEqual(result.ClassificationConfidence, 0.92) {
		t.Errorf("confidence = %v, want 0.92", result.ClassificationConfidence)
	}
	if result.Fields["vendor_name"] != "Acme" {
		t.Errorf("fields = %v", result.Fields)
	}
	if len(result.Errors) != 0 {
		t.Errorf("errors = %v, want none", result.Errors)
	}
	if result.ProcessingTime < 0 {
		t.Errorf("processing_time = %v", result.ProcessingTime)
	}
}

func TestAnalyzeMissingDocument(t *testing.T) {
	uc := NewAnalyzeUseCase(
		&fakeTextExtractor{text: "unused"},
		&fakeClassifier{classification: invoiceClassification(0.9)},
		NewSelector(),
	)

	_, err := uc.Analyze(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("Analyze() error = %v, want document-not-found", err)
	}
}

func TestAnalyzeUnreadableDocument(t *testing.T) {
	path := writeTempDocument(t, "garbled.pdf")
	uc := NewAnalyzeUseCase(
		&fakeTextExtractor{err: errors.New("no extractable text")},
		&fakeClassifier{classification: invoiceClassification(0.9)},
		NewSelector(),
	)

	_, err := uc.Analyze(context.Background(), path)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("Analyze() error = %v, want invalid-input", err)
	}
}

func TestAnalyzeClassificationFailureIsFatal(t *testing.T) {
	path := writeTempDocument(t, "doc.pdf")
	classifyErr := domain.WrapError(domain.ErrClassification, "constrained completion", errors.New("llm down"))
	uc := NewAnalyzeUseCase(
		&fakeTextExtractor{text: "text"},
		&fakeClassifier{err: classifyErr},
		NewSelector(),
	)

	_, err := uc.Analyze(context.Background(), path)
	if !domain.IsKind(err, domain.ErrClassification) {
		t.Fatalf("Analyze() error = %v, want classification error", err)
	}
}

func TestAnalyzeAbsorbsSelectorFailure(t *testing.T) {
	path := writeTempDocument(t, "doc.pdf")
	uc := NewAnalyzeUseCase(
		&fakeTextExtractor{text: "text"},
		&fakeClassifier{classification: invoiceClassification(0.5)},
		NewSelector(), // no extractors registered
	)

	result, err := uc.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze() error = %v, want absorbed selector failure", err)
	}
	if result.Category != "invoice" {
		t.Errorf("category = %q", result.Category)
	}
	if len(result.Fields) != 0 {
		t.Errorf("fields = %v, want empty", result.Fields)
	}
	if len(result.Errors) == 0 {
		t.Error("errors empty, want the selector failure recorded")
	}
}

func TestAnalyzeCarriesExtractionErrors(t *testing.T) {
	path := writeTempDocument(t, "doc.pdf")
	extractor := &fakeFieldExtractor{
		category: domain.CategoryInvoice,
		extraction: domain.FieldExtraction{
			Category: domain.CategoryInvoice,
			Fields:   map[string]any{"vendor_name": "Acme"},
			Method:   domain.MethodRuleFallback,
			Errors:   []string{"model extraction for invoice: rate limited"},
		},
	}
	uc := NewAnalyzeUseCase(
		&fakeTextExtractor{text: "text"},
		&fakeClassifier{classification: invoiceClassification(0.5)},
		NewSelector(extractor),
	)

	result, err := uc.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v, want the extraction error carried over", result.Errors)
	}
}

func TestAnalyzeBatchKeepsOrderAndIsolation(t *testing.T) {
	good := writeTempDocument(t, "good.pdf")
	missing := filepath.Join(t.TempDir(), "gone.pdf")

	extractor := &fakeFieldExtractor{
		category:   domain.CategoryInvoice,
		extraction: domain.FieldExtraction{Fields: map[string]any{}, Method: domain.MethodHybrid},
	}
	uc := NewAnalyzeUseCase(
		&fakeTextExtractor{text: "text"},
		&fakeClassifier{classification: invoiceClassification(0.8)},
		NewSelector(extractor),
	)

	entries := uc.AnalyzeBatch(context.Background(), []string{good, missing, good})
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	if entries[0].Result == nil || entries[0].Failure != nil {
		t.Errorf("slot 0 = %+v, want result", entries[0])
	}
	if entries[1].Failure == nil || entries[1].Result != nil {
		t.Errorf("slot 1 = %+v, want failure", entries[1])
	}
	if entries[2].Result == nil {
		t.Errorf("slot 2 = %+v, want result", entries[2])
	}

	failure := entries[1].Failure
	if failure.Filename != "gone.pdf" {
		t.Errorf("failure filename = %q", failure.Filename)
	}
	if failure.Error == "" {
		t.Error("failure error is empty")
	}
	if failure.Category != nil {
		t.Errorf("failure category = %v, want null", failure.Category)
	}
	if failure.Fields == nil || len(failure.Fields) != 0 {
		t.Errorf("failure fields = %v, want empty map", failure.Fields)
	}
}

var _ ports.DocumentAnalyzer = (*AnalyzeUseCase)(nil)
