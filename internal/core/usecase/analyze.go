package usecase

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/document-analyzer/internal/core/domain"
	"github.com/avolkov/document-analyzer/internal/core/ports"
)

// AnalyzeUseCase sequences classification, extractor selection, and field
// extraction into one canonical result per document.
type AnalyzeUseCase struct {
	texts      ports.TextExtractor
	classifier ports.DocumentClassifier
	selector   ports.ExtractorSelector
}

func NewAnalyzeUseCase(
	texts ports.TextExtractor,
	classifier ports.DocumentClassifier,
	selector ports.ExtractorSelector,
) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		texts:      texts,
		classifier: classifier,
		selector:   selector,
	}
}

// Analyze classifies and extracts one document. A missing path or a failed
// classification aborts the document; extraction problems are absorbed into
// the result's error list so a classified document always yields a result.
func (uc *AnalyzeUseCase) Analyze(ctx context.Context, path string) (*domain.AnalysisResult, error) {
	start := time.Now()

	if _, err := os.Stat(path); err != nil {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "stat document", err)
	}

	text, err := uc.texts.ExtractText(ctx, path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract document text", err)
	}

	classification, err := uc.classifier.Classify(ctx, text)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	analysisErrors := []string{}

	extractor, err := uc.selector.Select(classification.Category)
	if err != nil {
		analysisErrors = append(analysisErrors, err.Error())
	} else {
		extraction, err := extractor.Extract(ctx, text)
		if err != nil {
			analysisErrors = append(analysisErrors, err.Error())
		} else {
			fields = extraction.Fields
			analysisErrors = append(analysisErrors, extraction.Errors...)
		}
	}

	return &domain.AnalysisResult{
		ID:                       uuid.NewString(),
		Filename:                 filepath.Base(path),
		Category:                 classification.Category.Key(),
		ClassificationConfidence: classification.Confidence(),
		Fields:                   fields,
		ProcessingTime:           time.Since(start).Seconds(),
		Errors:                   analysisErrors,
	}, nil
}

// AnalyzeBatch processes documents independently and in order. A document
// that cannot be analyzed occupies its slot with a failure record instead of
// stopping the batch.
func (uc *AnalyzeUseCase) AnalyzeBatch(ctx context.Context, paths []string) []domain.BatchEntry {
	entries := make([]domain.BatchEntry, 0, len(paths))
	for _, path := range paths {
		result, err := uc.Analyze(ctx, path)
		if err != nil {
			slog.Error("batch document failed", "path", path, "error", err)
			entries = append(entries, domain.BatchEntry{Failure: &domain.FailureRecord{
				ID:       uuid.NewString(),
				Filename: filepath.Base(path),
				Error:    err.Error(),
				Fields:   map[string]any{},
			}})
			continue
		}
		entries = append(entries, domain.BatchEntry{Result: result})
	}
	return entries
}
