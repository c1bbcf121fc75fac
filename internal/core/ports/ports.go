package ports

import (
	"context"
	"io"

	"github.com/avolkov/document-analyzer/internal/core/domain"
)

// TextExtractor turns a local document file into plain text. Both methods
// fail on missing or unreadable files.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
	ExtractTextChunk(ctx context.Context, path string, maxChars int) (string, error)
}

// CompletionClient is the language-model completion service consumed by the
// core. CompleteConstrained requests a single token plus the topK ranked
// alternatives with log-probabilities. CompleteJSON requests a completion
// constrained to a JSON object and returns the raw text; the caller parses.
type CompletionClient interface {
	CompleteConstrained(ctx context.Context, system, user string, topK int) (domain.ConstrainedCompletion, error)
	CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// DocumentClassifier produces a confidence distribution over categories.
type DocumentClassifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// FieldExtractor runs the hybrid rule+model extraction for one category.
// Extract never fails past the call boundary; recoverable problems are
// accumulated in the outcome's Errors.
type FieldExtractor interface {
	Category() domain.Category
	Extract(ctx context.Context, text string) (domain.FieldExtraction, error)
}

// ExtractorSelector maps a classified category to its field extractor.
// Unknown or unrecognized categories yield domain.ErrUnsupportedCategory.
type ExtractorSelector interface {
	Select(category domain.Category) (FieldExtractor, error)
}

// DocumentAnalyzer is the orchestration entry point.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, path string) (*domain.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, paths []string) []domain.BatchEntry
}

// ResultStore is keyed persistence for canonical results. Put assigns an id
// when the record has none and stamps StoredAt at write time. Get and Delete
// report absence without error.
type ResultStore interface {
	Put(ctx context.Context, result *domain.AnalysisResult) (string, error)
	Get(ctx context.Context, id string) (*domain.AnalysisResult, bool, error)
	List(ctx context.Context) ([]domain.ResultSummary, error)
	Delete(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (domain.StoreStats, error)
}

// ObjectStorage stages uploaded documents for asynchronous analysis.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Path(key string) string
}

// AnalysisQueue decouples upload from analysis for the async flow.
type AnalysisQueue interface {
	PublishAnalysisRequested(ctx context.Context, req domain.AnalysisRequest) error
	SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisRequest) error) error
}
