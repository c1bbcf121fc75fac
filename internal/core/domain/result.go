package domain

import (
	"encoding/json"
	"time"
)

// Classification is the outcome of the category confidence model for one
// document. Distribution holds an entry for every Category member; Category
// always equals the argmax of Distribution.
type Classification struct {
	Category     Category
	Distribution map[Category]float64
	RawResponse  string
}

// Confidence returns the winning entry of the distribution.
func (c Classification) Confidence() float64 {
	return c.Distribution[c.Category]
}

// Extraction method labels reported in FieldExtraction.Method.
const (
	MethodHybrid       = "hybrid"
	MethodRuleFallback = "rule_fallback"
)

// FieldExtraction is the outcome of one hybrid field-extraction run.
type FieldExtraction struct {
	Category       Category
	Fields         map[string]any
	Confidence     float64
	Method         string
	Errors         []string
	ElapsedSeconds float64
}

// AnalysisResult is the canonical record persisted and returned to callers.
// StoredAt is stamped by the result store at write time.
type AnalysisResult struct {
	ID                       string         `json:"id"`
	Filename                 string         `json:"filename"`
	Category                 string         `json:"category"`
	ClassificationConfidence float64        `json:"classification_confidence"`
	Fields                   map[string]any `json:"fields"`
	ProcessingTime           float64        `json:"processing_time"`
	Errors                   []string       `json:"errors"`
	StoredAt                 time.Time      `json:"stored_at"`
}

// FailureRecord fills a batch slot for a document that could not be analyzed.
// Category is always null and Fields always empty.
type FailureRecord struct {
	ID       string         `json:"id"`
	Filename string         `json:"filename"`
	Error    string         `json:"error"`
	Category *string        `json:"category"`
	Fields   map[string]any `json:"fields"`
}

// BatchEntry is one slot of a batch analysis: exactly one of Result or
// Failure is set.
type BatchEntry struct {
	Result  *AnalysisResult
	Failure *FailureRecord
}

func (e BatchEntry) MarshalJSON() ([]byte, error) {
	if e.Failure != nil {
		return json.Marshal(e.Failure)
	}
	return json.Marshal(e.Result)
}

// ResultSummary is the listing view of a stored result.
type ResultSummary struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Category   string    `json:"category"`
	Confidence float64   `json:"classification_confidence"`
	StoredAt   time.Time `json:"stored_at"`
	SizeBytes  int64     `json:"size_bytes"`
}

// StoreStats summarizes the result store contents.
type StoreStats struct {
	Count          int   `json:"count"`
	TotalSizeBytes int64 `json:"total_size"`
}

// AnalysisRequest is the payload queued for asynchronous analysis.
type AnalysisRequest struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Filename string `json:"filename"`
}
