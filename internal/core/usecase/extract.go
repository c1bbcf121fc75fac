package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/avolkov/document-analyzer/internal/core/domain"
	"github.com/avolkov/document-analyzer/internal/core/ports"
)

const defaultExtractionMaxTokens = 2048

// extractorSpec fixes one category's extraction behavior at construction:
// which fields the rule pass owns, which the model pass owns, the prompts,
// and the rule table. Adding a category means adding one spec and one
// selector entry.
type extractorSpec struct {
	category     domain.Category
	ruleFields   []string
	modelFields  []string
	systemPrompt string
	userTemplate string
	rules        []fieldRule
}

// ExtractorConfig tunes the model pass of every field extractor.
type ExtractorConfig struct {
	MaxTokens int
	Timeout   time.Duration
}

// FieldExtractor runs the hybrid extraction protocol for one category:
// a deterministic rule pass over the text, then a JSON-object completion,
// merged with model keys winning. A failed model pass degrades to the rule
// results instead of failing the call.
type FieldExtractor struct {
	spec        extractorSpec
	completions ports.CompletionClient
	maxTokens   int
	timeout     time.Duration
}

func newFieldExtractor(spec extractorSpec, completions ports.CompletionClient, cfg ExtractorConfig) *FieldExtractor {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultExtractionMaxTokens
	}
	return &FieldExtractor{
		spec:        spec,
		completions: completions,
		maxTokens:   maxTokens,
		timeout:     cfg.Timeout,
	}
}

func (e *FieldExtractor) Category() domain.Category { return e.spec.category }

func (e *FieldExtractor) Extract(ctx context.Context, text string) (domain.FieldExtraction, error) {
	start := time.Now()

	ruleResults := e.extractRuleFields(text)

	fields := make(map[string]any, len(ruleResults))
	maps.Copy(fields, ruleResults)

	method := domain.MethodHybrid
	extractionErrors := []string{}

	modelResults, err := e.extractModelFields(ctx, text)
	if err != nil {
		method = domain.MethodRuleFallback
		extractionErrors = append(extractionErrors, err.Error())
	} else {
		// The model pass is authoritative for every key it emits, explicit
		// nulls included. Rule values are not restored for those keys.
		maps.Copy(fields, modelResults)
	}

	return domain.FieldExtraction{
		Category:       e.spec.category,
		Fields:         fields,
		Confidence:     e.confidence(fields),
		Method:         method,
		Errors:         extractionErrors,
		ElapsedSeconds: time.Since(start).Seconds(),
	}, nil
}

// extractRuleFields is the pure pattern pass. A field with no matching
// pattern is simply absent from the result.
func (e *FieldExtractor) extractRuleFields(text string) map[string]any {
	out := make(map[string]any)
	for _, rule := range e.spec.rules {
		if value, ok := rule.apply(text); ok {
			out[rule.field] = value
		}
	}
	return out
}

func (e *FieldExtractor) extractModelFields(ctx context.Context, text string) (map[string]any, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.completions.CompleteJSON(ctx, e.spec.systemPrompt, buildExtractionUserPrompt(e.spec.userTemplate, text), e.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("model extraction for %s: %w", e.spec.category.Key(), err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("parse model extraction json for %s: %w", e.spec.category.Key(), err)
	}
	return parsed, nil
}

func (e *FieldExtractor) confidence(fields map[string]any) float64 {
	expected := len(e.spec.ruleFields) + len(e.spec.modelFields)
	if expected == 0 {
		return 0.0
	}

	present := 0
	for _, name := range e.spec.ruleFields {
		if value, ok := fields[name]; ok && value != nil {
			present++
		}
	}
	for _, name := range e.spec.modelFields {
		if value, ok := fields[name]; ok && value != nil {
			present++
		}
	}
	return float64(present) / float64(expected)
}

// extractJSONObject trims a completion to its outermost JSON object, which
// tolerates models that wrap the object in prose or code fences.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
