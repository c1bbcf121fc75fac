package usecase

import (
	"context"
	"errors"
	"math"

	"github.com/avolkov/document-analyzer/internal/core/domain"
	"github.com/avolkov/document-analyzer/internal/core/ports"
)

const (
	defaultTopLogProbs   = 20
	defaultClassifyChars = 5000
)

// Classifier is the category confidence model. It requests a single
// constrained completion token with ranked alternatives and converts the
// log-probabilities into a distribution over all categories.
type Classifier struct {
	completions ports.CompletionClient
	topK        int
	maxChars    int
}

func NewClassifier(completions ports.CompletionClient, topK, maxChars int) *Classifier {
	if topK <= 0 {
		topK = defaultTopLogProbs
	}
	if maxChars <= 0 {
		maxChars = defaultClassifyChars
	}
	return &Classifier{
		completions: completions,
		topK:        topK,
		maxChars:    maxChars,
	}
}

func (c *Classifier) Classify(ctx context.Context, text string) (domain.Classification, error) {
	userPrompt := buildClassificationUserPrompt(text, c.maxChars)

	completion, err := c.completions.CompleteConstrained(ctx, classificationSystemPrompt, userPrompt, c.topK)
	if err != nil {
		return domain.Classification{}, domain.WrapError(domain.ErrClassification, "constrained completion", err)
	}
	if len(completion.Ranked) == 0 {
		return domain.Classification{}, domain.WrapError(
			domain.ErrClassification,
			"constrained completion",
			errors.New("response carries no ranked log-probabilities"),
		)
	}

	distribution := make(map[domain.Category]float64, len(domain.Categories()))
	for _, category := range domain.Categories() {
		distribution[category] = 0.0
	}
	for _, candidate := range completion.Ranked {
		for _, category := range domain.SupportedCategories() {
			if candidate.Token == category.Label() {
				distribution[category] = math.Exp(candidate.LogProb)
			}
		}
	}

	// Argmax over the real categories in declaration order, so an all-zero
	// distribution deterministically resolves to the first one. The raw
	// completion token is kept for diagnostics only and never decides the
	// category.
	best := domain.SupportedCategories()[0]
	for _, category := range domain.SupportedCategories()[1:] {
		if distribution[category] > distribution[best] {
			best = category
		}
	}

	return domain.Classification{
		Category:     best,
		Distribution: distribution,
		RawResponse:  completion.Token,
	}, nil
}
