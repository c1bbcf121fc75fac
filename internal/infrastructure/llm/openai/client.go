package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/avolkov/document-analyzer/internal/core/domain"
	"github.com/avolkov/document-analyzer/internal/infrastructure/resilience"
)

// Config holds the completion-service connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client implements ports.CompletionClient against an OpenAI-compatible chat
// completions endpoint. It is safe for concurrent use.
type Client struct {
	api      *goopenai.Client
	model    string
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:      goopenai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		executor: executor,
	}, nil
}

// CompleteConstrained requests a single completion token with the topK
// ranked alternatives and their log-probabilities. A response without a
// log-probability payload is an error, never a silent default.
func (c *Client) CompleteConstrained(ctx context.Context, system, user string, topK int) (domain.ConstrainedCompletion, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   1,
		Temperature: 0,
		LogProbs:    true,
		TopLogProbs: topK,
	}

	resp, err := c.createChatCompletion(ctx, "classify", req)
	if err != nil {
		return domain.ConstrainedCompletion{}, err
	}
	if len(resp.Choices) == 0 {
		return domain.ConstrainedCompletion{}, fmt.Errorf("openai classify: response has no choices")
	}

	choice := resp.Choices[0]
	if choice.LogProbs == nil || len(choice.LogProbs.Content) == 0 {
		return domain.ConstrainedCompletion{}, fmt.Errorf("openai classify: response carries no log-probabilities")
	}

	top := choice.LogProbs.Content[0].TopLogProbs
	ranked := make([]domain.TokenLogProb, 0, len(top))
	for _, candidate := range top {
		ranked = append(ranked, domain.TokenLogProb{
			Token:   candidate.Token,
			LogProb: candidate.LogProb,
		})
	}

	return domain.ConstrainedCompletion{
		Token:  strings.TrimSpace(choice.Message.Content),
		Ranked: ranked,
	}, nil
}

// CompleteJSON requests a completion constrained to a JSON object and returns
// the raw completion text. Parsing stays with the caller, which treats parse
// failures as recoverable.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: 0,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.createChatCompletion(ctx, "extract", req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai extract: response has no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) createChatCompletion(ctx context.Context, operation string, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	var resp goopenai.ChatCompletionResponse
	call := func(callCtx context.Context) error {
		var err error
		resp, err = c.api.CreateChatCompletion(callCtx, req)
		if err != nil {
			return fmt.Errorf("openai %s request: %w", operation, err)
		}
		return nil
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai."+operation, call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return goopenai.ChatCompletionResponse{}, wrapTemporaryIfNeeded("openai "+operation, err)
	}
	return resp, nil
}
