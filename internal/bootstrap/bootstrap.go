package bootstrap

import (
	"context"
	"fmt"

	"github.com/avolkov/document-analyzer/internal/config"
	"github.com/avolkov/document-analyzer/internal/core/ports"
	"github.com/avolkov/document-analyzer/internal/core/usecase"
	"github.com/avolkov/document-analyzer/internal/infrastructure/extractor/pdf"
	"github.com/avolkov/document-analyzer/internal/infrastructure/llm/openai"
	natsqueue "github.com/avolkov/document-analyzer/internal/infrastructure/queue/nats"
	"github.com/avolkov/document-analyzer/internal/infrastructure/repository/postgres"
	"github.com/avolkov/document-analyzer/internal/infrastructure/resilience"
	"github.com/avolkov/document-analyzer/internal/infrastructure/storage/localfs"
	"github.com/avolkov/document-analyzer/internal/infrastructure/store/jsonstore"
)

// App wires the analysis pipeline once for both binaries. The api serves
// HTTP on top of it; the worker consumes the queue with the same core.
type App struct {
	Config config.Config

	Analyzer ports.DocumentAnalyzer
	Store    ports.ResultStore
	Staging  ports.ObjectStorage
	Queue    ports.AnalysisQueue

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())

	llmClient, err := openai.New(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.LLMTimeout,
	}, executor)
	if err != nil {
		return nil, fmt.Errorf("init llm client: %w", err)
	}

	classifier := usecase.NewClassifier(llmClient, cfg.ClassifyTopLogProbs, cfg.ClassifyMaxChars)
	selector := usecase.NewDefaultSelector(llmClient, usecase.ExtractorConfig{
		MaxTokens: cfg.ExtractMaxTokens,
		Timeout:   cfg.ExtractTimeout,
	})
	analyzer := usecase.NewAnalyzeUseCase(pdf.NewExtractor(), classifier, selector)

	store, closeStore, err := newResultStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	staging, err := localfs.New(cfg.UploadPath)
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("init upload storage: %w", err)
	}

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		closeStore()
		return nil, fmt.Errorf("init analysis queue: %w", err)
	}

	return &App{
		Config:   cfg,
		Analyzer: analyzer,
		Store:    store,
		Staging:  staging,
		Queue:    queue,

		closeFn: func() {
			queue.Close()
			closeStore()
		},
	}, nil
}

func newResultStore(ctx context.Context, cfg config.Config) (ports.ResultStore, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewResultRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil

	case "", "local":
		store, err := jsonstore.New(cfg.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init result store: %w", err)
		}
		return store, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
