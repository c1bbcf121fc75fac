package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avolkov/document-analyzer/internal/bootstrap"
	"github.com/avolkov/document-analyzer/internal/config"
	"github.com/avolkov/document-analyzer/internal/core/domain"
	"github.com/avolkov/document-analyzer/internal/observability/logging"
	"github.com/avolkov/document-analyzer/internal/observability/metrics"
)

const serviceName = "document-analyzer-worker"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeAnalysisRequested(ctx, func(handlerCtx context.Context, req domain.AnalysisRequest) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()
		return processRequest(processCtx, app, workerMetrics, req)
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

// processRequest analyzes one staged document and persists the result
// under the id assigned at upload time, then removes the staged file.
func processRequest(ctx context.Context, app *bootstrap.App, workerMetrics *metrics.WorkerMetrics, req domain.AnalysisRequest) error {
	start := time.Now()
	workerMetrics.StartDocument()

	result, err := app.Analyzer.Analyze(ctx, req.Path)
	if err == nil {
		result.ID = req.ID
		result.Filename = req.Filename
		_, err = app.Store.Put(ctx, result)
	}
	workerMetrics.FinishDocument(serviceName, time.Since(start), err)

	if removeErr := os.Remove(req.Path); removeErr != nil && !os.IsNotExist(removeErr) {
		slog.Warn("remove staged document", "path", req.Path, "error", removeErr)
	}
	return err
}

func metricsHandler(workerMetrics *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
