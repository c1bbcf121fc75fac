package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/document-analyzer/internal/core/domain"
	"github.com/avolkov/document-analyzer/internal/core/ports"
	"github.com/avolkov/document-analyzer/internal/observability/metrics"
)

// Router exposes the document-analysis API. The async endpoint needs a
// queue; when none is wired the endpoint answers 503.
type Router struct {
	service        string
	analyzer       ports.DocumentAnalyzer
	store          ports.ResultStore
	staging        ports.ObjectStorage
	queue          ports.AnalysisQueue
	metrics        *metrics.HTTPServerMetrics
	maxUploadBytes int64
}

func NewRouter(
	service string,
	analyzer ports.DocumentAnalyzer,
	store ports.ResultStore,
	staging ports.ObjectStorage,
	queue ports.AnalysisQueue,
	serverMetrics *metrics.HTTPServerMetrics,
	maxUploadBytes int64,
) *Router {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &Router{
		service:        service,
		analyzer:       analyzer,
		store:          store,
		staging:        staging,
		queue:          queue,
		metrics:        serverMetrics,
		maxUploadBytes: maxUploadBytes,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.listDocuments)
	mux.HandleFunc("/v1/documents/analyze", rt.analyzeDocument)
	mux.HandleFunc("/v1/documents/analyze-async", rt.analyzeDocumentAsync)
	mux.HandleFunc("/v1/documents/analyze-batch", rt.analyzeBatch)
	mux.HandleFunc("/v1/documents/storage/stats", rt.storageStats)
	mux.HandleFunc("/v1/documents/supported-types", rt.supportedTypes)
	mux.HandleFunc("/v1/documents/", rt.documentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) analyzeDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key, filename, ok := rt.stageUpload(w, r)
	if !ok {
		return
	}
	path := rt.staging.Path(key)
	defer os.Remove(path)

	start := time.Now()
	result, err := rt.analyzer.Analyze(r.Context(), path)
	if err != nil {
		if rt.metrics != nil {
			rt.metrics.RecordAnalysis(rt.service, "", 0, 0, true)
		}
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	result.Filename = filename

	if _, err := rt.store.Put(r.Context(), result); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("persist result: %v", err))
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnalysis(rt.service, result.Category, result.ClassificationConfidence, time.Since(start), false)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) analyzeDocumentAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if rt.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "async analysis is not configured")
		return
	}

	key, filename, ok := rt.stageUpload(w, r)
	if !ok {
		return
	}

	id := strings.TrimSuffix(key, ".pdf")
	req := domain.AnalysisRequest{
		ID:       id,
		Path:     rt.staging.Path(key),
		Filename: filename,
	}
	if err := rt.queue.PublishAnalysisRequested(r.Context(), req); err != nil {
		os.Remove(rt.staging.Path(key))
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": "queued",
	})
}

func (rt *Router) analyzeBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Paths []string `json:"paths"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths is required")
		return
	}

	entries := rt.analyzer.AnalyzeBatch(r.Context(), req.Paths)
	for i := range entries {
		if entries[i].Result == nil {
			continue
		}
		if _, err := rt.store.Put(r.Context(), entries[i].Result); err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("persist result: %v", err))
			return
		}
	}
	if rt.metrics != nil {
		rt.metrics.RecordBatch(rt.service, len(req.Paths))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":   len(entries),
		"results": entries,
	})
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summaries, err := rt.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := rt.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": summaries,
		"storage":   stats,
	})
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		result, found, err := rt.store.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSON(w, http.StatusOK, result)

	case http.MethodDelete:
		deleted, err := rt.store.Delete(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !deleted {
			writeError(w, http.StatusNotFound, "document not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "deleted": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) storageStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := rt.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) supportedTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	categories := domain.SupportedCategories()
	keys := make([]string, 0, len(categories))
	for _, category := range categories {
		keys = append(keys, category.Key())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"supported_types":   keys,
		"extraction_method": domain.MethodHybrid,
	})
}

// stageUpload validates the multipart upload and writes it to staging
// storage under a fresh key. It answers the request itself on failure.
func (rt *Router) stageUpload(w http.ResponseWriter, r *http.Request) (key, filename string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", rt.maxUploadBytes))
			return "", "", false
		}
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return "", "", false
	}
	defer file.Close()

	filename = sanitizeFilename(fileHeader)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "only PDF documents are supported")
		return "", "", false
	}

	key = uuid.NewString() + ".pdf"
	if err := rt.staging.Save(r.Context(), key, file); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("stage upload: %v", err))
		return "", "", false
	}
	return key, filename, true
}

func sanitizeFilename(header *multipart.FileHeader) string {
	name := filepath.Base(strings.TrimSpace(header.Filename))
	if name == "." || name == string(filepath.Separator) {
		return "document.pdf"
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
