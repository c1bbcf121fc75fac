package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avolkov/document-analyzer/internal/core/domain"
)

// Store persists one JSON file per analysis result. Writes go through a
// temp file plus rename in the same directory, so a reader never observes a
// partially written record.
type Store struct {
	dir string

	mu sync.Mutex
}

func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "./data/results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create result store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Put(_ context.Context, result *domain.AnalysisResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("jsonstore: nil result")
	}
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if !validID(result.ID) {
		return "", fmt.Errorf("jsonstore: invalid result id %q", result.ID)
	}
	result.StoredAt = time.Now().UTC()

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result %s: %w", result.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, result.ID+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write result %s: %w", result.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.recordPath(result.ID)); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("commit result %s: %w", result.ID, err)
	}
	return result.ID, nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.AnalysisResult, bool, error) {
	if !validID(id) {
		return nil, false, nil
	}

	raw, err := os.ReadFile(s.recordPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read result %s: %w", id, err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("decode result %s: %w", id, err)
	}
	return &result, true, nil
}

// List returns summaries newest first. A record that fails to decode is
// skipped and logged, never fatal to the listing.
func (s *Store) List(_ context.Context) ([]domain.ResultSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read result store dir: %w", err)
	}

	summaries := make([]domain.ResultSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skip unreadable result file", "path", path, "error", err)
			continue
		}
		var result domain.AnalysisResult
		if err := json.Unmarshal(raw, &result); err != nil {
			slog.Warn("skip undecodable result file", "path", path, "error", err)
			continue
		}

		summaries = append(summaries, domain.ResultSummary{
			ID:         result.ID,
			Filename:   result.Filename,
			Category:   result.Category,
			Confidence: result.ClassificationConfidence,
			StoredAt:   result.StoredAt,
			SizeBytes:  int64(len(raw)),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StoredAt.After(summaries[j].StoredAt)
	})
	return summaries, nil
}

func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordPath(id)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete result %s: %w", id, err)
	}
	return true, nil
}

func (s *Store) Stats(_ context.Context) (domain.StoreStats, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("read result store dir: %w", err)
	}

	stats := domain.StoreStats{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Count++
		stats.TotalSizeBytes += info.Size()
	}
	return stats, nil
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validID rejects ids that could escape the store directory.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}
