package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CLASSIFY_TOP_LOGPROBS", "")
	t.Setenv("CLASSIFY_MAX_CHARS", "")
	t.Setenv("EXTRACT_MAX_TOKENS", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("MAX_UPLOAD_MB", "")

	cfg := Load()
	if cfg.ClassifyTopLogProbs != 20 {
		t.Fatalf("expected default top logprobs 20, got %d", cfg.ClassifyTopLogProbs)
	}
	if cfg.ClassifyMaxChars != 5000 {
		t.Fatalf("expected default classify max chars 5000, got %d", cfg.ClassifyMaxChars)
	}
	if cfg.ExtractMaxTokens != 2048 {
		t.Fatalf("expected default extract max tokens 2048, got %d", cfg.ExtractMaxTokens)
	}
	if cfg.StoreBackend != "local" {
		t.Fatalf("expected default store backend local, got %q", cfg.StoreBackend)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("expected default upload limit 10 MiB, got %d", cfg.MaxUploadBytes)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("CLASSIFY_TOP_LOGPROBS", "10")
	t.Setenv("LLM_TIMEOUT_SECONDS", "15")
	t.Setenv("MAX_UPLOAD_MB", "2")

	cfg := Load()
	if cfg.StoreBackend != "postgres" {
		t.Fatalf("expected store backend override, got %q", cfg.StoreBackend)
	}
	if cfg.ClassifyTopLogProbs != 10 {
		t.Fatalf("expected top logprobs 10, got %d", cfg.ClassifyTopLogProbs)
	}
	if cfg.LLMTimeout != 15*time.Second {
		t.Fatalf("expected llm timeout 15s, got %v", cfg.LLMTimeout)
	}
	if cfg.MaxUploadBytes != 2<<20 {
		t.Fatalf("expected upload limit 2 MiB, got %d", cfg.MaxUploadBytes)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("CLASSIFY_TOP_LOGPROBS", "lots")

	cfg := Load()
	if cfg.ClassifyTopLogProbs != 20 {
		t.Fatalf("expected malformed int to fall back to 20, got %d", cfg.ClassifyTopLogProbs)
	}
}
