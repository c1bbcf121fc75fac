package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/avolkov/document-analyzer/internal/core/domain"
	"github.com/avolkov/document-analyzer/internal/infrastructure/resilience"
)

const classifyResponseBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": " Invoice"},
		"logprobs": {"content": [{
			"token": "Invoice",
			"logprob": -0.105,
			"top_logprobs": [
				{"token": "Invoice", "logprob": -0.105},
				{"token": "Contract", "logprob": -2.302}
			]
		}]},
		"finish_reason": "length"
	}]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, executor *resilience.Executor) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
		Model:   "gpt-4o-mini",
		Timeout: 5 * time.Second,
	}, executor)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return body
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{Model: "gpt-4o-mini"}, nil); err == nil {
		t.Fatal("New() accepted an empty api key")
	}
}

func TestCompleteConstrainedRequestShape(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = decodeRequest(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(classifyResponseBody))
	}, nil)

	completion, err := client.CompleteConstrained(context.Background(), "system", "user", 20)
	if err != nil {
		t.Fatalf("CompleteConstrained() error = %v", err)
	}

	if captured["max_tokens"] != float64(1) {
		t.Errorf("max_tokens = %v, want 1", captured["max_tokens"])
	}
	if captured["logprobs"] != true {
		t.Errorf("logprobs = %v, want true", captured["logprobs"])
	}
	if captured["top_logprobs"] != float64(20) {
		t.Errorf("top_logprobs = %v, want 20", captured["top_logprobs"])
	}

	if completion.Token != "Invoice" {
		t.Errorf("token = %q, want trimmed Invoice", completion.Token)
	}
	if len(completion.Ranked) != 2 {
		t.Fatalf("ranked = %d entries, want 2", len(completion.Ranked))
	}
	if completion.Ranked[0].Token != "Invoice" || completion.Ranked[0].LogProb != -0.105 {
		t.Errorf("ranked[0] = %+v", completion.Ranked[0])
	}
}

func TestCompleteConstrainedErrorsWithoutLogProbs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Invoice"}, "finish_reason": "length"}]
		}`))
	}, nil)

	if _, err := client.CompleteConstrained(context.Background(), "system", "user", 20); err == nil {
		t.Fatal("CompleteConstrained() accepted a response without log-probabilities")
	}
}

func TestCompleteJSONRequestShape(t *testing.T) {
	var captured map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured = decodeRequest(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-3",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"invoice_number\": \"INV-7\"}"}, "finish_reason": "stop"}]
		}`))
	}, nil)

	raw, err := client.CompleteJSON(context.Background(), "system", "user", 2048)
	if err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if raw != `{"invoice_number": "INV-7"}` {
		t.Fatalf("CompleteJSON() = %q", raw)
	}

	format, _ := captured["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", captured["response_format"])
	}
	if captured["max_tokens"] != float64(2048) {
		t.Errorf("max_tokens = %v, want 2048", captured["max_tokens"])
	}
}

func TestCompleteJSONRetriesRetryableStatus(t *testing.T) {
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      false,
	})

	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-4",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{}"}, "finish_reason": "stop"}]
		}`))
	}, executor)

	raw, err := client.CompleteJSON(context.Background(), "system", "user", 64)
	if err != nil {
		t.Fatalf("CompleteJSON() error = %v", err)
	}
	if raw != "{}" {
		t.Fatalf("CompleteJSON() = %q", raw)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestExhaustedRetriesSurfaceAsTemporary(t *testing.T) {
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		BreakerEnabled:      false,
	})

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "overloaded", "type": "server_error"}}`))
	}, executor)

	_, err := client.CompleteJSON(context.Background(), "system", "user", 64)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("CompleteJSON() error = %v, want temporary", err)
	}
}

func TestBadRequestIsNotRetried(t *testing.T) {
	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		BreakerEnabled:      false,
	})

	attempts := 0
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "context too long", "type": "invalid_request_error"}}`))
	}, executor)

	_, err := client.CompleteJSON(context.Background(), "system", "user", 64)
	if err == nil {
		t.Fatal("CompleteJSON() succeeded, want error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("CompleteJSON() error = %v, want permanent", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1", attempts)
	}
}
