package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/avolkov/document-analyzer/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	cases := map[string]struct {
		err       error
		retryable bool
		record    bool
	}{
		"no servers":        {nats.ErrNoServers, true, true},
		"timeout":           {nats.ErrTimeout, true, true},
		"connection closed": {nats.ErrConnectionClosed, true, true},
		"canceled context":  {context.Canceled, false, false},
		"unknown":           {errors.New("subject mismatch"), false, true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			class := classifyNATSError(tc.err)
			if class.Retryable != tc.retryable {
				t.Errorf("retryable = %v, want %v", class.Retryable, tc.retryable)
			}
			if class.RecordFailure != tc.record {
				t.Errorf("record = %v, want %v", class.RecordFailure, tc.record)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	wrapped := wrapTemporaryIfNeeded(nats.ErrTimeout)
	if !domain.IsKind(wrapped, domain.ErrTemporary) {
		t.Fatalf("wrapped = %v, want temporary", wrapped)
	}

	permanent := errors.New("bad payload")
	if got := wrapTemporaryIfNeeded(permanent); !errors.Is(got, permanent) || domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("permanent error changed: %v", got)
	}

	if wrapTemporaryIfNeeded(nil) != nil {
		t.Fatal("nil error was wrapped")
	}
}
