package localfs

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestSaveAndPathRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "doc.pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(storage.Path("doc.pdf"))
	if err != nil {
		t.Fatalf("read staged file: %v", err)
	}
	if string(raw) != "%PDF-1.4" {
		t.Fatalf("staged content = %q", raw)
	}
}

func TestSaveRejectsEscapingKeys(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, key := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := storage.Save(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Errorf("Save(%q) accepted an invalid key", key)
		}
	}
}

func TestNewCreatesBaseDir(t *testing.T) {
	dir := t.TempDir() + "/nested/uploads"
	if _, err := New(dir); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("base dir missing: %v", err)
	}
}
