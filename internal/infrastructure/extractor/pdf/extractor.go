package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/avolkov/document-analyzer/internal/core/domain"
)

// Extractor reads plain text out of PDF files. It is stateless and safe for
// concurrent use.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) ExtractText(_ context.Context, path string) (text string, err error) {
	if _, statErr := os.Stat(path); statErr != nil {
		return "", domain.WrapError(domain.ErrDocumentNotFound, "open pdf", statErr)
	}

	// The pdf library panics on some malformed files; surface that as an
	// extraction error instead of crashing the worker.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("parse pdf %s: %v", filepath.Base(path), r)
		}
	}()

	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	var builder strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil {
			// skip unreadable pages
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(pageText)
	}

	text = builder.String()
	if text == "" {
		return "", fmt.Errorf("pdf %s contains no extractable text", filepath.Base(path))
	}
	return text, nil
}

func (e *Extractor) ExtractTextChunk(ctx context.Context, path string, maxChars int) (string, error) {
	text, err := e.ExtractText(ctx, path)
	if err != nil {
		return "", err
	}
	if maxChars <= 0 || len(text) <= maxChars {
		return text, nil
	}
	cut := text[:maxChars]
	for !utf8.ValidString(cut) && len(cut) > 0 {
		cut = cut[:len(cut)-1]
	}
	return cut, nil
}
