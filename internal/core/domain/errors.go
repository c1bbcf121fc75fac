package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound marks a missing input document path. Fatal for the
	// document it concerns.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrClassification marks a failed classification call: unreachable
	// completion service, malformed response, or missing log-probability
	// payload. Fatal for the document, since extraction needs a category.
	ErrClassification = errors.New("classification failed")

	// ErrUnsupportedCategory marks a selector call for a category with no
	// extractor. Extraction is skipped, the document still gets a result.
	ErrUnsupportedCategory = errors.New("unsupported category")

	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
