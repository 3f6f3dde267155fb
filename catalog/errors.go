package catalog

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to catalog errors.
const (
	TextCodeNotFound           = "NOT_FOUND"
	TextCodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	TextCodeCacheUnavailable   = "CACHE_UNAVAILABLE"
	TextCodeInvalidQuery       = "INVALID_QUERY"
	TextCodeInvalidDocument    = "INVALID_DOCUMENT"
)

// Sentinel errors. Values returned by the constructors below wrap one of these,
// so errors.Is works against them.
var (
	ErrNotFound = goerrors.New("entity not found", goerrors.CategoryNotFound).
			WithCode(http.StatusNotFound).
			WithTextCode(TextCodeNotFound)

	ErrBackendUnavailable = goerrors.New("search backend unavailable", goerrors.CategoryExternal).
				WithCode(http.StatusServiceUnavailable).
				WithTextCode(TextCodeBackendUnavailable)

	ErrCacheUnavailable = goerrors.New("cache store unavailable", goerrors.CategoryOperation).
				WithTextCode(TextCodeCacheUnavailable)

	ErrInvalidQuery = goerrors.New("invalid query", goerrors.CategoryBadInput).
			WithCode(http.StatusBadRequest).
			WithTextCode(TextCodeInvalidQuery)

	ErrInvalidDocument = goerrors.New("invalid document", goerrors.CategoryInternal).
				WithTextCode(TextCodeInvalidDocument)
)

// NotFound reports that id does not exist in the collection.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// BackendUnavailable wraps a search backend failure that is not a not-found.
func BackendUnavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, cause)
}

// CacheUnavailable wraps a cache store failure.
func CacheUnavailable(op string, cause error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrCacheUnavailable, cause)
}

// InvalidQuery reports a query the backend cannot execute.
func InvalidQuery(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidQuery)
}

// InvalidDocument wraps a decoding failure for a backend or cached document.
func InvalidDocument(kind string, cause error) error {
	return fmt.Errorf("%s: %w: %w", kind, ErrInvalidDocument, cause)
}

// IsNotFound reports whether err is a catalog not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || hasCategory(err, goerrors.CategoryNotFound)
}

// IsBackendUnavailable reports whether err is a search backend failure.
func IsBackendUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}

// IsInvalidQuery reports whether err was caused by an unsupported query.
func IsInvalidQuery(err error) bool {
	return errors.Is(err, ErrInvalidQuery)
}

func hasCategory(err error, category goerrors.Category) bool {
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		return ge.Category == category
	}
	return false
}
