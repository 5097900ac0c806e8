package scraper

import (
	"errors"
	"fmt"
)

var (
	ErrNavigation            = errors.New("failed to open listing page")
	ErrNoProductsFound       = errors.New("no product containers found")
	ErrFieldMissing          = errors.New("product field missing")
	ErrPaginationUnavailable = errors.New("next page control unavailable")
	ErrUnexpectedRun         = errors.New("unexpected run failure")
	ErrCleanup               = errors.New("failed to close session")
	ErrInvalidPageCount      = errors.New("page count must be positive")
)

// FieldMissingError reports a container that lacks one of the listing fields.
type FieldMissingError struct {
	Container int
	Field     string
	Err       error
}

func (e *FieldMissingError) Error() string {
	return fmt.Sprintf("container %d: %s %s: %v", e.Container, ErrFieldMissing, e.Field, e.Err)
}

func (e *FieldMissingError) Unwrap() []error {
	return []error{ErrFieldMissing, e.Err}
}

func errorTypeLabel(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, ErrNavigation):
		return "navigation"
	case errors.Is(err, ErrInvalidPageCount):
		return "invalid_page_count"
	case errors.Is(err, ErrNoProductsFound):
		return "no_products"
	case errors.Is(err, ErrFieldMissing):
		return "field_missing"
	case errors.Is(err, ErrPaginationUnavailable):
		return "pagination_unavailable"
	case errors.Is(err, ErrCleanup):
		return "cleanup"
	case errors.Is(err, ErrUnexpectedRun):
		return "unexpected"
	default:
		return "other"
	}
}
