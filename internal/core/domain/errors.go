package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInputTooLong         = errors.New("input too long")
	ErrUnclassifiableQuery  = errors.New("unclassifiable query")
	ErrSchemaViolation      = errors.New("schema violation")
	ErrBackendUnavailable   = errors.New("backend unavailable")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrSynthesisUnavailable = errors.New("synthesis unavailable")
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
