package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID     = errors.New("invalid_document_id")
	ErrEmptyDocument = errors.New("empty_document")
	ErrNotFound      = errors.New("document_not_found")
)

// ParseError reports a malformed inbound document. Block is the
// offending product-block index (zero-based, -1 for header fields).
// An import that hits a ParseError saves nothing.
type ParseError struct {
	Block int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Block < 0 {
		return fmt.Sprintf("parse_error: header field %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("parse_error: block %d field %s: %q", e.Block, e.Field, e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsParseError reports whether err is (or wraps) a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
