package filter

import (
	"errors"
	"fmt"
)

// ErrInvalidFilter is matched by every parse failure via errors.Is.
var ErrInvalidFilter = errors.New("invalid filter")

// ParseError describes where and why a filter expression failed to parse.
type ParseError struct {
	// Offset is the byte offset into the input where the problem was detected.
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid filter at offset %d: %s", e.Offset, e.Msg)
}

// Is makes errors.Is(err, ErrInvalidFilter) true for any *ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidFilter
}

func errorf(offset int, format string, args ...any) *ParseError {
	return &ParseError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}
