package parser

import (
	"errors"
	"fmt"
)

var (
	ErrNoSupportedClass  = errors.New("no supported class")
	ErrUnsupportedSource = errors.New("unsupported source type")
)

// NoSupportedClassError reports a unit that does not declare exactly one
// struct or interface type.
type NoSupportedClassError struct {
	Path  string
	Count int
}

func (e *NoSupportedClassError) Error() string {
	return fmt.Sprintf("%s: %d struct/interface declarations, want exactly 1", e.Path, e.Count)
}

func (e *NoSupportedClassError) Unwrap() error { return ErrNoSupportedClass }

// ExtractionError wraps read and parse failures of one unit.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("extract %s: %v", e.Path, e.Err) }
func (e *ExtractionError) Unwrap() error { return e.Err }
