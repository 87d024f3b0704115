package rules

import (
	"fmt"
	"runtime"
)

// AssertionError marks an intentional rule failure.
type AssertionError struct {
	Message string
	Line    int
}

func (e *AssertionError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d)", e.Message, e.Line)
	}
	return e.Message
}

// Assert returns an *AssertionError carrying msg when cond is false.
func Assert(cond bool, msg string) error {
	return AssertAt(cond, 0, msg)
}

func Assertf(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// AssertAt ties the failure to a line of the inspected source.
func AssertAt(cond bool, line int, msg string) error {
	if cond {
		return nil
	}
	return &AssertionError{Message: msg, Line: line}
}

// PanicError is a recovered panic from rule code.
type PanicError struct {
	Value any
	File  string
	Line  int
}

func (e *PanicError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("panic: %v (%s:%d)", e.Value, e.File, e.Line)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// newPanicError records the frame that panicked, skipping runtime frames.
func newPanicError(v any) *PanicError {
	pe := &PanicError{Value: v}
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if f.Function != "" && !isRuntimeFrame(f.Function) {
			pe.File, pe.Line = f.File, f.Line
			break
		}
		if !more {
			break
		}
	}
	return pe
}

func isRuntimeFrame(fn string) bool {
	return len(fn) >= 8 && fn[:8] == "runtime."
}
