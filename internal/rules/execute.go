package rules

import (
	"errors"

	"github.com/codewithboateng/rulescan/internal/ir"
)

type Status int

const (
	// StatusPass asks the caller to record a pass.
	StatusPass Status = iota + 1
	StatusFail
	StatusException
	// StatusRecorded means the rule already recorded a failure or an
	// exception and nothing is left to record.
	StatusRecorded
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusFail:
		return "fail"
	case StatusException:
		return "exception"
	case StatusRecorded:
		return "recorded"
	}
	return "unknown"
}

// Result is the single outcome of one rule execution over one class.
type Result struct {
	Status  Status
	Message string
	Line    int
	Err     error
}

// Execute runs r against c under its execution contract. Panics in rule code
// are recovered as *PanicError exceptions.
func Execute(r Rule, kind Kind, c *ir.Class, rec Recorder) (res Result) {
	defer func() {
		if v := recover(); v != nil {
			pe := newPanicError(v)
			res = Result{Status: StatusException, Message: pe.Error(), Err: pe}
		}
	}()
	switch kind {
	case KindPlain:
		return executePlain(r.(Plain), c)
	case KindAnalysisAware:
		return executeAnalysisAware(r.(AnalysisAware), c, rec)
	}
	return Result{Status: StatusException, Message: ErrNotExecutable.Error(), Err: ErrNotExecutable}
}

func executePlain(r Plain, c *ir.Class) Result {
	ok, err := r.Execute(c)
	if err != nil {
		var ae *AssertionError
		if errors.As(err, &ae) {
			return Result{Status: StatusFail, Message: ae.Message, Line: ae.Line}
		}
		return Result{Status: StatusException, Message: err.Error(), Err: err}
	}
	if !ok {
		return Result{Status: StatusFail, Message: r.Description()}
	}
	return Result{Status: StatusPass}
}

func executeAnalysisAware(r AnalysisAware, c *ir.Class, rec Recorder) Result {
	fails, excs := rec.FailCount(), rec.ExceptionCount()
	if err := r.Analyze(c, rec); err != nil {
		var ae *AssertionError
		if errors.As(err, &ae) {
			return Result{Status: StatusFail, Message: ae.Message, Line: ae.Line}
		}
		return Result{Status: StatusException, Message: err.Error(), Err: err}
	}
	if rec.FailCount() > fails || rec.ExceptionCount() > excs {
		return Result{Status: StatusRecorded}
	}
	return Result{Status: StatusPass}
}
