package rules

import (
	"errors"

	"github.com/codewithboateng/rulescan/internal/annotation"
	"github.com/codewithboateng/rulescan/internal/ir"
)

const pkgPath = "github.com/codewithboateng/rulescan/internal/rules"

// Interface names a rule type declares through `var _ rules.Plain = (*T)(nil)`.
const (
	RuleInterface          = pkgPath + ".Rule"
	PlainInterface         = pkgPath + ".Plain"
	AnalysisAwareInterface = pkgPath + ".AnalysisAware"
)

// Rule is a named check over one class.
type Rule interface {
	Name() string
	Description() string
	Supports(c *ir.Class) (bool, error)
}

// Plain rules report a single verdict: true passes, false fails with the
// rule description, an *AssertionError fails with its own message.
type Plain interface {
	Rule
	Execute(c *ir.Class) (bool, error)
}

// AnalysisAware rules record any number of outcomes themselves.
type AnalysisAware interface {
	Rule
	Analyze(c *ir.Class, rec Recorder) error
}

// Recorder receives outcomes from analysis-aware rules.
type Recorder interface {
	Pass(c *ir.Class, r Rule)
	Fail(c *ir.Class, r Rule, message string, line int)
	Warn(c *ir.Class, r Rule, message string, line int)
	Exception(c *ir.Class, r Rule, err error)
	FailCount() int
	ExceptionCount() int
}

type Kind int

const (
	KindPlain Kind = iota + 1
	KindAnalysisAware
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindAnalysisAware:
		return "analysis-aware"
	}
	return "unknown"
}

var ErrNotExecutable = errors.New("rule implements neither Plain nor AnalysisAware")

// KindOf resolves the execution contract of r. A type satisfying both
// contracts runs as analysis-aware.
func KindOf(r Rule) (Kind, error) {
	switch r.(type) {
	case AnalysisAware:
		return KindAnalysisAware, nil
	case Plain:
		return KindPlain, nil
	}
	return 0, ErrNotExecutable
}

// Declares reports whether the class declares one of the rule interfaces.
func Declares(c *ir.Class) bool {
	return c.Implements(RuleInterface) || c.Implements(PlainInterface) || c.Implements(AnalysisAwareInterface)
}

// Base supplies Name and Description.
type Base struct {
	ID      string
	Summary string
}

func (b Base) Name() string        { return b.ID }
func (b Base) Description() string { return b.Summary }

// AnnotationRule supports a class when one of its @ApplyRule declarations
// selects the rule's name.
type AnnotationRule struct {
	Base
	Reader *annotation.Reader
}

func (a AnnotationRule) Supports(c *ir.Class) (bool, error) {
	if a.Reader == nil {
		return false, errors.New("annotation rule " + a.ID + " has no reader")
	}
	return a.Reader.MatchesApplyRule(c, a.Name()), nil
}

// HasAnnotation reports whether the class, any of its properties or any of
// its methods carries an annotation; an empty name accepts any marker.
func (a AnnotationRule) HasAnnotation(c *ir.Class, name string) bool {
	return a.HasClassAnnotation(c, name) || a.HasPropertyAnnotation(c, name) || a.HasMethodAnnotation(c, name)
}

func (a AnnotationRule) HasClassAnnotation(c *ir.Class, name string) bool {
	return a.Reader != nil && len(a.Reader.ClassAnnotations(c, name)) > 0
}

func (a AnnotationRule) HasPropertyAnnotation(c *ir.Class, name string) bool {
	if a.Reader == nil {
		return false
	}
	for _, p := range c.Properties() {
		if len(a.Reader.PropertyAnnotations(c, p.Name, name)) > 0 {
			return true
		}
	}
	return false
}

func (a AnnotationRule) HasMethodAnnotation(c *ir.Class, name string) bool {
	if a.Reader == nil {
		return false
	}
	for _, m := range c.Methods() {
		if len(a.Reader.MethodAnnotations(c, m.Name, name)) > 0 {
			return true
		}
	}
	return false
}
