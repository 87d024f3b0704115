package annotation

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/codewithboateng/rulescan/internal/ir"
)

// MaxAttempts bounds how many unknown markers a single read may skip over.
const MaxAttempts = 10

var ErrUnknownAnnotation = errors.New("unknown annotation")

// UnknownAnnotationError names the marker the reader could not resolve.
type UnknownAnnotationError struct {
	Marker string
	Line   int
}

func (e *UnknownAnnotationError) Error() string {
	return fmt.Sprintf("[Semantical Error] The annotation \"@%s\" at line %d was never imported", e.Marker, e.Line)
}

func (e *UnknownAnnotationError) Unwrap() error { return ErrUnknownAnnotation }

// default doc tags that never count as annotations
var defaultIgnored = []string{
	"abstract", "access", "api", "author", "category", "code", "copyright",
	"deprecated", "endcode", "example", "final", "fixme", "FIXME", "global",
	"ignore", "inheritDoc", "inheritdoc", "internal", "license", "link",
	"method", "name", "noinspection", "override", "package", "param",
	"property", "property-read", "property-write", "return", "returns", "see",
	"since", "source", "static", "subpackage", "throws", "todo", "TODO",
	"uses", "var", "version",
}

// Reader resolves annotations from doc comments. Unknown markers are added
// to the reader's own ignore set, so a Reader should live for one scan.
type Reader struct {
	mu      sync.Mutex
	known   map[string]struct{}
	ignored map[string]struct{}
	logger  *slog.Logger
}

func NewReader() *Reader {
	r := &Reader{
		known:   map[string]struct{}{},
		ignored: map[string]struct{}{},
		logger:  slog.Default(),
	}
	r.Known(ApplyRuleName, RequiredName)
	r.Ignore(defaultIgnored...)
	return r
}

func (r *Reader) WithLogger(l *slog.Logger) *Reader {
	if l != nil {
		r.logger = l
	}
	return r
}

// Known registers markers the reader resolves into annotations.
func (r *Reader) Known(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		r.known[n] = struct{}{}
		delete(r.ignored, n)
	}
}

func (r *Reader) Ignore(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if _, ok := r.known[n]; ok {
			continue
		}
		r.ignored[n] = struct{}{}
	}
}

// resolve fails on the first marker that is neither known nor ignored.
func (r *Reader) resolve(doc string) ([]Annotation, error) {
	all, err := Parse(doc)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Annotation, 0, len(all))
	for _, a := range all {
		name := shortName(a.Name)
		if _, ok := r.ignored[name]; ok {
			continue
		}
		if _, ok := r.known[name]; !ok {
			return nil, &UnknownAnnotationError{Marker: name, Line: a.Line}
		}
		a.Name = name
		out = append(out, a)
	}
	return out, nil
}

// Read returns the annotations of doc. Unknown markers are ignored from now
// on and the read is retried, up to MaxAttempts; any other failure, or an
// exhausted budget, yields no annotations.
func (r *Reader) Read(doc string) []Annotation {
	if strings.TrimSpace(doc) == "" {
		return nil
	}
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		anns, err := r.resolve(doc)
		if err == nil {
			return anns
		}
		var unknown *UnknownAnnotationError
		if !errors.As(err, &unknown) {
			r.logger.Debug("annotation read failed", "err", err)
			return nil
		}
		r.Ignore(unknown.Marker)
	}
	r.logger.Debug("annotation read gave up", "attempts", MaxAttempts)
	return nil
}

func (r *Reader) ClassAnnotations(c *ir.Class, name string) []Annotation {
	return Filter(r.Read(c.Doc()), name)
}

func (r *Reader) PropertyAnnotations(c *ir.Class, property, name string) []Annotation {
	p, ok := c.Property(property)
	if !ok {
		return nil
	}
	return Filter(r.Read(p.Doc), name)
}

func (r *Reader) MethodAnnotations(c *ir.Class, method, name string) []Annotation {
	m, ok := c.Method(method)
	if !ok {
		return nil
	}
	return Filter(r.Read(m.Doc), name)
}

// MatchesApplyRule reports whether any class-level @ApplyRule selects rule.
func (r *Reader) MatchesApplyRule(c *ir.Class, rule string) bool {
	for _, a := range r.ClassAnnotations(c, ApplyRuleName) {
		if NewApplyRule(a).Matches(rule) {
			return true
		}
	}
	return false
}

// Filter keeps annotations called name; an empty name keeps everything.
func Filter(anns []Annotation, name string) []Annotation {
	if name == "" {
		return anns
	}
	name = shortName(name)
	var out []Annotation
	for _, a := range anns {
		if a.Name == name {
			out = append(out, a)
		}
	}
	return out
}

// shortName drops namespace qualifiers: `\Foo\ApplyRule` and `pkg.ApplyRule`
// both resolve to ApplyRule.
func shortName(n string) string {
	if i := strings.LastIndexAny(n, `\.`); i >= 0 {
		return n[i+1:]
	}
	return n
}
