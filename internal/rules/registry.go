package rules

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sahilm/fuzzy"
)

var ErrRuleNotFound = errors.New("rule not found")

// Entry is one registered rule with its execution contract.
type Entry struct {
	Name string
	Rule Rule
	Kind Kind
}

// Registry holds rules by name in registration order. It is filled during
// discovery and read afterwards; it is not safe for concurrent mutation.
type Registry struct {
	entries  []Entry
	index    map[string]int
	disabled map[string]bool
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger, s Settings) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		index:    map[string]int{},
		disabled: s.disabledSet(),
		logger:   logger,
	}
}

// Disable drops names from future registrations.
func (r *Registry) Disable(names ...string) {
	for _, n := range names {
		if n = normalizeName(n); n != "" {
			r.disabled[n] = true
		}
	}
}

// Register stores rule under name. A second registration of the same name
// replaces the rule but keeps its original position.
func (r *Registry) Register(name string, rule Rule) error {
	kind, err := KindOf(rule)
	if err != nil {
		return fmt.Errorf("register %q: %w", name, err)
	}
	if r.disabled[normalizeName(name)] {
		r.logger.Debug("rule disabled, not registering", "rule", name)
		return nil
	}
	e := Entry{Name: name, Rule: rule, Kind: kind}
	if i, ok := r.index[name]; ok {
		r.logger.Warn("rule registered twice, last registration wins", "rule", name)
		r.entries[i] = e
		return nil
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// Rules returns the registered rules in registration order.
func (r *Registry) Rules() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Registry) Rule(name string) (Rule, error) {
	if i, ok := r.index[name]; ok {
		return r.entries[i].Rule, nil
	}
	err := fmt.Errorf("%w: %q", ErrRuleNotFound, name)
	if s := r.suggest(name); len(s) > 0 {
		err = fmt.Errorf("%w (did you mean %s?)", err, strings.Join(s, ", "))
	}
	return nil, err
}

func (r *Registry) Count() int { return len(r.entries) }

func (r *Registry) Names() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Name
	}
	return out
}

func (r *Registry) suggest(name string) []string {
	matches := fuzzy.Find(name, r.Names())
	var out []string
	for i, m := range matches {
		if i == 3 {
			break
		}
		out = append(out, m.Str)
	}
	return out
}
