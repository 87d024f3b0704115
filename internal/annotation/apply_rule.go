package annotation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const (
	ApplyRuleName = "ApplyRule"
	RequiredName  = "Required"
)

// MatchTimeout caps a single @ApplyRule regex evaluation.
var MatchTimeout = 100 * time.Millisecond

// ApplyRule selects which rules a class opts into. Empty Names and Regex
// select every rule.
type ApplyRule struct {
	Names []string
	Regex string

	// badRegex marks a regex argument that is not a string; it never matches.
	badRegex bool
}

// NewApplyRule reads the declaration forms
//
//	@ApplyRule
//	@ApplyRule("a")  @ApplyRule({"a", "b"})
//	@ApplyRule(names={"a"})  @ApplyRule(names="a")
//	@ApplyRule(regex="/^x-/i")
//
// A positional value wins over names.
func NewApplyRule(a Annotation) ApplyRule {
	var ar ApplyRule
	if v, ok := a.Arg("names"); ok {
		ar.Names = stringList(v)
	}
	if len(a.Positional) > 0 {
		ar.Names = stringList(a.Positional[0])
	}
	if v, ok := a.Arg("regex"); ok && v != nil {
		if s, ok := v.(string); ok {
			ar.Regex = s
		} else {
			ar.badRegex = true
		}
	}
	return ar
}

func stringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, fmt.Sprint(e))
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, compareKeys)
		out := make([]string, 0, len(t))
		for _, k := range keys {
			out = append(out, fmt.Sprint(t[k]))
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

// compareKeys orders positional keys numerically ahead of named keys.
func compareKeys(a, b string) int {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai - bi
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}

// Matches reports whether rule is selected. Names take precedence over Regex;
// a malformed or non-string regex never matches.
func (a ApplyRule) Matches(rule string) bool {
	if len(a.Names) > 0 {
		for _, n := range a.Names {
			if n == rule {
				return true
			}
		}
		return false
	}
	if a.badRegex {
		return false
	}
	if a.Regex == "" {
		return true
	}
	re, err := CompileDelimited(a.Regex)
	if err != nil {
		return false
	}
	ok, err := re.MatchString(rule)
	return err == nil && ok
}

// CompileDelimited compiles a `/pattern/flags` expression. Any non
// alphanumeric, non-backslash, non-space character may act as delimiter;
// bracket pairs close with their counterpart.
func CompileDelimited(expr string) (*regexp2.Regexp, error) {
	expr = strings.TrimSpace(expr)
	if len(expr) < 2 {
		return nil, fmt.Errorf("regex %q: missing delimiters", expr)
	}
	open := expr[0]
	if open == '\\' || open == ' ' || isAlnum(open) {
		return nil, fmt.Errorf("regex %q: invalid delimiter %q", expr, open)
	}
	closing := open
	switch open {
	case '(':
		closing = ')'
	case '[':
		closing = ']'
	case '{':
		closing = '}'
	case '<':
		closing = '>'
	}
	end := strings.LastIndexByte(expr, closing)
	if end <= 0 {
		return nil, fmt.Errorf("regex %q: no ending delimiter %q", expr, closing)
	}
	pattern, flags := expr[1:end], expr[end+1:]

	var opts regexp2.RegexOptions
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		case 'u':
			// patterns are always unicode
		default:
			return nil, fmt.Errorf("regex %q: unknown modifier %q", expr, f)
		}
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = MatchTimeout
	return re, nil
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
