package annotation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Annotation is one `@Name(args)` marker found in a doc comment.
type Annotation struct {
	Name       string
	Positional []any
	Named      map[string]any
	Line       int // 1-based line inside the doc text
}

// Arg returns a named argument.
func (a Annotation) Arg(key string) (any, bool) {
	v, ok := a.Named[key]
	return v, ok
}

type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("[Syntax Error] %s at line %d, column %d", e.Msg, e.Line, e.Col)
}

// Parse extracts every annotation from doc. An annotation starts a line
// (leading blanks and a `*` are tolerated) and may span lines while its
// argument list is open.
func Parse(doc string) ([]Annotation, error) {
	p := &docParser{src: []rune(doc), line: 1, col: 1}
	var out []Annotation
	for !p.eof() {
		p.skipLinePrefix()
		if p.peek() != '@' {
			p.skipLine()
			continue
		}
		a, err := p.annotation()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		p.skipLine()
	}
	return out, nil
}

type docParser struct {
	src  []rune
	pos  int
	line int
	col  int
}

func (p *docParser) eof() bool { return p.pos >= len(p.src) }

func (p *docParser) peek() rune {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *docParser) next() rune {
	r := p.src[p.pos]
	p.pos++
	if r == '\n' {
		p.line++
		p.col = 1
	} else {
		p.col++
	}
	return r
}

func (p *docParser) errorf(format string, args ...any) error {
	return &SyntaxError{Line: p.line, Col: p.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *docParser) skipLinePrefix() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.next()
	}
	if p.peek() == '*' {
		p.next()
		for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
			p.next()
		}
	}
}

func (p *docParser) skipLine() {
	for !p.eof() {
		if p.next() == '\n' {
			return
		}
	}
}

// skipSpace also crosses line breaks and the `*` gutter of block comments.
func (p *docParser) skipSpace() {
	for !p.eof() {
		r := p.peek()
		switch {
		case r == '\n':
			p.next()
			p.skipLinePrefix()
		case unicode.IsSpace(r):
			p.next()
		default:
			return
		}
	}
}

func (p *docParser) annotation() (Annotation, error) {
	line := p.line
	p.next() // '@'
	name := strings.TrimRight(p.ident(true), ".")
	if name == "" {
		return Annotation{}, p.errorf("expected annotation name after '@'")
	}
	a := Annotation{Name: name, Line: line}
	if p.peek() != '(' {
		return a, nil
	}
	p.next()
	for {
		p.skipSpace()
		if p.eof() {
			return Annotation{}, p.errorf("unterminated argument list of @%s", name)
		}
		if p.peek() == ')' {
			p.next()
			return a, nil
		}
		key, val, err := p.argument()
		if err != nil {
			return Annotation{}, err
		}
		if key == "" {
			a.Positional = append(a.Positional, val)
		} else {
			if a.Named == nil {
				a.Named = map[string]any{}
			}
			a.Named[key] = val
		}
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.next()
		case ')':
		default:
			return Annotation{}, p.errorf("expected ',' or ')' in @%s, got %q", name, p.peek())
		}
	}
}

// argument parses `key = value` or a bare value.
func (p *docParser) argument() (string, any, error) {
	start, line, col := p.pos, p.line, p.col
	if isIdentStart(p.peek()) {
		id := p.ident(false)
		p.skipSpace()
		if p.peek() == '=' {
			p.next()
			p.skipSpace()
			v, err := p.value()
			return id, v, err
		}
		p.pos, p.line, p.col = start, line, col
	}
	v, err := p.value()
	return "", v, err
}

func (p *docParser) value() (any, error) {
	r := p.peek()
	switch {
	case r == '"':
		return p.str()
	case r == '{':
		return p.array()
	case r == '@':
		return p.annotation()
	case r == '-' || unicode.IsDigit(r):
		return p.number()
	case isIdentStart(r):
		id := p.ident(true)
		switch strings.ToLower(id) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		// class constants and bare identifiers are kept verbatim
		for p.peek() == ':' && p.pos+1 < len(p.src) && p.src[p.pos+1] == ':' {
			p.next()
			p.next()
			id += "::" + p.ident(false)
		}
		return id, nil
	}
	return nil, p.errorf("unexpected %q", r)
}

func (p *docParser) str() (string, error) {
	p.next() // opening quote
	var sb strings.Builder
	for !p.eof() {
		r := p.next()
		switch r {
		case '"':
			// doubled quote is an escaped quote
			if p.peek() == '"' {
				p.next()
				sb.WriteRune('"')
				continue
			}
			return sb.String(), nil
		case '\\':
			if p.peek() == '"' || p.peek() == '\\' {
				sb.WriteRune(p.next())
				continue
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *docParser) number() (any, error) {
	start := p.pos
	if p.peek() == '-' {
		p.next()
	}
	for !p.eof() && (unicode.IsDigit(p.peek()) || p.peek() == '.') {
		p.next()
	}
	lit := string(p.src[start:p.pos])
	if n, err := strconv.Atoi(lit); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, p.errorf("bad number %q", lit)
	}
	return f, nil
}

// array parses `{a, b}` into []any, or `{k=v, k2: v2}` into map[string]any.
func (p *docParser) array() (any, error) {
	p.next() // '{'
	var (
		list  []any
		keyed map[string]any
	)
	for {
		p.skipSpace()
		if p.eof() {
			return nil, p.errorf("unterminated array")
		}
		if p.peek() == '}' {
			p.next()
			if keyed != nil {
				return keyed, nil
			}
			if list == nil {
				list = []any{}
			}
			return list, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.peek() == '=' || p.peek() == ':' {
			p.next()
			p.skipSpace()
			key := fmt.Sprint(v)
			val, err := p.value()
			if err != nil {
				return nil, err
			}
			if keyed == nil {
				keyed = map[string]any{}
				for i, prev := range list {
					keyed[strconv.Itoa(i)] = prev
				}
			}
			keyed[key] = val
		} else if keyed != nil {
			keyed[strconv.Itoa(len(keyed))] = v
		} else {
			list = append(list, v)
		}
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.next()
		case '}':
		default:
			return nil, p.errorf("expected ',' or '}' in array, got %q", p.peek())
		}
	}
}

// ident reads an identifier; qualified allows `\` and `.` separators.
func (p *docParser) ident(qualified bool) string {
	start := p.pos
	for !p.eof() {
		r := p.peek()
		if isIdentStart(r) || unicode.IsDigit(r) || r == '-' && p.pos > start {
			p.next()
			continue
		}
		if qualified && (r == '\\' || r == '.') && p.pos > start {
			p.next()
			continue
		}
		break
	}
	return string(p.src[start:p.pos])
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '\\' || unicode.IsLetter(r)
}
