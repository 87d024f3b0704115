// Package console writes line-oriented progress and report output.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

type Tone int

const (
	Plain Tone = iota
	Good
	Bad
	Caution
	Strong
)

// Color modes accepted by Options.Color.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

type Options struct {
	Verbose bool
	Color   string
}

// Output is safe for concurrent use; lines are written whole.
type Output struct {
	mu       sync.Mutex
	w        io.Writer
	verbose  bool
	renderer *lipgloss.Renderer
	styles   map[Tone]lipgloss.Style
}

func New(w io.Writer, opts Options) *Output {
	r := lipgloss.NewRenderer(w)
	if !colorEnabled(w, opts.Color) {
		r.SetColorProfile(termenv.Ascii)
	} else if opts.Color == ColorAlways {
		r.SetColorProfile(termenv.ANSI256)
	}
	return &Output{
		w:        w,
		verbose:  opts.Verbose,
		renderer: r,
		styles: map[Tone]lipgloss.Style{
			Plain:   r.NewStyle(),
			Good:    r.NewStyle().Foreground(lipgloss.Color("2")),
			Bad:     r.NewStyle().Foreground(lipgloss.Color("1")),
			Caution: r.NewStyle().Foreground(lipgloss.Color("3")),
			Strong:  r.NewStyle().Bold(true),
		},
	}
}

func colorEnabled(w io.Writer, mode string) bool {
	switch strings.ToLower(mode) {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (o *Output) Verbose() bool { return o.verbose }

// Renderer exposes the output's lipgloss renderer for table rendering.
func (o *Output) Renderer() *lipgloss.Renderer { return o.renderer }

// Style renders text in the given tone without writing it.
func (o *Output) Style(tone Tone, text string) string {
	s, ok := o.styles[tone]
	if !ok {
		return text
	}
	return s.Render(text)
}

func (o *Output) Line(tone Tone, text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintln(o.w, o.Style(tone, text))
}

func (o *Output) Linef(tone Tone, format string, args ...any) {
	o.Line(tone, fmt.Sprintf(format, args...))
}

// Debug writes text only in verbose mode.
func (o *Output) Debug(text string) {
	if !o.verbose {
		return
	}
	o.Line(Plain, text)
}

// Block writes pre-rendered multi-line text as is.
func (o *Output) Block(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	io.WriteString(o.w, strings.TrimRight(text, "\n")+"\n")
}
