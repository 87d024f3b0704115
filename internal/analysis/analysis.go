// Package analysis accumulates rule outcomes for one scan.
package analysis

import (
	"fmt"

	"github.com/codewithboateng/rulescan/internal/console"
	"github.com/codewithboateng/rulescan/internal/ir"
	"github.com/codewithboateng/rulescan/internal/rules"
)

// Sink receives progress lines.
type Sink interface {
	Line(tone console.Tone, text string)
	Debug(text string)
}

type Entry struct {
	Message string
	Line    int
	Err     error
}

type RuleGroup struct {
	Rule    string
	Entries []Entry
}

type ClassGroup struct {
	Class string
	Rules []RuleGroup
}

type ClassPasses struct {
	Class string
	Rules []string
}

// grouped keeps class -> rule -> entries in first-seen order.
type grouped struct {
	groups []ClassGroup
	index  map[string]int
}

func (g *grouped) add(class, rule string, e Entry) {
	if g.index == nil {
		g.index = map[string]int{}
	}
	ci, ok := g.index[class]
	if !ok {
		ci = len(g.groups)
		g.index[class] = ci
		g.groups = append(g.groups, ClassGroup{Class: class})
	}
	cg := &g.groups[ci]
	for i := range cg.Rules {
		if cg.Rules[i].Rule == rule {
			cg.Rules[i].Entries = append(cg.Rules[i].Entries, e)
			return
		}
	}
	cg.Rules = append(cg.Rules, RuleGroup{Rule: rule, Entries: []Entry{e}})
}

func (g *grouped) snapshot() []ClassGroup {
	out := make([]ClassGroup, len(g.groups))
	for i, cg := range g.groups {
		rs := make([]RuleGroup, len(cg.Rules))
		for j, rg := range cg.Rules {
			rs[j] = RuleGroup{Rule: rg.Rule, Entries: append([]Entry(nil), rg.Entries...)}
		}
		out[i] = ClassGroup{Class: cg.Class, Rules: rs}
	}
	return out
}

// Analysis records outcomes and reports progress to a Sink. It only grows,
// and it is used from the scanning goroutine alone.
type Analysis struct {
	sink Sink

	failures   grouped
	warnings   grouped
	exceptions grouped
	passes     []ClassPasses
	passIndex  map[string]int
	outcomes   []ir.Outcome

	passCount, failCount, warnCount, exceptionCount int

	InspectedFiles   int
	InspectedClasses int
	RegisteredRules  int
	AppliedRules     int
}

var _ rules.Recorder = (*Analysis)(nil)

func New(sink Sink) *Analysis {
	return &Analysis{sink: sink, passIndex: map[string]int{}}
}

func nameOf(c *ir.Class) string {
	if c == nil {
		return "N/A"
	}
	return c.Name()
}

func ruleName(r rules.Rule) string {
	if r == nil {
		return "N/A"
	}
	return r.Name()
}

func (a *Analysis) Pass(c *ir.Class, r rules.Rule) {
	class, rule := nameOf(c), ruleName(r)
	i, ok := a.passIndex[class]
	if !ok {
		i = len(a.passes)
		a.passIndex[class] = i
		a.passes = append(a.passes, ClassPasses{Class: class})
	}
	a.passes[i].Rules = append(a.passes[i].Rules, rule)
	a.passCount++
	a.outcomes = append(a.outcomes, ir.Outcome{Class: class, Rule: rule, Kind: ir.OutcomePass})
	a.sink.Line(console.Good, fmt.Sprintf("[✓] passed rule %s", rule))
}

// Fail records a failure; an empty message falls back to the rule's
// description in progress output.
func (a *Analysis) Fail(c *ir.Class, r rules.Rule, message string, line int) {
	class, rule := nameOf(c), ruleName(r)
	a.failures.add(class, rule, Entry{Message: message, Line: line})
	a.failCount++
	a.outcomes = append(a.outcomes, ir.Outcome{Class: class, Rule: rule, Kind: ir.OutcomeFail, Message: message, Line: line})

	shown := message
	if shown == "" && r != nil {
		shown = r.Description()
	}
	text := fmt.Sprintf("[x] failure for rule %s: %s", rule, shown)
	if line > 0 {
		text += fmt.Sprintf(" (line %d)", line)
	}
	a.sink.Line(console.Bad, text)
}

func (a *Analysis) Warn(c *ir.Class, r rules.Rule, message string, line int) {
	class, rule := nameOf(c), ruleName(r)
	a.warnings.add(class, rule, Entry{Message: message, Line: line})
	a.warnCount++
	a.outcomes = append(a.outcomes, ir.Outcome{Class: class, Rule: rule, Kind: ir.OutcomeWarn, Message: message, Line: line})
	a.sink.Line(console.Caution, fmt.Sprintf("[?] warning while running rule %s: %s", rule, message))
}

func (a *Analysis) Exception(c *ir.Class, r rules.Rule, err error) {
	class, rule := nameOf(c), ruleName(r)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.exceptions.add(class, rule, Entry{Message: msg, Err: err})
	a.exceptionCount++
	a.outcomes = append(a.outcomes, ir.Outcome{Class: class, Rule: rule, Kind: ir.OutcomeException, Message: msg})
	a.sink.Line(console.Bad, fmt.Sprintf("[!] exception running rule %s: %s", rule, msg))
}

// Debug writes a diagnostic line through the sink's debug gate.
func (a *Analysis) Debug(message string, c *ir.Class, r rules.Rule) {
	a.sink.Debug(fmt.Sprintf("[*] %s (Class: %s, Rule: %s)", message, nameOf(c), ruleName(r)))
}

func (a *Analysis) PassCount() int      { return a.passCount }
func (a *Analysis) FailCount() int      { return a.failCount }
func (a *Analysis) WarnCount() int      { return a.warnCount }
func (a *Analysis) ExceptionCount() int { return a.exceptionCount }

func (a *Analysis) Failures() []ClassGroup   { return a.failures.snapshot() }
func (a *Analysis) Warnings() []ClassGroup   { return a.warnings.snapshot() }
func (a *Analysis) Exceptions() []ClassGroup { return a.exceptions.snapshot() }

func (a *Analysis) Passes() []ClassPasses {
	out := make([]ClassPasses, len(a.passes))
	for i, p := range a.passes {
		out[i] = ClassPasses{Class: p.Class, Rules: append([]string(nil), p.Rules...)}
	}
	return out
}

// Outcomes lists every record in the order it was made.
func (a *Analysis) Outcomes() []ir.Outcome {
	return append([]ir.Outcome(nil), a.outcomes...)
}

func (a *Analysis) Summary() ir.Summary {
	return ir.Summary{
		RegisteredRules:  a.RegisteredRules,
		InspectedFiles:   a.InspectedFiles,
		InspectedClasses: a.InspectedClasses,
		AppliedRules:     a.AppliedRules,
		Passes:           a.passCount,
		Failures:         a.failCount,
		Exceptions:       a.exceptionCount,
		Warnings:         a.warnCount,
	}
}
