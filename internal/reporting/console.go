package reporting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/codewithboateng/rulescan/internal/console"
	"github.com/codewithboateng/rulescan/internal/ir"
)

// SummaryLine is the one-line count summary of a run.
func SummaryLine(run *ir.Run) string {
	s := run.Summary
	return fmt.Sprintf("Rules: %d, Files: %d, Classes: %d, Applied: %d, Passes: %d, Failures: %d, Exceptions: %d, Warnings: %d, Time: %s",
		s.RegisteredRules, s.InspectedFiles, s.InspectedClasses, s.AppliedRules,
		s.Passes, s.Failures, s.Exceptions, s.Warnings, run.Elapsed.Round(time.Millisecond))
}

// StatusLine is the final verdict.
func StatusLine(run *ir.Run) string {
	if run.Summary.Failed() {
		return fmt.Sprintf("[ERROR] %d failures, %d exceptions", run.Summary.Failures, run.Summary.Exceptions)
	}
	return "[OK] all rules pass"
}

// WriteConsole renders the end-of-scan report: summary, one table per
// non-empty outcome section, verdict.
func WriteConsole(out *console.Output, run *ir.Run) {
	out.Line(console.Plain, "")
	out.Line(console.Strong, SummaryLine(run))

	sections := []struct {
		title string
		kind  ir.OutcomeKind
		tone  console.Tone
	}{
		{"Failures", ir.OutcomeFail, console.Bad},
		{"Exceptions", ir.OutcomeException, console.Bad},
		{"Warnings", ir.OutcomeWarn, console.Caution},
	}
	for _, sec := range sections {
		outs := run.Filter(sec.kind)
		if len(outs) == 0 {
			continue
		}
		out.Line(console.Plain, "")
		out.Line(sec.tone, fmt.Sprintf("%s (%d)", sec.title, len(outs)))
		out.Block(renderTable(out.Renderer(), outs))
	}

	out.Line(console.Plain, "")
	if run.Summary.Failed() {
		out.Line(console.Bad, StatusLine(run))
		return
	}
	out.Line(console.Good, StatusLine(run))
}

func renderTable(r *lipgloss.Renderer, outs []ir.Outcome) string {
	var rows [][]string
	for _, g := range groupOutcomes(outs) {
		for i, o := range g.items {
			class, rule := g.class, g.rule
			if i > 0 {
				class, rule = "", ""
			}
			line := ""
			if o.Line > 0 {
				line = strconv.Itoa(o.Line)
			}
			rows = append(rows, []string{class, rule, line, o.Message})
		}
	}
	return Table(r, []string{"Class", "Rule", "Line", "Message"}, rows)
}

// Table renders rows under a bold header with a normal border.
func Table(r *lipgloss.Renderer, headers []string, rows [][]string) string {
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		String()
}
