package reporting

import (
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"

	"github.com/codewithboateng/rulescan/internal/ir"
)

func WriteHTML(runID, outDir string, run *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, runID+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	RenderHTML(f, run)
	return path, nil
}

// RenderHTML writes a standalone page: summary, then one table per
// non-empty failure, exception and warning section.
func RenderHTML(w io.Writer, run *ir.Run) {
	fmt.Fprintf(w, "<!doctype html><html><head><meta charset='utf-8'><title>%s</title>", html.EscapeString(run.ID))
	fmt.Fprint(w, "<style>body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4} table{border-collapse:collapse;margin:8px 0} td,th{border:1px solid #ddd;padding:6px} h1,h2{margin:6px 0 4px} .dim{color:#666} .mono{font-family:ui-monospace,Menlo,Consolas,monospace} .bad{color:#b00} .ok{color:#070}</style>")
	fmt.Fprint(w, "</head><body>")

	fmt.Fprintf(w, "<h1>rulescan report – <span class='mono'>%s</span></h1>", html.EscapeString(run.ID))
	fmt.Fprintf(w, "<p class='dim'>Rules dir: <span class='mono'>%s</span>", html.EscapeString(run.RulesDir))
	if run.DryRun {
		fmt.Fprint(w, " &nbsp; dry run")
	}
	fmt.Fprint(w, "</p>")
	fmt.Fprintf(w, "<p>%s</p>", html.EscapeString(SummaryLine(run)))
	if run.Summary.Failed() {
		fmt.Fprintf(w, "<p class='bad'>%s</p>", html.EscapeString(StatusLine(run)))
	} else {
		fmt.Fprintf(w, "<p class='ok'>%s</p>", html.EscapeString(StatusLine(run)))
	}

	sections := []struct {
		title string
		kind  ir.OutcomeKind
	}{
		{"Failures", ir.OutcomeFail},
		{"Exceptions", ir.OutcomeException},
		{"Warnings", ir.OutcomeWarn},
	}
	for _, sec := range sections {
		outs := run.Filter(sec.kind)
		if len(outs) == 0 {
			continue
		}
		fmt.Fprintf(w, "<h2>%s (%d)</h2><table><tr><th>Class</th><th>Rule</th><th>Line</th><th>Message</th></tr>", sec.title, len(outs))
		for _, g := range groupOutcomes(outs) {
			for _, o := range g.items {
				line := ""
				if o.Line > 0 {
					line = fmt.Sprint(o.Line)
				}
				fmt.Fprintf(w, "<tr><td class='mono'>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
					html.EscapeString(o.Class),
					html.EscapeString(o.Rule),
					line,
					html.EscapeString(o.Message),
				)
			}
		}
		fmt.Fprint(w, "</table>")
	}
	if len(run.Outcomes) == 0 {
		fmt.Fprint(w, "<p class='dim'>No rule was applied.</p>")
	}

	fmt.Fprint(w, "</body></html>")
}
