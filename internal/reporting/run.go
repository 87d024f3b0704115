package reporting

import (
	"time"

	"github.com/codewithboateng/rulescan/internal/analysis"
	"github.com/codewithboateng/rulescan/internal/ir"
)

// Meta carries the scan facts the analysis does not know.
type Meta struct {
	ID        string
	StartedAt time.Time
	Elapsed   time.Duration
	RulesDir  string
	Paths     []string
	DryRun    bool
	Version   string
}

// BuildRun snapshots an analysis into a serializable run.
func BuildRun(a *analysis.Analysis, meta Meta) ir.Run {
	return ir.Run{
		ID:        meta.ID,
		StartedAt: meta.StartedAt,
		Elapsed:   meta.Elapsed,
		RulesDir:  meta.RulesDir,
		Paths:     append([]string(nil), meta.Paths...),
		DryRun:    meta.DryRun,
		Version:   meta.Version,
		Summary:   a.Summary(),
		Outcomes:  a.Outcomes(),
	}
}

type group struct {
	class string
	rule  string
	items []ir.Outcome
}

// groupOutcomes groups by class, then rule, in first-seen order.
func groupOutcomes(outs []ir.Outcome) []group {
	var classes []string
	byClass := map[string][]*group{}
	for _, o := range outs {
		gs, seen := byClass[o.Class]
		if !seen {
			classes = append(classes, o.Class)
		}
		var g *group
		for _, cand := range gs {
			if cand.rule == o.Rule {
				g = cand
				break
			}
		}
		if g == nil {
			g = &group{class: o.Class, rule: o.Rule}
			byClass[o.Class] = append(gs, g)
		}
		g.items = append(g.items, o)
	}
	var out []group
	for _, c := range classes {
		for _, g := range byClass[c] {
			out = append(out, *g)
		}
	}
	return out
}
