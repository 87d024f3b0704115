package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/codewithboateng/rulescan/internal/ir"
)

type Diff struct {
	BaseID  string        `json:"base_id"`
	HeadID  string        `json:"head_id"`
	Summary DiffSummary   `json:"summary"`
	New     []ir.Outcome  `json:"new"`
	Removed []ir.Outcome  `json:"removed"`
	Changed []DiffChanged `json:"changed"`
}

type DiffSummary struct {
	NewCount     int `json:"new"`
	RemovedCount int `json:"removed"`
	ChangedCount int `json:"changed"`
}

type DiffChanged struct {
	Key  string     `json:"key"`
	Base ir.Outcome `json:"base"`
	Head ir.Outcome `json:"head"`
}

// CompareRuns diffs the failures and exceptions of two runs. Outcomes are
// matched on class, rule, kind and line; a matched pair whose message
// differs is reported as changed.
func CompareRuns(base, head *ir.Run) Diff {
	bm := indexFindings(base)
	hm := indexFindings(head)

	d := Diff{BaseID: base.ID, HeadID: head.ID}
	for k, h := range hm {
		b, ok := bm[k]
		if !ok {
			d.New = append(d.New, h)
			continue
		}
		if strings.TrimSpace(b.Message) != strings.TrimSpace(h.Message) {
			d.Changed = append(d.Changed, DiffChanged{Key: k, Base: b, Head: h})
		}
	}
	for k, b := range bm {
		if _, ok := hm[k]; !ok {
			d.Removed = append(d.Removed, b)
		}
	}

	sort.Slice(d.New, func(i, j int) bool { return keyOf(d.New[i]) < keyOf(d.New[j]) })
	sort.Slice(d.Removed, func(i, j int) bool { return keyOf(d.Removed[i]) < keyOf(d.Removed[j]) })
	sort.Slice(d.Changed, func(i, j int) bool { return d.Changed[i].Key < d.Changed[j].Key })

	d.Summary = DiffSummary{
		NewCount:     len(d.New),
		RemovedCount: len(d.Removed),
		ChangedCount: len(d.Changed),
	}
	return d
}

func WriteDiffJSON(baseID, headID, outDir string, base, head *ir.Run) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, "diff_"+baseID+"__"+headID+".json")
	d := CompareRuns(base, head)
	d.BaseID, d.HeadID = baseID, headID
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

// indexFindings keeps the first outcome per key; repeated identical
// records in one run collapse.
func indexFindings(run *ir.Run) map[string]ir.Outcome {
	m := map[string]ir.Outcome{}
	for _, o := range run.Outcomes {
		if o.Kind != ir.OutcomeFail && o.Kind != ir.OutcomeException {
			continue
		}
		k := keyOf(o)
		if _, ok := m[k]; !ok {
			m[k] = o
		}
	}
	return m
}

func keyOf(o ir.Outcome) string {
	var sb strings.Builder
	sb.WriteString(o.Class)
	sb.WriteByte('|')
	sb.WriteString(o.Rule)
	sb.WriteByte('|')
	sb.WriteString(string(o.Kind))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(o.Line))
	return sb.String()
}
