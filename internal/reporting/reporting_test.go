package reporting

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewithboateng/rulescan/internal/analysis"
	"github.com/codewithboateng/rulescan/internal/console"
	"github.com/codewithboateng/rulescan/internal/ir"
	"github.com/codewithboateng/rulescan/internal/rules"
)

var update = flag.Bool("update", false, "update golden snapshot")

const goldenFile = "testdata/golden_run.json"

type nopSink struct{}

func (nopSink) Line(console.Tone, string) {}
func (nopSink) Debug(string)              {}

type stubRule struct{ rules.Base }

func (stubRule) Supports(*ir.Class) (bool, error) { return true, nil }

var (
	repo   = ir.NewClass(ir.ClassSpec{Name: "example.com/fixture/store.Repository"})
	finder = ir.NewClass(ir.ClassSpec{Name: "example.com/fixture.Finder", Kind: ir.KindInterface})
	ruleA  = stubRule{rules.Base{ID: "rule-a"}}
	ruleB  = stubRule{rules.Base{ID: "rule-b"}}
)

func sampleRun() ir.Run {
	a := analysis.New(nopSink{})
	a.RegisteredRules = 2
	a.InspectedFiles = 2
	a.InspectedClasses = 2
	a.AppliedRules = 4
	a.Pass(repo, ruleA)
	a.Fail(repo, ruleB, "missing @Required on Name", 19)
	a.Warn(finder, ruleA, "interface has no methods", 0)
	a.Exception(finder, ruleB, errors.New("boom"))

	return BuildRun(a, Meta{
		ID:       "run-golden",
		Elapsed:  1500 * time.Millisecond,
		RulesDir: "rules",
		Paths:    []string{"src"},
		Version:  "test",
	})
}

func TestGolden_RunSnapshot(t *testing.T) {
	run := sampleRun()
	var got bytes.Buffer
	require.NoError(t, EncodeJSON(&got, &run))

	if *update {
		require.NoError(t, os.WriteFile(goldenFile, got.Bytes(), 0o644))
		t.Logf("updated %s", goldenFile)
		return
	}

	want, err := os.ReadFile(goldenFile)
	require.NoError(t, err, "run with: go test ./internal/reporting -run TestGolden_RunSnapshot -args -update")
	assert.Equal(t, string(bytes.TrimSpace(want)), string(bytes.TrimSpace(got.Bytes())))
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	run := sampleRun()
	dir := filepath.Join(t.TempDir(), "nested", "out")

	path, err := WriteJSON(run.ID, dir, &run)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "run-golden.json"), path)

	back, err := ReadJSON(path)
	require.NoError(t, err)
	assert.Equal(t, run.Summary, back.Summary)
	assert.Equal(t, run.Outcomes, back.Outcomes)
}

func TestWriteConsole(t *testing.T) {
	run := sampleRun()
	var buf bytes.Buffer
	WriteConsole(console.New(&buf, console.Options{Color: console.ColorNever}), &run)
	out := buf.String()

	assert.Contains(t, out, "Rules: 2, Files: 2, Classes: 2, Applied: 4, Passes: 1, Failures: 1, Exceptions: 1, Warnings: 1, Time: 1.5s")
	assert.Contains(t, out, "Failures (1)")
	assert.Contains(t, out, "Exceptions (1)")
	assert.Contains(t, out, "Warnings (1)")
	assert.Contains(t, out, "missing @Required on Name")
	assert.Contains(t, out, "Message")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "[ERROR] 1 failures, 1 exceptions"))
}

func TestWriteConsole_AllPass(t *testing.T) {
	a := analysis.New(nopSink{})
	a.Pass(repo, ruleA)
	run := BuildRun(a, Meta{ID: "ok"})

	var buf bytes.Buffer
	WriteConsole(console.New(&buf, console.Options{Color: console.ColorNever}), &run)
	out := buf.String()
	assert.NotContains(t, out, "Failures (")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "[OK] all rules pass"))
}

func TestWriteConsole_DryRunLeavesReportUnchanged(t *testing.T) {
	render := func(dry bool) string {
		run := sampleRun()
		run.DryRun = dry
		var buf bytes.Buffer
		WriteConsole(console.New(&buf, console.Options{Color: console.ColorNever}), &run)
		return buf.String()
	}
	assert.Equal(t, render(false), render(true))
}

func TestGroupOutcomes_FirstSeenOrder(t *testing.T) {
	groups := groupOutcomes([]ir.Outcome{
		{Class: "B", Rule: "r2", Message: "1"},
		{Class: "A", Rule: "r1", Message: "2"},
		{Class: "B", Rule: "r1", Message: "3"},
		{Class: "B", Rule: "r2", Message: "4"},
	})
	require.Len(t, groups, 3)
	assert.Equal(t, "B", groups[0].class)
	assert.Equal(t, "r2", groups[0].rule)
	assert.Len(t, groups[0].items, 2)
	assert.Equal(t, "r1", groups[1].rule)
	assert.Equal(t, "A", groups[2].class)
}

func TestRenderHTML_Escapes(t *testing.T) {
	run := ir.Run{
		ID:      "r1",
		Summary: ir.Summary{Failures: 1},
		Outcomes: []ir.Outcome{
			{Class: "a.B", Rule: "x", Kind: ir.OutcomeFail, Message: "<script>alert(1)</script>", Line: 7},
		},
	}
	var buf bytes.Buffer
	RenderHTML(&buf, &run)
	out := buf.String()
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "<h2>Failures (1)</h2>")
	assert.NotContains(t, out, "Warnings (")
	assert.Contains(t, out, "<td>7</td>")
}

func TestWriteHTML_CreatesDir(t *testing.T) {
	run := sampleRun()
	dir := filepath.Join(t.TempDir(), "html")
	path, err := WriteHTML(run.ID, dir, &run)
	require.NoError(t, err)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "<!doctype html>"))
}

func TestCompareRuns(t *testing.T) {
	base := &ir.Run{ID: "base", Outcomes: []ir.Outcome{
		{Class: "a.A", Rule: "r1", Kind: ir.OutcomeFail, Message: "old", Line: 3},
		{Class: "a.A", Rule: "r2", Kind: ir.OutcomeException, Message: "boom"},
		{Class: "a.C", Rule: "r1", Kind: ir.OutcomePass},
	}}
	head := &ir.Run{ID: "head", Outcomes: []ir.Outcome{
		{Class: "a.A", Rule: "r1", Kind: ir.OutcomeFail, Message: "new", Line: 3},
		{Class: "a.B", Rule: "r1", Kind: ir.OutcomeFail, Message: "fresh"},
		{Class: "a.B", Rule: "r3", Kind: ir.OutcomeWarn, Message: "ignored"},
	}}

	d := CompareRuns(base, head)
	assert.Equal(t, DiffSummary{NewCount: 1, RemovedCount: 1, ChangedCount: 1}, d.Summary)
	assert.Equal(t, "a.B", d.New[0].Class)
	assert.Equal(t, "r2", d.Removed[0].Rule)
	assert.Equal(t, "a.A|r1|fail|3", d.Changed[0].Key)
	assert.Equal(t, "old", d.Changed[0].Base.Message)
	assert.Equal(t, "new", d.Changed[0].Head.Message)
}

func TestWriteDiffJSON(t *testing.T) {
	dir := t.TempDir()
	base := &ir.Run{ID: "b"}
	head := &ir.Run{ID: "h"}
	path, err := WriteDiffJSON(base.ID, head.ID, dir, base, head)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "diff_b__h.json"), path)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
