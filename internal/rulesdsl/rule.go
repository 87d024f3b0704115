package rulesdsl

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/codewithboateng/rulescan/internal/annotation"
	"github.com/codewithboateng/rulescan/internal/container"
	"github.com/codewithboateng/rulescan/internal/ir"
	"github.com/codewithboateng/rulescan/internal/parser"
	"github.com/codewithboateng/rulescan/internal/rules"
)

// Prefix marks descriptor names that resolve to compiled manifests.
const Prefix = "rulesdsl:"

type compiledCheck struct {
	Check
	prg cel.Program
}

// Rule is a compiled manifest.
type Rule struct {
	rules.Base
	path      string
	supports  cel.Program // nil: every class
	applyRule bool
	reader    *annotation.Reader
	checks    []compiledCheck
}

var _ rules.AnalysisAware = (*Rule)(nil)

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(cel.Variable("class", cel.MapType(cel.StringType, cel.DynType)))
}

// Compile reads and compiles the manifest at path. reader may be nil.
func Compile(path string, reader *annotation.Reader) (*Rule, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	return compileManifest(m, path, reader)
}

func compileManifest(m Manifest, path string, reader *annotation.Reader) (*Rule, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	if reader == nil {
		reader = annotation.NewReader()
	}
	r := &Rule{
		Base:      rules.Base{ID: m.Name, Summary: m.Description},
		path:      path,
		applyRule: m.ApplyRule,
		reader:    reader,
	}
	if strings.TrimSpace(m.Supports) != "" {
		if r.supports, err = program(env, m.Supports); err != nil {
			return nil, fmt.Errorf("rule %q: supports: %w", m.Name, err)
		}
	}
	for i, c := range m.Checks {
		prg, err := program(env, c.Expr)
		if err != nil {
			return nil, fmt.Errorf("rule %q: check %d: %w", m.Name, i+1, err)
		}
		r.checks = append(r.checks, compiledCheck{Check: c, prg: prg})
	}
	return r, nil
}

func program(env *cel.Env, expr string) (cel.Program, error) {
	ast, iss := env.Compile(expr)
	if iss.Err() != nil {
		return nil, iss.Err()
	}
	return env.Program(ast)
}

func (r *Rule) Path() string { return r.path }

func (r *Rule) Supports(c *ir.Class) (bool, error) {
	if r.applyRule && !r.reader.MatchesApplyRule(c, r.Name()) {
		return false, nil
	}
	if r.supports == nil {
		return true, nil
	}
	return evalBool(r.supports, ClassVars(c, r.reader))
}

// Analyze records one outcome per failing check. Evaluation errors are
// recorded as exceptions and the remaining checks still run.
func (r *Rule) Analyze(c *ir.Class, rec rules.Recorder) error {
	vars := ClassVars(c, r.reader)
	for _, chk := range r.checks {
		ok, err := evalBool(chk.prg, vars)
		switch {
		case err != nil:
			rec.Exception(c, r, fmt.Errorf("%s: %w", chk.Expr, err))
		case ok:
		case chk.Level == LevelWarn:
			rec.Warn(c, r, chk.Message, c.Line())
		default:
			rec.Fail(c, r, chk.Message, c.Line())
		}
	}
	return nil
}

func evalBool(prg cel.Program, vars map[string]any) (bool, error) {
	out, _, err := prg.Eval(vars)
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression yields %s, want bool", out.Type().TypeName())
	}
	return b, nil
}

// Extract validates a manifest and describes it as an analysis-aware rule
// type so discovery picks it up.
func Extract(path string) (*ir.Class, error) {
	m, err := ReadManifest(path)
	if err == nil {
		_, err = compileManifest(m, path, nil)
	}
	if err != nil {
		return nil, &parser.ExtractionError{Path: path, Err: err}
	}
	return ir.NewClass(ir.ClassSpec{
		Name:       Prefix + path,
		ShortName:  m.Name,
		Package:    "rulesdsl",
		Kind:       ir.KindStruct,
		Line:       1,
		Doc:        m.Description,
		Source:     path,
		Interfaces: []string{rules.AnalysisAwareInterface},
	}), nil
}

// Resolve builds the rule behind a Prefix name, sharing the container's
// annotation reader when one is set.
func Resolve(c *container.Container, name string) (any, error) {
	path := strings.TrimPrefix(name, Prefix)
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%s: manifest path must be absolute", name)
	}
	reader, err := container.ResolveType[*annotation.Reader](c)
	if err != nil {
		reader = nil
	}
	return Compile(path, reader)
}

// Install wires manifests into a loader and a container.
func Install(l *parser.Loader, c *container.Container) {
	for _, s := range Suffixes {
		l.Register(s, parser.ExtractorFunc(Extract))
	}
	c.AddResolver(Prefix, Resolve)
}
