// Package scanner drives a scan: discover rules, then apply them to every
// class found under the scan paths.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/codewithboateng/rulescan/internal/analysis"
	"github.com/codewithboateng/rulescan/internal/annotation"
	"github.com/codewithboateng/rulescan/internal/console"
	"github.com/codewithboateng/rulescan/internal/container"
	"github.com/codewithboateng/rulescan/internal/ir"
	"github.com/codewithboateng/rulescan/internal/parser"
	"github.com/codewithboateng/rulescan/internal/reporting"
	"github.com/codewithboateng/rulescan/internal/rules"
	"github.com/codewithboateng/rulescan/internal/rulesdsl"
)

var ErrNoRules = errors.New("no rules found")

const (
	ExitOK      = 0
	ExitFailure = 1
)

type Options struct {
	RulesDir  string
	Paths     []string
	DryRun    bool
	Jobs      int // extraction parallelism; rules always run in order
	CacheSize int
	Walk      parser.WalkOptions
	Rules     rules.Settings
	Version   string
}

type Result struct {
	ExitCode int
	Run      ir.Run
}

// Scanner runs one scan. Build a new one per scan: its loader cache,
// annotation reader and registry are scan-scoped.
type Scanner struct {
	opts      Options
	out       analysis.Sink
	logger    *slog.Logger
	loader    *parser.Loader
	container *container.Container
	reader    *annotation.Reader
	registry  *rules.Registry
	analysis  *analysis.Analysis
}

func New(opts Options, out analysis.Sink, logger *slog.Logger) (*Scanner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.Walk.Suffixes) == 0 {
		opts.Walk = parser.DefaultWalkOptions()
	}
	loader, err := parser.NewLoader(opts.CacheSize)
	if err != nil {
		return nil, err
	}
	c := container.New()
	reader := annotation.NewReader().WithLogger(logger)
	container.SetType(c, reader)
	rulesdsl.Install(loader, c)

	return &Scanner{
		opts:      opts,
		out:       out,
		logger:    logger,
		loader:    loader,
		container: c,
		reader:    reader,
		registry:  rules.NewRegistry(logger, opts.Rules),
		analysis:  analysis.New(out),
	}, nil
}

func (s *Scanner) Registry() *rules.Registry       { return s.registry }
func (s *Scanner) Analysis() *analysis.Analysis    { return s.analysis }
func (s *Scanner) Container() *container.Container { return s.container }
func (s *Scanner) Loader() *parser.Loader          { return s.loader }

// Run performs both phases. It returns ErrNoRules, with exit code 1, when
// discovery registers nothing; phase two is skipped in that case.
func (s *Scanner) Run(ctx context.Context) (Result, error) {
	started := time.Now()
	meta := reporting.Meta{
		ID:        uuid.NewString(),
		StartedAt: started.UTC(),
		RulesDir:  s.opts.RulesDir,
		Paths:     s.opts.Paths,
		DryRun:    s.opts.DryRun,
		Version:   s.opts.Version,
	}
	finish := func(code int) Result {
		meta.Elapsed = time.Since(started)
		return Result{ExitCode: code, Run: reporting.BuildRun(s.analysis, meta)}
	}

	if err := s.Discover(ctx); err != nil {
		return finish(ExitFailure), err
	}
	if s.registry.Count() == 0 {
		s.out.Line(console.Bad, "[ERROR] "+ErrNoRules.Error())
		return finish(ExitFailure), ErrNoRules
	}
	if err := s.Scan(ctx); err != nil {
		return finish(ExitFailure), err
	}
	return finish(ExitCode(s.analysis.Summary(), s.opts.DryRun)), nil
}

// ExitCode maps a summary to the process exit code.
func ExitCode(sum ir.Summary, dryRun bool) int {
	if sum.Failed() && !dryRun {
		return ExitFailure
	}
	return ExitOK
}

// Discover registers every rule type found under the rules directory. A type
// that embeds a rule type found there is a rule as well.
func (s *Scanner) Discover(ctx context.Context) error {
	var undeclared []*ir.Class
	for unit := range parser.Files([]string{s.opts.RulesDir}, s.opts.Walk) {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.out.Debug(fmt.Sprintf("inspecting %s for rules", unit.Path))
		c, err := s.loader.Load(unit.Path, true)
		if err != nil {
			s.out.Line(console.Bad, fmt.Sprintf("[!] exception inspecting %s, skipping", unit.Path))
			s.logger.Debug("rule extraction failed", "path", unit.Path, "err", err)
			continue
		}
		if !rules.Declares(c) {
			undeclared = append(undeclared, c)
			continue
		}
		s.register(c)
	}
	// parents may sort after their children, so embedding is checked once
	// every rule source has been loaded
	for _, c := range undeclared {
		if !s.embedsRule(c, map[string]bool{}) {
			s.out.Debug(fmt.Sprintf("%s does not implement %s", c.Name(), rules.RuleInterface))
			continue
		}
		s.register(c)
	}
	s.analysis.RegisteredRules = s.registry.Count()
	return nil
}

func (s *Scanner) register(c *ir.Class) {
	if !s.container.Has(c.Name()) {
		s.logger.Warn("rule type has no provider", "rule_type", c.Name())
		return
	}
	v, err := s.container.Get(c.Name())
	if err != nil {
		s.logger.Warn("rule type not resolvable", "rule_type", c.Name(), "err", err)
		return
	}
	rule, ok := v.(rules.Rule)
	if !ok {
		s.logger.Warn("resolved value is not a rule", "rule_type", c.Name(), "value_type", fmt.Sprintf("%T", v))
		return
	}
	s.out.Debug(fmt.Sprintf("registering %s as a rule", c.Name()))
	if err := s.registry.Register(rule.Name(), rule); err != nil {
		s.logger.Warn("rule not registered", "rule_type", c.Name(), "err", err)
	}
}

// embedsRule follows embedded structs among the descriptors loaded so far.
func (s *Scanner) embedsRule(c *ir.Class, seen map[string]bool) bool {
	for _, p := range c.Parents() {
		if seen[p] {
			continue
		}
		seen[p] = true
		pc, ok := s.loader.Lookup(p)
		if !ok {
			continue
		}
		if rules.Declares(pc) || s.embedsRule(pc, seen) {
			return true
		}
	}
	return false
}

type extracted struct {
	unit  parser.Unit
	class *ir.Class
	err   error
}

// Scan applies registered rules to every class under the scan paths.
func (s *Scanner) Scan(ctx context.Context) error {
	applied := map[string]struct{}{}
	defer func() { s.analysis.AppliedRules = len(applied) }()

	if s.opts.Jobs <= 1 {
		for unit := range parser.Files(s.opts.Paths, s.opts.Walk) {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := s.loader.Load(unit.Path, true)
			s.inspect(extracted{unit: unit, class: c, err: err}, applied)
		}
		return nil
	}

	items, err := s.prefetch(ctx)
	if err != nil {
		return err
	}
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.inspect(it, applied)
	}
	return nil
}

// prefetch extracts all units concurrently, keeping traversal order.
func (s *Scanner) prefetch(ctx context.Context) ([]extracted, error) {
	var items []extracted
	for unit := range parser.Files(s.opts.Paths, s.opts.Walk) {
		items = append(items, extracted{unit: unit})
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Jobs)
	for i := range items {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i].class, items[i].err = s.loader.Load(items[i].unit.Path, true)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Scanner) inspect(it extracted, applied map[string]struct{}) {
	s.analysis.InspectedFiles++
	s.out.Debug(fmt.Sprintf("inspecting %s for classes", it.unit.Path))
	if it.err != nil {
		s.out.Line(console.Bad, fmt.Sprintf("[!] exception inspecting %s, skipping", it.unit.Path))
		s.logger.Debug("class extraction failed", "path", it.unit.Path, "err", it.err)
		return
	}
	c := it.class
	s.analysis.InspectedClasses++

	n := 0
	for _, e := range s.registry.Rules() {
		ok, err := supports(e.Rule, c)
		if err != nil {
			s.analysis.Debug("supports failed, skipping: "+err.Error(), c, e.Rule)
			continue
		}
		if !ok {
			s.analysis.Debug("rule does not support class", c, e.Rule)
			continue
		}
		if n == 0 {
			s.out.Line(console.Strong, c.Name())
		}
		n++
		applied[e.Name] = struct{}{}
		s.record(c, e, rules.Execute(e.Rule, e.Kind, c, s.analysis))
	}
	if n == 0 {
		s.analysis.Debug("no rules found for class", c, nil)
	}
}

// supports shields the scan from panicking predicates.
func supports(r rules.Rule, c *ir.Class) (ok bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			ok, err = false, fmt.Errorf("panic: %v", v)
		}
	}()
	return r.Supports(c)
}

func (s *Scanner) record(c *ir.Class, e rules.Entry, res rules.Result) {
	switch res.Status {
	case rules.StatusPass:
		s.analysis.Pass(c, e.Rule)
	case rules.StatusFail:
		s.analysis.Fail(c, e.Rule, res.Message, res.Line)
	case rules.StatusException:
		err := res.Err
		if err == nil {
			err = errors.New(res.Message)
		}
		s.analysis.Exception(c, e.Rule, err)
	case rules.StatusRecorded:
	}
}
