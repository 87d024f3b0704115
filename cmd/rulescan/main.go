package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/codewithboateng/rulescan/examples/checks" // sample rules
	"github.com/codewithboateng/rulescan/internal/api"
	"github.com/codewithboateng/rulescan/internal/console"
	"github.com/codewithboateng/rulescan/internal/ir"
	"github.com/codewithboateng/rulescan/internal/parser"
	"github.com/codewithboateng/rulescan/internal/reporting"
	"github.com/codewithboateng/rulescan/internal/rules"
	"github.com/codewithboateng/rulescan/internal/scanner"
	"github.com/codewithboateng/rulescan/internal/shared"
	"github.com/codewithboateng/rulescan/internal/storage"
)

var version = "dev"

const (
	exitOK    = scanner.ExitOK
	exitFail  = scanner.ExitFailure
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitUsage
	}
	switch args[0] {
	case "scan":
		return scanCmd(args[1:], stdout, stderr)
	case "rules":
		return rulesCmd(args[1:], stdout, stderr)
	case "history":
		return historyCmd(args[1:], stdout, stderr)
	case "report":
		return reportCmd(args[1:], stdout, stderr)
	case "diff":
		return diffCmd(args[1:], stdout, stderr)
	case "serve":
		return serveCmd(args[1:], stderr)
	case "version":
		fmt.Fprintln(stdout, "rulescan", version, "IR:", ir.Version)
		return exitOK
	case "-h", "--help", "help":
		usage(stdout)
		return exitOK
	default:
		usage(stderr)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `rulescan – structural rule checks over Go types

Usage:
  rulescan scan    [-d|--dry-run] [-v|--verbose] [--config f] [--jobs n] [--out dir] [--db path] <rules-dir> <paths...>
  rulescan rules   [--config f] [-v] <rules-dir>
  rulescan history [--config f] [--db path] [--limit n]
  rulescan report  [--config f] [--db path] [--out dir] --run <run-id|latest>
  rulescan diff    [--config f] [--db path] [--out dir] --base <run-id|report.json> --head <run-id|report.json>
  rulescan serve   [--config f] [--db path] [--addr :8080] [--rules dir]
  rulescan version
`)
}

// parseArgs parses flags that may appear before, between or after
// positionals.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// common holds the flags every subcommand shares.
type common struct {
	configPath string
	verbose    bool
	dbPath     string
}

func (c *common) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to YAML config (optional)")
	fs.BoolVar(&c.verbose, "v", false, "Debug output")
	fs.BoolVar(&c.verbose, "verbose", false, "Debug output")
	fs.StringVar(&c.dbPath, "db", "", "SQLite database path")
}

// setup loads config and installs the logger; flags win over config.
func (c *common) setup(stderr io.Writer) (shared.Config, *slog.Logger, error) {
	cfg, err := shared.LoadConfig(c.configPath)
	if err != nil {
		return cfg, nil, err
	}
	if c.dbPath != "" {
		cfg.Database.DSN = c.dbPath
	}
	level := cfg.Logging.Level
	if c.verbose {
		level = "debug"
	}
	return cfg, shared.NewLogger(stderr, cfg.Logging.Format, level), nil
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func scanCmd(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("scan", stderr)
	var cm common
	cm.bind(fs)
	var dryRun bool
	fs.BoolVar(&dryRun, "d", false, "Exit 0 even when rules fail")
	fs.BoolVar(&dryRun, "dry-run", false, "Exit 0 even when rules fail")
	jobs := fs.Int("jobs", 0, "Extraction parallelism (default from config, 1)")
	outDir := fs.String("out", "", "Write <run-id>.json and <run-id>.html here")
	color := fs.String("color", "", "auto|always|never")

	pos, err := parseArgs(fs, args)
	if err != nil {
		return exitUsage
	}
	if len(pos) < 2 {
		fmt.Fprintln(stderr, "scan: <rules-dir> and at least one path are required")
		return exitUsage
	}

	cfg, logger, err := cm.setup(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "scan:", err)
		return exitUsage
	}
	// precedence: flags > env > config > defaults
	if *jobs <= 0 {
		*jobs = cfg.Scan.Jobs
	}
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *color == "" {
		*color = cfg.Output.Color
	}
	dryRun = dryRun || cfg.Scan.DryRun

	walk := parser.DefaultWalkOptions()
	if len(cfg.Scan.Extensions) > 0 {
		walk.Suffixes = cfg.Scan.Extensions
	}
	if len(cfg.Scan.ExcludeDirs) > 0 {
		walk.ExcludeDirs = cfg.Scan.ExcludeDirs
	}

	out := console.New(stdout, console.Options{Verbose: cm.verbose, Color: *color})
	s, err := scanner.New(scanner.Options{
		RulesDir:  pos[0],
		Paths:     pos[1:],
		DryRun:    dryRun,
		Jobs:      *jobs,
		CacheSize: cfg.Scan.CacheSize,
		Walk:      walk,
		Rules:     rules.Settings{Disabled: cfg.Rules.Disabled},
		Version:   version,
	}, out, logger)
	if err != nil {
		logger.Error("scanner setup failed", "err", err)
		return exitFail
	}

	ctx, stop := signalContext()
	defer stop()
	res, err := s.Run(ctx)
	if errors.Is(err, scanner.ErrNoRules) {
		return res.ExitCode
	}
	if err != nil {
		logger.Error("scan aborted", "err", err)
		return exitFail
	}
	reporting.WriteConsole(out, &res.Run)
	if res.Run.DryRun && res.Run.Summary.Failed() {
		logger.Warn("dry run, exiting 0 despite failures",
			"failures", res.Run.Summary.Failures, "exceptions", res.Run.Summary.Exceptions)
	}

	if *outDir != "" {
		jsonPath, err := reporting.WriteJSON(res.Run.ID, *outDir, &res.Run)
		if err != nil {
			logger.Error("write json report", "err", err)
			return exitFail
		}
		htmlPath, err := reporting.WriteHTML(res.Run.ID, *outDir, &res.Run)
		if err != nil {
			logger.Error("write html report", "err", err)
			return exitFail
		}
		out.Linef(console.Plain, "  JSON: %s\n  HTML: %s", jsonPath, htmlPath)
	}
	if cfg.Database.DSN != "" {
		if err := saveRun(cfg.Database.Driver, cfg.Database.DSN, &res.Run); err != nil {
			logger.Error("persist run", "err", err, "db", cfg.Database.DSN)
			return exitFail
		}
		out.Linef(console.Plain, "  Run: %s (saved to %s)", res.Run.ID, cfg.Database.DSN)
	}
	logger.Info("scan complete", "run", res.Run.ID, "exit", res.ExitCode)
	return res.ExitCode
}

func saveRun(driver, dsn string, run *ir.Run) error {
	db, err := openDB(driver, dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveRun(run)
}

func openDB(driver, dsn string) (*storage.DB, error) {
	db, err := storage.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func rulesCmd(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("rules", stderr)
	var cm common
	cm.bind(fs)
	pos, err := parseArgs(fs, args)
	if err != nil {
		return exitUsage
	}
	if len(pos) != 1 {
		fmt.Fprintln(stderr, "rules: exactly one <rules-dir> is required")
		return exitUsage
	}
	cfg, logger, err := cm.setup(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "rules:", err)
		return exitUsage
	}

	out := console.New(stdout, console.Options{Verbose: cm.verbose, Color: cfg.Output.Color})
	reg, err := discover(pos[0], cfg, out, logger)
	if err != nil {
		logger.Error("rule discovery failed", "err", err)
		return exitFail
	}
	if reg.Count() == 0 {
		out.Line(console.Bad, "[ERROR] "+scanner.ErrNoRules.Error())
		return exitFail
	}
	var rows [][]string
	for _, e := range reg.Rules() {
		rows = append(rows, []string{e.Name, e.Kind.String(), e.Rule.Description()})
	}
	out.Block(reporting.Table(out.Renderer(), []string{"Name", "Kind", "Description"}, rows))
	return exitOK
}

// discover runs rule discovery only.
func discover(dir string, cfg shared.Config, out *console.Output, logger *slog.Logger) (*rules.Registry, error) {
	s, err := scanner.New(scanner.Options{
		RulesDir:  dir,
		CacheSize: cfg.Scan.CacheSize,
		Rules:     rules.Settings{Disabled: cfg.Rules.Disabled},
	}, out, logger)
	if err != nil {
		return nil, err
	}
	ctx, stop := signalContext()
	defer stop()
	if err := s.Discover(ctx); err != nil {
		return nil, err
	}
	return s.Registry(), nil
}

func historyCmd(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("history", stderr)
	var cm common
	cm.bind(fs)
	limit := fs.Int("limit", 20, "Number of runs to list")
	if _, err := parseArgs(fs, args); err != nil {
		return exitUsage
	}
	cfg, logger, err := cm.setup(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "history:", err)
		return exitUsage
	}

	db, err := openDB(cfg.Database.Driver, cfg.DSN())
	if err != nil {
		logger.Error("db open error", "err", err)
		return exitFail
	}
	defer db.Close()
	runs, err := db.ListRuns(*limit, 0)
	if err != nil {
		logger.Error("list runs", "err", err)
		return exitFail
	}

	out := console.New(stdout, console.Options{Color: cfg.Output.Color})
	if len(runs) == 0 {
		out.Line(console.Caution, "no runs recorded in "+cfg.DSN())
		return exitOK
	}
	var rows [][]string
	for _, r := range runs {
		status := "ok"
		if r.Failed {
			status = "failed"
		}
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			status,
			strconv.Itoa(r.Failures),
			strconv.Itoa(r.Exceptions),
			strconv.Itoa(r.Warnings),
		})
	}
	out.Block(reporting.Table(out.Renderer(),
		[]string{"Run", "Started", "Status", "Failures", "Exceptions", "Warnings"}, rows))
	return exitOK
}

func reportCmd(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("report", stderr)
	var cm common
	cm.bind(fs)
	runID := fs.String("run", "", "Run ID, or \"latest\"")
	outDir := fs.String("out", "", "Output directory")
	if _, err := parseArgs(fs, args); err != nil {
		return exitUsage
	}
	if *runID == "" {
		fmt.Fprintln(stderr, "report: --run is required")
		return exitUsage
	}
	cfg, logger, err := cm.setup(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "report:", err)
		return exitUsage
	}
	if *outDir == "" {
		*outDir = cfg.OutDir()
	}

	db, err := openDB(cfg.Database.Driver, cfg.DSN())
	if err != nil {
		logger.Error("db open error", "err", err)
		return exitFail
	}
	defer db.Close()

	var run ir.Run
	if *runID == "latest" {
		run, err = db.LoadLatestRun()
	} else {
		run, err = db.LoadRun(*runID)
	}
	if err != nil {
		logger.Error("load run error", "run", *runID, "err", err)
		return exitFail
	}

	out := console.New(stdout, console.Options{Color: cfg.Output.Color})
	reporting.WriteConsole(out, &run)
	jsonPath, err := reporting.WriteJSON(run.ID, *outDir, &run)
	if err != nil {
		logger.Error("write json report", "err", err)
		return exitFail
	}
	htmlPath, err := reporting.WriteHTML(run.ID, *outDir, &run)
	if err != nil {
		logger.Error("write html report", "err", err)
		return exitFail
	}
	out.Linef(console.Plain, "Report OK\n  Run: %s\n  JSON: %s\n  HTML: %s", run.ID, jsonPath, htmlPath)
	return exitOK
}

func diffCmd(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("diff", stderr)
	var cm common
	cm.bind(fs)
	base := fs.String("base", "", "Base run ID or JSON report path")
	head := fs.String("head", "", "Head run ID or JSON report path")
	outDir := fs.String("out", "", "Output directory")
	if _, err := parseArgs(fs, args); err != nil {
		return exitUsage
	}
	if *base == "" || *head == "" {
		fmt.Fprintln(stderr, "diff: --base and --head are required")
		return exitUsage
	}
	cfg, logger, err := cm.setup(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "diff:", err)
		return exitUsage
	}
	if *outDir == "" {
		*outDir = cfg.OutDir()
	}

	runs := runLoader{driver: cfg.Database.Driver, dsn: cfg.DSN()}
	defer runs.close()
	br, err := runs.load(*base)
	if err != nil {
		logger.Error("load base run error", "run", *base, "err", err)
		return exitFail
	}
	hr, err := runs.load(*head)
	if err != nil {
		logger.Error("load head run error", "run", *head, "err", err)
		return exitFail
	}
	path, err := reporting.WriteDiffJSON(br.ID, hr.ID, *outDir, &br, &hr)
	if err != nil {
		logger.Error("write diff", "err", err)
		return exitFail
	}
	d := reporting.CompareRuns(&br, &hr)
	fmt.Fprintf(stdout, "Diff OK\n  New: %d, Removed: %d, Changed: %d\n  %s\n",
		d.Summary.NewCount, d.Summary.RemovedCount, d.Summary.ChangedCount, path)
	return exitOK
}

// runLoader resolves a run reference: a path to a JSON report, or a run ID
// looked up in the database, opened on first use.
type runLoader struct {
	driver string
	dsn    string
	db     *storage.DB
}

func (l *runLoader) load(ref string) (ir.Run, error) {
	if strings.HasSuffix(ref, ".json") {
		run, err := reporting.ReadJSON(ref)
		if err != nil {
			return ir.Run{}, err
		}
		return *run, nil
	}
	if l.db == nil {
		db, err := openDB(l.driver, l.dsn)
		if err != nil {
			return ir.Run{}, err
		}
		l.db = db
	}
	return l.db.LoadRun(ref)
}

func (l *runLoader) close() {
	if l.db != nil {
		_ = l.db.Close()
	}
}

func serveCmd(args []string, stderr io.Writer) int {
	fs := newFlagSet("serve", stderr)
	var cm common
	cm.bind(fs)
	addr := fs.String("addr", "", "Listen address (default from config, :8080)")
	rulesDir := fs.String("rules", "", "Rules directory to expose on /api/v1/rules")
	if _, err := parseArgs(fs, args); err != nil {
		return exitUsage
	}
	cfg, logger, err := cm.setup(stderr)
	if err != nil {
		fmt.Fprintln(stderr, "serve:", err)
		return exitUsage
	}
	if *addr == "" {
		*addr = cfg.API.Addr
	}

	db, err := openDB(cfg.Database.Driver, cfg.DSN())
	if err != nil {
		logger.Error("db open error", "err", err)
		return exitFail
	}
	defer db.Close()

	srv := &api.Server{DB: db, Logger: logger, AllowedOrigins: cfg.API.AllowedOrigins}
	if *rulesDir != "" {
		reg, err := discover(*rulesDir, cfg, console.New(io.Discard, console.Options{}), logger)
		if err != nil {
			logger.Error("rule discovery failed", "err", err)
			return exitFail
		}
		srv.Rules = reg
	}

	hs := &http.Server{
		Addr:              *addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	ctx, stop := signalContext()
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hs.Shutdown(shutdown)
	}()

	logger.Info("api listening", "addr", *addr, "db", cfg.DSN())
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("api server", "err", err)
		return exitFail
	}
	return exitOK
}
