package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDSN    = "./rulescan.db"
	DefaultOutDir = "./reports"
)

type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "sqlite" (default)
		DSN    string `yaml:"dsn"`    // empty: scan does not persist
	} `yaml:"database"`

	Scan struct {
		Extensions  []string `yaml:"extensions"`   // empty: .go, .rule.yaml, .rule.yml
		ExcludeDirs []string `yaml:"exclude_dirs"` // empty: .git, vendor, node_modules, testdata
		Jobs        int      `yaml:"jobs"`
		CacheSize   int      `yaml:"cache_size"`
		DryRun      bool     `yaml:"dry_run"`
	} `yaml:"scan"`

	Rules struct {
		Disabled []string `yaml:"disabled"`
	} `yaml:"rules"`

	Reporting struct {
		OutDir string `yaml:"out_dir"` // empty: scan writes no report files
	} `yaml:"reporting"`

	Output struct {
		Color string `yaml:"color"` // "auto"|"always"|"never"
	} `yaml:"output"`

	Logging struct {
		Format string `yaml:"format"` // "json"|"text"
		Level  string `yaml:"level"`  // "info"|"debug"|"warn"|"error"
	} `yaml:"logging"`

	API struct {
		Addr           string   `yaml:"addr"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"api"`
}

func DefaultConfig() Config {
	var c Config
	c.Database.Driver = "sqlite"
	c.Scan.Jobs = 1
	c.Scan.CacheSize = 4096
	c.Output.Color = "auto"
	c.Logging.Format = "text"
	c.Logging.Level = "warn"
	c.API.Addr = ":8080"
	c.API.AllowedOrigins = []string{"*"}
	return c
}

// LoadConfig layers defaults, the YAML file at path (if any), a .env file in
// the working directory and RULESCAN_* environment variables, in that order.
// Variables already set in the environment win over .env entries.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return c, fmt.Errorf("load .env: %w", err)
	}
	if err := applyEnv(&c); err != nil {
		return c, err
	}
	return c, nil
}

// Env overrides (simple, explicit)
func applyEnv(c *Config) error {
	if v := os.Getenv("RULESCAN_DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("RULESCAN_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("RULESCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("RULESCAN_OUT_DIR"); v != "" {
		c.Reporting.OutDir = v
	}
	if v := os.Getenv("RULESCAN_COLOR"); v != "" {
		c.Output.Color = strings.ToLower(v)
	}
	if v := os.Getenv("RULESCAN_DRY_RUN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RULESCAN_DRY_RUN: %w", err)
		}
		c.Scan.DryRun = b
	}
	if v := os.Getenv("RULESCAN_JOBS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RULESCAN_JOBS: %w", err)
		}
		c.Scan.Jobs = n
	}
	return nil
}

// DSN is the configured database path, or DefaultDSN.
func (c Config) DSN() string {
	if c.Database.DSN != "" {
		return c.Database.DSN
	}
	return DefaultDSN
}

// OutDir is the configured report directory, or DefaultOutDir.
func (c Config) OutDir() string {
	if c.Reporting.OutDir != "" {
		return c.Reporting.OutDir
	}
	return DefaultOutDir
}
