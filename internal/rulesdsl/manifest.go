// Package rulesdsl compiles declarative YAML rules whose checks are CEL
// expressions over a class descriptor.
package rulesdsl

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Suffixes of rule manifests.
var Suffixes = []string{".rule.yaml", ".rule.yml"}

type Manifest struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Supports    string  `yaml:"supports"`   // CEL, optional
	ApplyRule   bool    `yaml:"apply_rule"` // gate on @ApplyRule
	Checks      []Check `yaml:"checks"`
}

type Check struct {
	Expr    string `yaml:"expr"`
	Message string `yaml:"message"`
	Level   string `yaml:"level"` // fail|warn
}

const (
	LevelFail = "fail"
	LevelWarn = "warn"
)

func ReadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read rule manifest: %w", err)
	}
	return ParseManifest(b)
}

func ParseManifest(b []byte) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := m.validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (m *Manifest) validate() error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return errors.New("missing required field: name")
	}
	if len(m.Checks) == 0 {
		return fmt.Errorf("rule %q: no checks", m.Name)
	}
	for i := range m.Checks {
		c := &m.Checks[i]
		if strings.TrimSpace(c.Expr) == "" {
			return fmt.Errorf("rule %q: check %d: missing expr", m.Name, i+1)
		}
		switch strings.ToLower(strings.TrimSpace(c.Level)) {
		case "", LevelFail:
			c.Level = LevelFail
		case LevelWarn, "warning":
			c.Level = LevelWarn
		default:
			return fmt.Errorf("rule %q: check %d: unknown level %q", m.Name, i+1, c.Level)
		}
		if c.Message == "" {
			c.Message = "check failed: " + c.Expr
		}
	}
	return nil
}
