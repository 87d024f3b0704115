package storage

import "time"

// RunRow is a lightweight listing row for /runs.
type RunRow struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	RulesDir   string    `json:"rules_dir,omitempty"`
	Version    string    `json:"version,omitempty"`
	Failed     bool      `json:"failed"`
	Failures   int       `json:"failures"`
	Exceptions int       `json:"exceptions"`
	Warnings   int       `json:"warnings"`
}
