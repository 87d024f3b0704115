package ir

import "time"

// Run is the serializable record of one scan.
type Run struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`
	RulesDir  string        `json:"rules_dir"`
	Paths     []string      `json:"paths,omitempty"`
	DryRun    bool          `json:"dry_run,omitempty"`
	Version   string        `json:"version,omitempty"`

	Summary  Summary   `json:"summary"`
	Outcomes []Outcome `json:"outcomes,omitempty"`
}

type Summary struct {
	RegisteredRules  int `json:"registered_rules"`
	InspectedFiles   int `json:"inspected_files"`
	InspectedClasses int `json:"inspected_classes"`
	AppliedRules     int `json:"applied_rules"`
	Passes           int `json:"passes"`
	Failures         int `json:"failures"`
	Exceptions       int `json:"exceptions"`
	Warnings         int `json:"warnings"`
}

// Failed reports whether the run should end with a failing status.
func (s Summary) Failed() bool { return s.Failures > 0 || s.Exceptions > 0 }

type OutcomeKind string

const (
	OutcomePass      OutcomeKind = "pass"
	OutcomeFail      OutcomeKind = "fail"
	OutcomeWarn      OutcomeKind = "warn"
	OutcomeException OutcomeKind = "exception"
)

type Outcome struct {
	Class   string      `json:"class"`
	Rule    string      `json:"rule"`
	Kind    OutcomeKind `json:"kind"`
	Message string      `json:"message,omitempty"`
	Line    int         `json:"line,omitempty"`
}

// Filter returns outcomes of the given kind in record order.
func (r *Run) Filter(kind OutcomeKind) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			out = append(out, o)
		}
	}
	return out
}
