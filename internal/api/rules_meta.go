package api

import (
	"errors"
	"net/http"

	"github.com/codewithboateng/rulescan/internal/rules"
)

// RuleSource lists the rules a server was started with.
type RuleSource interface {
	Rules() []rules.Entry
	Rule(name string) (rules.Rule, error)
}

type ruleMeta struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if s.Rules == nil {
		s.err(w, http.StatusNotFound, "no rules directory configured")
		return
	}
	out := []ruleMeta{}
	for _, e := range s.Rules.Rules() {
		out = append(out, ruleMeta{Name: e.Name, Kind: e.Kind.String(), Description: e.Rule.Description()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

// handleRule answers 404 with the registry's suggestions for unknown names.
func (s *Server) handleRule(w http.ResponseWriter, r *http.Request) {
	if s.Rules == nil {
		s.err(w, http.StatusNotFound, "no rules directory configured")
		return
	}
	name := r.PathValue("name")
	rule, err := s.Rules.Rule(name)
	if errors.Is(err, rules.ErrRuleNotFound) {
		s.err(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.err(w, http.StatusInternalServerError, err.Error())
		return
	}
	kind, err := rules.KindOf(rule)
	if err != nil {
		s.err(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ruleMeta{Name: name, Kind: kind.String(), Description: rule.Description()})
}
