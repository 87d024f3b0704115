package rules

import "strings"

// Settings tune which discovered rules get registered.
type Settings struct {
	// Disabled rule names are dropped at registration (case-insensitive).
	Disabled []string
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s Settings) disabledSet() map[string]bool {
	out := make(map[string]bool, len(s.Disabled))
	for _, n := range s.Disabled {
		if n = normalizeName(n); n != "" {
			out[n] = true
		}
	}
	return out
}
