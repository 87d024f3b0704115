package parser

import (
	"os"
	"path/filepath"
	"testing"
)

// The extractor must never panic, whatever the file holds.
func FuzzExtractNoPanic(f *testing.F) {
	seeds := []string{
		"type A struct{}\n",
		"type I interface{ M() }\nvar _ I = (*A)(nil)\n",
		"type G[T any] struct{ v T }\nfunc (g *G[T]) Get() T { return g.v }\n",
		"garbage-but-should-not-panic\n",
	}
	for _, s := range seeds {
		f.Add([]byte(s))
	}
	g := NewGoExtractor()
	f.Fuzz(func(t *testing.T, data []byte) {
		p := filepath.Join(t.TempDir(), "fuzz.go")
		content := append([]byte("package fz\n\n"), data...)
		if err := os.WriteFile(p, content, 0o644); err != nil {
			t.Skipf("write failed: %v", err)
		}
		_, _ = g.Extract(p)
	})
}
