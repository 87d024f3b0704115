package parser

import (
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/mod/modfile"
)

type module struct {
	root string
	path string
}

// modules finds the nearest go.mod above a directory. Lookups are cached
// per directory and safe for concurrent extraction.
type modules struct {
	mu    sync.Mutex
	byDir map[string]*module // nil value: no module above dir
}

func newModules() *modules {
	return &modules{byDir: map[string]*module{}}
}

func (m *modules) find(dir string) *module {
	m.mu.Lock()
	defer m.mu.Unlock()

	var visited []string
	var found *module
	for d := dir; ; {
		if mod, ok := m.byDir[d]; ok {
			found = mod
			break
		}
		visited = append(visited, d)
		if data, err := os.ReadFile(filepath.Join(d, "go.mod")); err == nil {
			if p := modfile.ModulePath(data); p != "" {
				found = &module{root: d, path: p}
				break
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	for _, d := range visited {
		m.byDir[d] = found
	}
	return found
}

// importPath is the import path of the package in dir, or "" outside any
// module.
func (m *modules) importPath(dir string) string {
	mod := m.find(dir)
	if mod == nil {
		return ""
	}
	rel, err := filepath.Rel(mod.root, dir)
	if err != nil || rel == "." {
		return mod.path
	}
	return mod.path + "/" + filepath.ToSlash(rel)
}
