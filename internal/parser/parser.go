package parser

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// Unit is one candidate source file.
type Unit struct {
	Path string // absolute
	Root string // the source root it was found under
}

type WalkOptions struct {
	Suffixes    []string // accepted file suffixes, case-insensitive
	ExcludeDirs []string // directory names never descended into
}

var (
	DefaultSuffixes    = []string{".go", ".rule.yaml", ".rule.yml"}
	DefaultExcludeDirs = []string{".git", "vendor", "node_modules", "testdata"}
)

func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		Suffixes:    append([]string(nil), DefaultSuffixes...),
		ExcludeDirs: append([]string(nil), DefaultExcludeDirs...),
	}
}

func (o WalkOptions) accepts(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, "_test.go") {
		return false
	}
	for _, s := range o.Suffixes {
		if strings.HasSuffix(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func (o WalkOptions) excluded(dir string) bool {
	for _, x := range o.ExcludeDirs {
		if dir == x {
			return true
		}
	}
	return false
}

// Files lazily enumerates accepted files under sources. A source that is a
// file is yielded when accepted; a directory is walked recursively; a missing
// source is skipped. Traversal order is lexical per directory.
func Files(sources []string, opts WalkOptions) iter.Seq[Unit] {
	if len(opts.Suffixes) == 0 {
		opts.Suffixes = DefaultSuffixes
	}
	return func(yield func(Unit) bool) {
		for _, src := range sources {
			root, err := filepath.Abs(src)
			if err != nil {
				continue
			}
			info, err := os.Stat(root)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				if opts.accepts(info.Name()) && !yield(Unit{Path: root, Root: root}) {
					return
				}
				continue
			}
			stopped := false
			_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
				if err != nil {
					return nil
				}
				if d.IsDir() {
					if p != root && opts.excluded(d.Name()) {
						return filepath.SkipDir
					}
					return nil
				}
				if !opts.accepts(d.Name()) {
					return nil
				}
				if !yield(Unit{Path: p, Root: root}) {
					stopped = true
					return filepath.SkipAll
				}
				return nil
			})
			if stopped {
				return
			}
		}
	}
}
