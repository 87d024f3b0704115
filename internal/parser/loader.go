package parser

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/codewithboateng/rulescan/internal/ir"
)

const DefaultCacheSize = 4096

// Extractor turns one source file into a descriptor.
type Extractor interface {
	Extract(path string) (*ir.Class, error)
}

type ExtractorFunc func(path string) (*ir.Class, error)

func (f ExtractorFunc) Extract(path string) (*ir.Class, error) { return f(path) }

// Loader dispatches files to extractors by suffix and caches descriptors by
// path. One Loader serves one scan.
type Loader struct {
	cache *lru.Cache[string, *ir.Class]

	mu         sync.RWMutex
	extractors map[string]Extractor
	byName     map[string]*ir.Class
}

func NewLoader(cacheSize int) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	c, err := lru.New[string, *ir.Class](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("descriptor cache: %w", err)
	}
	l := &Loader{
		cache:      c,
		extractors: map[string]Extractor{},
		byName:     map[string]*ir.Class{},
	}
	l.Register(".go", NewGoExtractor())
	return l, nil
}

// Register routes files ending in suffix to e. Longer suffixes win.
func (l *Loader) Register(suffix string, e Extractor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.extractors[strings.ToLower(suffix)] = e
}

func (l *Loader) Suffixes() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.extractors))
	for s := range l.extractors {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (l *Loader) extractorFor(path string) (Extractor, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lower := strings.ToLower(path)
	best := ""
	for s := range l.extractors {
		if strings.HasSuffix(lower, s) && len(s) > len(best) {
			best = s
		}
	}
	e, ok := l.extractors[best]
	return e, ok && best != ""
}

// CacheKey is the BLAKE2b-256 digest of the absolute path, hex encoded.
func CacheKey(path string) string {
	sum := blake2b.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// Load returns the descriptor of the file at path. With cache set, repeated
// loads of the same path return the same *ir.Class.
func (l *Loader) Load(path string, cache bool) (*ir.Class, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	key := CacheKey(abs)
	if cache {
		if c, ok := l.cache.Get(key); ok {
			return c, nil
		}
	}
	e, ok := l.extractorFor(abs)
	if !ok {
		return nil, fmt.Errorf("%s: %w", abs, ErrUnsupportedSource)
	}
	c, err := e.Extract(abs)
	if err != nil {
		return nil, err
	}
	if cache {
		// another goroutine may have raced us here; keep the first
		if prev, ok, _ := l.cache.PeekOrAdd(key, c); ok {
			c = prev
		}
	}
	l.mu.Lock()
	l.byName[c.Name()] = c
	l.mu.Unlock()
	return c, nil
}

// Lookup returns a descriptor already loaded by name.
func (l *Loader) Lookup(fqn string) (*ir.Class, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	c, ok := l.byName[fqn]
	return c, ok
}
