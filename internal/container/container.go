// Package container resolves rule instances by fully-qualified type name.
//
// Rule packages self-register constructors into a process-wide catalog from
// init; each scan builds its own Container from that catalog so singletons
// never outlive the scan.
package container

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var ErrNotProvided = errors.New("nothing provided for name")

// Constructor builds the value for a name; c resolves its dependencies.
type Constructor func(c *Container) (any, error)

// Resolver builds values for every name under a prefix.
type Resolver func(c *Container, name string) (any, error)

var (
	catalogMu sync.RWMutex
	catalog   = map[string]Constructor{}
)

// Register adds ctor to the process-wide catalog. A later registration of
// the same name replaces the earlier one.
func Register(name string, ctor Constructor) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalog[name] = ctor
}

// RegisterType registers ctor under TypeName[T].
func RegisterType[T any](ctor func(c *Container) (T, error)) {
	Register(TypeName[T](), func(c *Container) (any, error) {
		return ctor(c)
	})
}

// Catalog lists the registered names, sorted.
func Catalog() []string {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	out := make([]string, 0, len(catalog))
	for n := range catalog {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// TypeName is `<import path>.<Name>` of T, looking through pointers.
func TypeName[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

type Container struct {
	mu        sync.Mutex
	ctors     map[string]Constructor
	values    map[string]any
	resolvers map[string]Resolver
}

// New seeds a container with the current catalog.
func New() *Container {
	c := &Container{
		ctors:     map[string]Constructor{},
		values:    map[string]any{},
		resolvers: map[string]Resolver{},
	}
	catalogMu.RLock()
	for n, ctor := range catalog {
		c.ctors[n] = ctor
	}
	catalogMu.RUnlock()
	return c
}

func (c *Container) Provide(name string, ctor Constructor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctors[name] = ctor
	delete(c.values, name)
}

// Set stores a ready value under name.
func (c *Container) Set(name string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = v
}

func (c *Container) AddResolver(prefix string, r Resolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolvers[prefix] = r
}

func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[name]; ok {
		return true
	}
	if _, ok := c.ctors[name]; ok {
		return true
	}
	_, ok := c.resolverFor(name)
	return ok
}

// Get returns the singleton for name, building it on first use.
// Constructors run without the lock held so they may call Get themselves.
func (c *Container) Get(name string) (any, error) {
	c.mu.Lock()
	if v, ok := c.values[name]; ok {
		c.mu.Unlock()
		return v, nil
	}
	ctor, hasCtor := c.ctors[name]
	res, hasRes := c.resolverFor(name)
	c.mu.Unlock()

	var (
		v   any
		err error
	)
	switch {
	case hasCtor:
		v, err = ctor(c)
	case hasRes:
		v, err = res(c, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotProvided, name)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.values[name]; ok {
		return existing, nil
	}
	c.values[name] = v
	return v, nil
}

// resolverFor picks the longest matching prefix. Callers hold c.mu.
func (c *Container) resolverFor(name string) (Resolver, bool) {
	best := ""
	for p := range c.resolvers {
		if strings.HasPrefix(name, p) && len(p) > len(best) {
			best = p
		}
	}
	if best == "" {
		return nil, false
	}
	return c.resolvers[best], true
}

// Resolve fetches name and asserts it to T.
func Resolve[T any](c *Container, name string) (T, error) {
	var zero T
	v, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s resolved to %T, want %s", name, v, reflect.TypeOf((*T)(nil)).Elem())
	}
	return t, nil
}

// ResolveType fetches the value registered under TypeName[T].
func ResolveType[T any](c *Container) (T, error) {
	return Resolve[T](c, TypeName[T]())
}

// SetType stores v under TypeName[T].
func SetType[T any](c *Container, v T) {
	c.Set(TypeName[T](), v)
}
