package store

import (
	"context"
	"io"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

// Repository keeps documents in memory.
//
// @ApplyRule("repository-rules")
type Repository struct {
	sync.Mutex
	*base

	// @Required
	Name  string
	items map[string][]byte // cached documents
	codec yaml.Node
}

var _ io.Closer = (*Repository)(nil)
var _ Finder = Repository{}

// Load reads a document.
func (r *Repository) Load(ctx context.Context, id string) ([]byte, error) {
	return r.items[id], nil
}

func (r *Repository) Close() error { return nil }

func (r Repository) reset(a, b int) {}

func helper() {
	type local struct{}
	_ = local{}
}
