package store

import "io"

// Finder looks documents up.
type Finder interface {
	io.Closer
	Base

	// @Required
	Find(id string) (doc []byte, ok bool)
	count() int
}
