package demo

import "io"

// Store keeps named values.
//
// @ApplyRule("required-fields")
type Store struct {
	values map[string]string
	// @Required
	Name *string
}

var _ io.Closer = (*Store)(nil)

func (s *Store) Close() error { return nil }
