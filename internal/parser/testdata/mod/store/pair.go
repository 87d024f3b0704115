package store

type (
	left  struct{}
	right struct{}
)
