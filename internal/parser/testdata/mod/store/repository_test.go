package store

type ignoredInTests struct{}
