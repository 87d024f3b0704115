package store

type Broken struct {
