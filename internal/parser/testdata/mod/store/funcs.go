package store

type ID string

func NewID() ID { return "x" }
