package store

import "errors"

// ErrNotFound is returned when a key or record does not exist.
var ErrNotFound = errors.New("store: not found")
