package repository

import "errors"

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("not found")
