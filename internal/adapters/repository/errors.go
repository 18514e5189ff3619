package repository

import "errors"

// Sentinel kinds for snapshot storage errors.
var (
	ErrNotFound      = errors.New("snapshot blob not found")
	ErrCorrupt       = errors.New("snapshot blob is corrupt")
	ErrInvalidConfig = errors.New("invalid store configuration")
)
