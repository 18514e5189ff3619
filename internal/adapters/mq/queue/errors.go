package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrClosed = errors.New("notification queue closed")
	ErrFull   = errors.New("notification queue full")
)
