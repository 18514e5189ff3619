package notify

import "errors"

// Sentinel kinds for notification errors.
var (
	ErrInvalidConfig = errors.New("invalid notifier configuration")
	ErrClosed        = errors.New("notifier closed")
)
