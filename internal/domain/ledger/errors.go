package ledger

import "errors"

// ErrIntegrityViolation is returned when an event would reference an identity that is not registered.
var ErrIntegrityViolation = errors.New("attendance references unknown identity")
