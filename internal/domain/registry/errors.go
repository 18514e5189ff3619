package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is returned when the display name is already taken, ignoring case.
	ErrDuplicateName = errors.New("display name already registered")
	// ErrEmptyCapture is returned when registration carries no descriptors.
	ErrEmptyCapture = errors.New("no face descriptors captured")
	// ErrInsufficientCaptures is returned when fewer than the required descriptors were captured.
	ErrInsufficientCaptures = fmt.Errorf("%w: not enough captures", ErrEmptyCapture)
	// ErrInvalidName is returned for a blank display name.
	ErrInvalidName = errors.New("display name must not be empty")
	// ErrInvalidDescriptor is returned for a descriptor of the wrong length.
	ErrInvalidDescriptor = errors.New("invalid face descriptor")
	// ErrNotFound is returned when the identity does not exist.
	ErrNotFound = errors.New("identity not found")
)
