package service

import "errors"

// Sentinel kinds for service errors.
var (
	// ErrNoFaceDetected is returned when a frame produced no descriptor.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrNotStarted is returned by mutations before Start or after Stop.
	ErrNotStarted = errors.New("service not started")
)
