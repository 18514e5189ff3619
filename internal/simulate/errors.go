package simulate

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrUnhealthy     = errors.New("service is not healthy")
	ErrRequest       = errors.New("request failed")
	ErrVerification  = errors.New("attendance verification failed")
)
