package api

import (
	"errors"
	"net/http"

	service "github.com/okian/attendance/internal/app"
	"github.com/okian/attendance/internal/domain/ledger"
	"github.com/okian/attendance/internal/domain/registry"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrInternal   = errors.New("internal error")
)

// Error attaches an operation name and a sentinel kind to an error while
// keeping both reachable through errors.Is.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind with no cause.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind returns err tagged with kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Wrap prefixes err with op, keeping its own kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// statusFor maps domain errors to an HTTP status and an error code.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, registry.ErrDuplicateName):
		return http.StatusConflict, "duplicate_name"
	case errors.Is(err, registry.ErrInsufficientCaptures):
		return http.StatusBadRequest, "insufficient_captures"
	case errors.Is(err, registry.ErrEmptyCapture):
		return http.StatusBadRequest, "empty_capture"
	case errors.Is(err, registry.ErrInvalidName):
		return http.StatusBadRequest, "invalid_name"
	case errors.Is(err, registry.ErrInvalidDescriptor):
		return http.StatusUnprocessableEntity, "invalid_descriptor"
	case errors.Is(err, service.ErrNoFaceDetected):
		return http.StatusUnprocessableEntity, "no_face_detected"
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_started"
	case errors.Is(err, ledger.ErrIntegrityViolation):
		return http.StatusInternalServerError, "integrity_violation"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
