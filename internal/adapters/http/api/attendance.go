package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	service "github.com/okian/attendance/internal/app"
	"github.com/okian/attendance/internal/domain/model"
	"github.com/okian/attendance/pkg/logger"
)

// AttendanceDependencies defines the interface for the kiosk frame calls.
type AttendanceDependencies interface {
	Recognize(ctx context.Context, descriptor model.Descriptor) (model.MatchResult, bool)
	MarkAttendance(ctx context.Context, descriptor model.Descriptor) (service.Mark, error)
	SeenAndRecord(ctx context.Context, requestID string) bool
	Unrecord(ctx context.Context, requestID string)
}

// AttendanceHandler handles recognition and attendance requests.
type AttendanceHandler struct {
	deps   AttendanceDependencies
	logger logger.Logger
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(deps AttendanceDependencies, log logger.Logger) *AttendanceHandler {
	return &AttendanceHandler{deps: deps, logger: log}
}

// descriptorRequest carries one live descriptor. An empty descriptor means
// the camera found no face.
type descriptorRequest struct {
	Descriptor []float32 `json:"descriptor"`
	RequestID  string    `json:"request_id,omitempty"`
}

type recognizeResponse struct {
	Matched    bool    `json:"matched"`
	IdentityID string  `json:"identity_id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

type attendanceResponse struct {
	Matched   bool                   `json:"matched"`
	Recorded  bool                   `json:"recorded"`
	Duplicate bool                   `json:"duplicate,omitempty"`
	Match     *model.MatchResult     `json:"match,omitempty"`
	Event     *model.AttendanceEvent `json:"event,omitempty"`
}

func (h *AttendanceHandler) decode(w http.ResponseWriter, r *http.Request, op string) (descriptorRequest, bool) {
	var req descriptorRequest
	if err := decodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDomainError(r.Context(), h.logger, w, err)
			return req, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return req, false
	}
	if len(req.Descriptor) == 0 {
		writeDomainError(r.Context(), h.logger, w, Wrap(op, service.ErrNoFaceDetected))
		return req, false
	}
	return req, true
}

// HandleRecognize handles POST /recognize requests. It never records.
func (h *AttendanceHandler) HandleRecognize(w http.ResponseWriter, r *http.Request) {
	const op = "api.recognize"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, ok := h.decode(w, r, op)
	if !ok {
		return
	}
	match, matched := h.deps.Recognize(r.Context(), model.Descriptor(req.Descriptor))
	if !matched {
		writeJSON(w, http.StatusOK, recognizeResponse{})
		return
	}
	writeJSON(w, http.StatusOK, recognizeResponse{
		Matched:    true,
		IdentityID: match.IdentityID,
		Name:       match.DisplayName,
		Confidence: match.Confidence,
	})
}

// HandleMarkAttendance handles POST /attendance, the per-frame kiosk call.
func (h *AttendanceHandler) HandleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	const op = "api.mark_attendance"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	req, ok := h.decode(w, r, op)
	if !ok {
		return
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID != "" && h.deps.SeenAndRecord(r.Context(), requestID) {
		writeJSON(w, http.StatusOK, attendanceResponse{Duplicate: true})
		return
	}

	mark, err := h.deps.MarkAttendance(r.Context(), model.Descriptor(req.Descriptor))
	if err != nil {
		if requestID != "" {
			h.deps.Unrecord(r.Context(), requestID)
		}
		writeDomainError(r.Context(), h.logger, w, Wrap(op, err))
		return
	}

	resp := attendanceResponse{Matched: mark.Matched, Recorded: mark.Recorded}
	if mark.Matched {
		resp.Match = &mark.Match
	}
	if mark.Recorded {
		resp.Event = &mark.Event
	}
	writeJSON(w, http.StatusOK, resp)
}
