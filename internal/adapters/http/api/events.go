package api

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"github.com/okian/attendance/internal/adapters/export"
	"github.com/okian/attendance/internal/domain/model"
)

// EventDependencies defines the interface for reading the attendance log.
type EventDependencies interface {
	ListEvents(ctx context.Context, filter model.EventFilter) iter.Seq[model.AttendanceEvent]
	ExportCSV(ctx context.Context, filter model.EventFilter) (string, error)
}

// EventsHandler handles event listing and export requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// parseFilter reads ?name= and ?date= (YYYY-MM-DD).
func parseFilter(r *http.Request) (model.EventFilter, error) {
	q := r.URL.Query()
	f := model.EventFilter{
		NamePrefix: strings.TrimSpace(q.Get("name")),
		Date:       strings.TrimSpace(q.Get("date")),
	}
	if f.Date != "" {
		if _, err := time.Parse(model.DateLayout, f.Date); err != nil {
			return f, fmt.Errorf("invalid date %q; must be YYYY-MM-DD", f.Date)
		}
	}
	return f, nil
}

// HandleListEvents handles GET /events requests. Newest first.
func (h *EventsHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_events"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	events := []model.AttendanceEvent{}
	for ev := range h.deps.ListEvents(r.Context(), filter) {
		events = append(events, ev)
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleExportCSV handles GET /events.csv requests.
func (h *EventsHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_csv"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	csv, err := h.deps.ExportCSV(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(csv))
}
