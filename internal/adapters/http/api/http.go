// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"time"

	service "github.com/okian/attendance/internal/app"
	"github.com/okian/attendance/internal/domain/model"
	"github.com/okian/attendance/pkg/logger"
)

const defaultMaxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RegisterIdentity(ctx context.Context, displayName string, descriptors []model.Descriptor) (model.Identity, error)
	DeleteIdentity(ctx context.Context, id string) error
	ListIdentities(ctx context.Context) []model.Identity

	Recognize(ctx context.Context, descriptor model.Descriptor) (model.MatchResult, bool)
	MarkAttendance(ctx context.Context, descriptor model.Descriptor) (service.Mark, error)

	ListEvents(ctx context.Context, filter model.EventFilter) iter.Seq[model.AttendanceEvent]
	ExportCSV(ctx context.Context, filter model.EventFilter) (string, error)
	Stats(ctx context.Context) service.Stats

	// Request id idempotency for retried kiosk posts.
	SeenAndRecord(ctx context.Context, requestID string) bool
	Unrecord(ctx context.Context, requestID string)
}

// Server wires HTTP routes for the attendance API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	identitiesHandler *IdentitiesHandler
	attendanceHandler *AttendanceHandler
	eventsHandler     *EventsHandler

	feed         http.Handler
	maxBodyBytes int64
	logger       logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithFeed mounts a live event feed at /ws.
func WithFeed(feed http.Handler) Option {
	return func(s *Server) {
		s.feed = feed
	}
}

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithLogger sets the logger used for unexpected handler errors.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.identitiesHandler = NewIdentitiesHandler(deps, s.logger)
	s.attendanceHandler = NewAttendanceHandler(deps, s.logger)
	s.eventsHandler = NewEventsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	limit := func(h http.HandlerFunc) http.HandlerFunc { return MaxBytesMiddleware(h, s.maxBodyBytes) }

	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/identities", MetricsMiddleware(limit(s.identitiesHandler.HandleIdentities), "identities"))
	mux.HandleFunc("/identities/", MetricsMiddleware(s.identitiesHandler.HandleDeleteIdentity, "identity"))
	mux.HandleFunc("/recognize", MetricsMiddleware(limit(s.attendanceHandler.HandleRecognize), "recognize"))
	mux.HandleFunc("/attendance", MetricsMiddleware(limit(s.attendanceHandler.HandleMarkAttendance), "attendance"))
	mux.HandleFunc("/events", MetricsMiddleware(s.eventsHandler.HandleListEvents, "events"))
	mux.HandleFunc("/events.csv", MetricsMiddleware(s.eventsHandler.HandleExportCSV, "events_csv"))
	if s.feed != nil {
		// Not wrapped: the upgrade needs the raw writer.
		mux.Handle("/ws", s.feed)
	}
}

// identityResponse is an identity without its descriptors.
type identityResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Captures     int       `json:"captures"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toIdentityResponse(id model.Identity) identityResponse { //nolint:gocritic // hugeParam: identities are passed by value everywhere
	return identityResponse{
		ID:           id.ID,
		Name:         id.DisplayName,
		Captures:     len(id.Embeddings),
		RegisteredAt: id.RegisteredAt,
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError picks the status from the error kind. Server-side
// failures are logged.
func writeDomainError(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error(ctx, "request failed", logger.String("code", code), logger.Error(err))
	}
	writeError(w, status, code, err)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return err
	}
	return nil
}

func toDescriptors(in [][]float32) []model.Descriptor {
	out := make([]model.Descriptor, len(in))
	for i, d := range in {
		out[i] = model.Descriptor(d)
	}
	return out
}
