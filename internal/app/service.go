// Package service owns the identity registry and attendance ledger and is
// the single place where either is read or changed.
package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/okian/attendance/internal/adapters/export"
	eventqueue "github.com/okian/attendance/internal/adapters/mq/queue"
	workerpool "github.com/okian/attendance/internal/adapters/mq/worker"
	"github.com/okian/attendance/internal/adapters/repository"
	"github.com/okian/attendance/internal/domain/dedupe"
	"github.com/okian/attendance/internal/domain/ledger"
	"github.com/okian/attendance/internal/domain/matcher"
	"github.com/okian/attendance/internal/domain/model"
	"github.com/okian/attendance/internal/domain/registry"
	"github.com/okian/attendance/pkg/logger"
	"github.com/okian/attendance/pkg/metrics"
)

// Default service configuration constants.
const (
	DefaultThreshold        = 0.6
	defaultMinCaptures      = 1
	defaultDescriptorLength = 128
	defaultQueueSize        = 1024
	defaultDedupeSize       = 10000
	stopTimeout             = 10 * time.Second
)

// SnapshotStore persists the full state.
type SnapshotStore interface {
	Load(ctx context.Context) (repository.Snapshot, error)
	Save(ctx context.Context, snap repository.Snapshot) error
}

// Stats are the kiosk dashboard counters.
type Stats struct {
	Identities      int  `json:"identities"`
	TodayAttendance int  `json:"today_attendance"`
	TotalRecords    int  `json:"total_records"`
	Started         bool `json:"started"`
}

// Mark is the result of one kiosk frame.
type Mark struct {
	Match    model.MatchResult
	Event    model.AttendanceEvent
	Matched  bool
	Recorded bool
}

// Service implements the attendance operations. All state changes happen
// under mu.
type Service struct {
	mu sync.Mutex

	// Core components
	registry *registry.Registry
	ledger   *ledger.Ledger
	requests dedupe.Deduper
	store    SnapshotStore

	// Notifications
	publishers []workerpool.Publisher
	queue      eventqueue.Queue
	pool       *workerpool.Pool

	// Configuration
	threshold        float64
	policy           ledger.Policy
	minCaptures      int
	descriptorLength int
	queueSize        int
	workerCount      int
	dedupeSize       int
	clock            func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service. Start must be called before mutations.
func New(opts ...Option) *Service {
	s := &Service{
		threshold:        DefaultThreshold,
		policy:           ledger.DefaultPolicy(),
		minCaptures:      defaultMinCaptures,
		descriptorLength: defaultDescriptorLength,
		queueSize:        defaultQueueSize,
		workerCount:      runtime.NumCPU(),
		dedupeSize:       defaultDedupeSize,
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.registry = registry.New(
		registry.WithMinCaptures(s.minCaptures),
		registry.WithDescriptorLength(s.descriptorLength),
	)
	s.ledger = ledger.New(s.registry)
	s.requests = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start restores the persisted snapshot and starts the notification workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting attendance service...")

	if s.store != nil {
		snap, err := s.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		if skipped := s.registry.Restore(snap.Identities); skipped > 0 {
			s.logger.Warn(ctx, "skipped invalid identities in snapshot", logger.Int("skipped", skipped))
		}
		if dropped := s.ledger.Restore(ctx, snap.Events); dropped > 0 {
			s.logger.Warn(ctx, "dropped orphaned events in snapshot", logger.Int("dropped", dropped))
		}
	}
	s.updateGauges()

	if len(s.publishers) > 0 {
		s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
		s.pool = workerpool.NewPool(s.workerCount, s.queue, s.publishers,
			workerpool.WithLogger(s.logger.Named("worker")),
		)
		s.pool.Start(context.WithoutCancel(ctx))
	}

	s.started = true
	s.logger.Info(ctx, "attendance service started",
		logger.Int("identities", s.registry.Count()),
		logger.Int("events", s.ledger.Count()),
		logger.Float64("threshold", s.threshold),
		logger.Duration("cooldown", s.policy.Cooldown),
		logger.Bool("prevent_duplicates", s.policy.PreventDuplicateAttendance),
		logger.Int("publishers", len(s.publishers)),
	)
	return nil
}

// Stop drains pending notifications and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool := s.pool
	s.pool, s.queue = nil, nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.logger.Info(ctx, "stopping attendance service...")
	if pool != nil {
		if err := pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "notification drain incomplete", logger.Error(err))
		}
	}
	s.logger.Info(ctx, "attendance service stopped")
}

// RegisterIdentity adds a person with the captured descriptors.
func (s *Service) RegisterIdentity(ctx context.Context, displayName string, descriptors []model.Descriptor) (model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return model.Identity{}, ErrNotStarted
	}
	id, err := s.registry.Register(ctx, displayName, descriptors, s.clock())
	if err != nil {
		s.logger.Debug(ctx, "registration rejected", logger.String("name", displayName), logger.Error(err))
		return model.Identity{}, err
	}
	s.logger.Info(ctx, "identity registered",
		logger.String("identity_id", id.ID),
		logger.String("name", id.DisplayName),
		logger.Int("captures", len(id.Embeddings)),
	)
	s.persist(ctx)
	return cloneIdentity(id), nil
}

// DeleteIdentity removes a person and every event that references them.
func (s *Service) DeleteIdentity(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	removed, err := s.registry.Delete(ctx, id)
	if err != nil {
		return err
	}
	events := s.ledger.RemoveIdentity(ctx, id)
	s.logger.Info(ctx, "identity deleted",
		logger.String("identity_id", id),
		logger.String("name", removed.DisplayName),
		logger.Int("events_removed", events),
	)
	s.persist(ctx)
	return nil
}

// Recognize finds the best registered match for descriptor.
func (s *Service) Recognize(_ context.Context, descriptor model.Descriptor) (model.MatchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recognize(descriptor)
}

func (s *Service) recognize(descriptor model.Descriptor) (model.MatchResult, bool) {
	match, ok := matcher.Match(descriptor, s.registry.Candidates(), s.threshold)
	metrics.RecordRecognition(ok, match.Confidence)
	return match, ok
}

// RecordAttendance records match at now if the ledger policy allows it.
func (s *Service) RecordAttendance(ctx context.Context, match model.MatchResult, now time.Time) (model.AttendanceEvent, bool, error) {
	s.mu.Lock()
	ev, recorded, q, err := s.record(ctx, match, now)
	s.mu.Unlock()

	if recorded {
		s.notify(ctx, q, ev)
	}
	return ev, recorded, err
}

// MarkAttendance is the per-frame call: recognize, then record at the
// service clock's current time.
func (s *Service) MarkAttendance(ctx context.Context, descriptor model.Descriptor) (Mark, error) {
	if len(descriptor) == 0 {
		return Mark{}, ErrNoFaceDetected
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return Mark{}, ErrNotStarted
	}
	match, ok := s.recognize(descriptor)
	if !ok {
		s.mu.Unlock()
		return Mark{}, nil
	}
	ev, recorded, q, err := s.record(ctx, match, s.clock())
	s.mu.Unlock()

	if recorded {
		s.notify(ctx, q, ev)
	}
	return Mark{Match: match, Event: ev, Matched: true, Recorded: recorded}, err
}

// record runs under mu and returns the queue to notify on.
func (s *Service) record(ctx context.Context, match model.MatchResult, now time.Time) (model.AttendanceEvent, bool, eventqueue.Queue, error) {
	if !s.started {
		return model.AttendanceEvent{}, false, nil, ErrNotStarted
	}
	out, err := s.ledger.Record(ctx, match, now, s.policy)
	if err != nil {
		if errors.Is(err, ledger.ErrIntegrityViolation) {
			metrics.RecordIntegrityViolation()
			s.logger.Error(ctx, "attendance for unknown identity",
				logger.String("identity_id", match.IdentityID),
				logger.Error(err),
			)
		}
		return model.AttendanceEvent{}, false, nil, err
	}
	if !out.Recorded {
		metrics.RecordSuppressed(out.Reason)
		s.logger.Debug(ctx, "attendance suppressed",
			logger.String("identity_id", match.IdentityID),
			logger.String("reason", out.Reason),
		)
		return model.AttendanceEvent{}, false, nil, nil
	}

	metrics.RecordAttendance()
	s.logger.Info(ctx, "attendance recorded",
		logger.String("name", out.Event.DisplayName),
		logger.String("date", out.Event.Date),
		logger.String("time", out.Event.Time),
		logger.Float64("confidence", match.Confidence),
	)
	s.persist(ctx)
	return out.Event, true, s.queue, nil
}

// notify enqueues ev without blocking. Runs outside mu.
func (s *Service) notify(ctx context.Context, q eventqueue.Queue, ev model.AttendanceEvent) { //nolint:gocritic // hugeParam: events are passed by value everywhere
	if q == nil {
		return
	}
	if err := q.Enqueue(context.WithoutCancel(ctx), ev); err != nil {
		s.logger.Warn(ctx, "notification dropped",
			logger.Uint64("sequence_id", ev.SequenceID),
			logger.Error(err),
		)
	}
}

// persist writes the snapshot and refreshes gauges. Runs under mu. A failed
// write is logged; memory stays authoritative and the next mutation retries.
func (s *Service) persist(ctx context.Context) {
	s.updateGauges()
	if s.store == nil {
		return
	}
	snap := repository.Snapshot{
		Identities: s.registry.List(),
		Events:     s.ledger.Snapshot(),
	}
	if err := s.store.Save(ctx, snap); err != nil {
		metrics.RecordSnapshotWrite(metrics.ResultError)
		s.logger.Error(ctx, "snapshot write failed", logger.Error(err))
		return
	}
	metrics.RecordSnapshotWrite(metrics.ResultOK)
}

func (s *Service) updateGauges() {
	metrics.UpdateIdentities(s.registry.Count())
	metrics.UpdateAttendanceEvents(s.ledger.Count())
}

// ListEvents returns matching events newest first. The sequence is a copy
// and can be consumed without holding any lock.
func (s *Service) ListEvents(ctx context.Context, filter model.EventFilter) iter.Seq[model.AttendanceEvent] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Events(ctx, filter)
}

// ListIdentities returns identities in registration order.
func (s *Service) ListIdentities(_ context.Context) []model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.registry.List()
	for i := range list {
		list[i] = cloneIdentity(list[i])
	}
	return list
}

// ExportCSV renders the filtered events, newest first.
func (s *Service) ExportCSV(ctx context.Context, filter model.EventFilter) (string, error) {
	return export.CSV(s.ListEvents(ctx, filter)), nil
}

// Stats returns the dashboard counters.
func (s *Service) Stats(_ context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := model.CalendarDay(s.clock(), s.policy.Location)
	return Stats{
		Identities:      s.registry.Count(),
		TodayAttendance: s.ledger.CountOn(today),
		TotalRecords:    s.ledger.Count(),
		Started:         s.started,
	}
}

// SeenAndRecord reports whether a client request id was already handled,
// recording it if not.
func (s *Service) SeenAndRecord(ctx context.Context, requestID string) bool {
	return s.requests.SeenAndRecord(ctx, requestID)
}

// Unrecord forgets a request id so the request can be retried.
func (s *Service) Unrecord(ctx context.Context, requestID string) {
	s.requests.Unrecord(ctx, requestID)
}

func cloneIdentity(id model.Identity) model.Identity {
	id.Embeddings = slices.Clone(id.Embeddings)
	for i, d := range id.Embeddings {
		id.Embeddings[i] = d.Clone()
	}
	return id
}
