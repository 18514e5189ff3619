package service

import (
	"time"

	workerpool "github.com/okian/attendance/internal/adapters/mq/worker"
	"github.com/okian/attendance/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithThreshold sets the minimum match confidence.
func WithThreshold(threshold float64) Option {
	return func(s *Service) {
		if threshold >= 0 && threshold <= 1 {
			s.threshold = threshold
		}
	}
}

// WithCooldown sets the per-identity quiet period.
func WithCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.policy.Cooldown = d
		}
	}
}

// WithPreventDuplicates toggles the once-per-day rule.
func WithPreventDuplicates(prevent bool) Option {
	return func(s *Service) {
		s.policy.PreventDuplicateAttendance = prevent
	}
}

// WithLocation sets the time zone that defines a calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.policy.Location = loc
		}
	}
}

// WithMinCaptures sets how many descriptors a registration needs.
func WithMinCaptures(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minCaptures = n
		}
	}
}

// WithDescriptorLength fixes the descriptor length. Zero disables the check.
func WithDescriptorLength(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.descriptorLength = n
		}
	}
}

// WithSnapshotStore persists state after every mutation.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithPublishers sets the sinks notified of recorded events.
func WithPublishers(publishers ...workerpool.Publisher) Option {
	return func(s *Service) {
		s.publishers = append(s.publishers, publishers...)
	}
}

// WithQueueSize sets the maximum number of pending notifications.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithWorkerCount sets the number of publishing goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithDedupeSize bounds the request id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}
