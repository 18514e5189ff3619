package simulate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/attendance/pkg/logger"
)

const workerMultiplier = 2

// Report summarizes a run.
type Report struct {
	Registered int
	Existing   int
	Frames     int
	Matched    int
	Recorded   int
	Duplicates int
	Failed     int
	Events     int
	// TodayAttendance is the server-wide count, including real people.
	TodayAttendance int
	// Problems lists per-identity verification failures.
	Problems []string
	Duration time.Duration
}

// Fprint writes a human-readable summary.
func (r *Report) Fprint(w io.Writer) {
	fmt.Fprintf(w, "identities: %d registered, %d already present\n", r.Registered, r.Existing)
	fmt.Fprintf(w, "frames:     %d sent, %d matched, %d recorded, %d retried, %d failed\n",
		r.Frames, r.Matched, r.Recorded, r.Duplicates, r.Failed)
	fmt.Fprintf(w, "events:     %d in the log for this run's identities, %d present today overall\n", r.Events, r.TodayAttendance)
	for _, p := range r.Problems {
		fmt.Fprintf(w, "problem:    %s\n", p)
	}
	fmt.Fprintf(w, "duration:   %s\n", r.Duration.Round(time.Millisecond))
}

// Run registers the synthetic identities, replays their frames concurrently
// and verifies that every identity was recorded at most once per day.
func Run(ctx context.Context, cfg Config, log logger.Logger) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	report := &Report{}
	c := newClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting attendance simulation",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("identities", cfg.Identities),
		logger.Int("frames", cfg.Frames),
		logger.Int("workers", cfg.Workers),
	)

	if err := c.health(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnhealthy, err)
	}

	profiles := generateProfiles(cfg)
	if err := registerProfiles(ctx, c, profiles, report); err != nil {
		return report, err
	}

	frames := generateFrames(cfg, profiles)
	submitFrames(ctx, c, cfg.Workers, frames, report, log)

	if err := verify(ctx, c, cfg.Prefix, profiles, report); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}
	report.Duration = time.Since(start)
	log.Info(ctx, "simulation completed",
		logger.Int("recorded", report.Recorded),
		logger.Int("events", report.Events),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

// registerProfiles enrolls each profile. A name that is already registered
// from an earlier run is reused.
func registerProfiles(ctx context.Context, c *client, profiles []Profile, report *Report) error {
	for _, p := range profiles {
		status, err := c.register(ctx, p)
		switch {
		case err == nil:
			report.Registered++
		case status == http.StatusConflict:
			report.Existing++
		default:
			return fmt.Errorf("register %s: %w", p.Name, err)
		}
	}
	return nil
}

// submitFrames posts frames from a pool of workers.
func submitFrames(ctx context.Context, c *client, workers int, frames []Frame, report *Report, log logger.Logger) {
	var matched, recorded, duplicates, failed atomic.Int64

	frameCh := make(chan Frame, workers*workerMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range frameCh {
				resp, err := c.attend(ctx, f)
				switch {
				case err != nil:
					failed.Add(1)
					log.Debug(ctx, "frame failed", logger.String("request_id", f.RequestID), logger.Error(err))
				case resp.Duplicate:
					duplicates.Add(1)
				default:
					if resp.Matched {
						matched.Add(1)
					}
					if resp.Recorded {
						recorded.Add(1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(frameCh)
		for _, f := range frames {
			select {
			case <-ctx.Done():
				return
			case frameCh <- f:
			}
		}
	}()
	wg.Wait()

	report.Frames = len(frames)
	report.Matched = int(matched.Load())
	report.Recorded = int(recorded.Load())
	report.Duplicates = int(duplicates.Load())
	report.Failed = int(failed.Load())
}

// verify checks the log: every profile has an event, and none has two on
// the same day.
func verify(ctx context.Context, c *client, prefix string, profiles []Profile, report *Report) error {
	events, err := c.events(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	perDay := make(map[string]map[string]int, len(profiles))
	for _, p := range profiles {
		perDay[p.Name] = map[string]int{}
	}
	for _, e := range events {
		days, ok := perDay[e.DisplayName]
		if !ok {
			continue
		}
		days[e.Date]++
		report.Events++
	}

	for _, p := range profiles {
		days := perDay[p.Name]
		if len(days) == 0 {
			report.Problems = append(report.Problems, p.Name+": never recorded")
			continue
		}
		for date, n := range days {
			if n > 1 {
				report.Problems = append(report.Problems, fmt.Sprintf("%s: %d events on %s", p.Name, n, date))
			}
		}
	}

	stats, err := c.stats(ctx)
	if err != nil {
		return fmt.Errorf("read stats: %w", err)
	}
	report.TodayAttendance = stats.TodayAttendance
	if report.Failed > 0 {
		report.Problems = append(report.Problems, fmt.Sprintf("%d frames failed", report.Failed))
	}
	if len(report.Problems) > 0 {
		return fmt.Errorf("%w: %d problems", ErrVerification, len(report.Problems))
	}
	return nil
}
