// Package ledger records attendance events, at most one per identity per
// calendar day, with a per-identity cooldown between recognitions.
package ledger

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/okian/attendance/internal/domain/dedupe"
	"github.com/okian/attendance/internal/domain/model"
)

// DefaultCooldown is the quiet period after an identity was acted on.
const DefaultCooldown = 10 * time.Second

// Suppression reasons reported in Outcome.
const (
	ReasonNone      = ""
	ReasonCooldown  = "cooldown"
	ReasonDuplicate = "duplicate"
)

// Policy controls which recognitions become events.
type Policy struct {
	PreventDuplicateAttendance bool
	Cooldown                   time.Duration
	Location                   *time.Location
}

// DefaultPolicy returns the kiosk defaults.
func DefaultPolicy() Policy {
	return Policy{
		PreventDuplicateAttendance: true,
		Cooldown:                   DefaultCooldown,
		Location:                   time.Local,
	}
}

// IdentityLookup resolves registered identities.
type IdentityLookup interface {
	Get(id string) (model.Identity, bool)
}

// Outcome describes what a recording attempt did.
type Outcome struct {
	Event    model.AttendanceEvent
	Recorded bool
	Reason   string
}

// Ledger is the append-only attendance log. It is not safe for concurrent
// use; the service serializes access.
type Ledger struct {
	identities IdentityLookup
	days       dedupe.Deduper
	lastSeen   map[string]time.Time
	events     []model.AttendanceEvent
	seq        uint64
}

// New creates an empty ledger validating against identities.
func New(identities IdentityLookup, opts ...Option) *Ledger {
	l := &Ledger{
		identities: identities,
		days:       dedupe.NewInMemoryDeduper(),
		lastSeen:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func dayKey(identityID, date string) string {
	return identityID + "|" + date
}

// RecordIfEligible appends an event for match unless the cooldown or the
// daily duplicate rule suppresses it.
func (l *Ledger) RecordIfEligible(ctx context.Context, match model.MatchResult, now time.Time, policy Policy) (model.AttendanceEvent, bool, error) {
	out, err := l.Record(ctx, match, now, policy)
	if err != nil {
		return model.AttendanceEvent{}, false, err
	}
	return out.Event, out.Recorded, nil
}

// Record is RecordIfEligible with the suppression reason exposed.
//
// The cooldown is checked first and, when it passes, the identity's last
// seen time moves to now even if the day already has an event.
func (l *Ledger) Record(ctx context.Context, match model.MatchResult, now time.Time, policy Policy) (Outcome, error) {
	ident, ok := l.identities.Get(match.IdentityID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %q", ErrIntegrityViolation, match.IdentityID)
	}

	if last, seen := l.lastSeen[ident.ID]; seen && now.Sub(last) < policy.Cooldown {
		return Outcome{Reason: ReasonCooldown}, nil
	}
	l.lastSeen[ident.ID] = now

	date := model.CalendarDay(now, policy.Location)
	key := dayKey(ident.ID, date)
	if policy.PreventDuplicateAttendance {
		if l.days.SeenAndRecord(ctx, key) {
			return Outcome{Reason: ReasonDuplicate}, nil
		}
	} else {
		l.days.SeenAndRecord(ctx, key)
	}

	l.seq++
	ev := model.AttendanceEvent{
		SequenceID:  l.seq,
		IdentityID:  ident.ID,
		DisplayName: ident.DisplayName,
		Date:        date,
		Time:        model.TimeOfDay(now, policy.Location),
		RecordedAt:  now,
	}
	l.events = append(l.events, ev)
	return Outcome{Event: ev, Recorded: true}, nil
}

// RemoveIdentity drops every event, day key and cooldown entry of the
// identity and returns how many events were removed.
func (l *Ledger) RemoveIdentity(ctx context.Context, identityID string) int {
	kept := l.events[:0]
	removed := 0
	for _, ev := range l.events {
		if ev.IdentityID == identityID {
			l.days.Unrecord(ctx, dayKey(ev.IdentityID, ev.Date))
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	clear(l.events[len(kept):])
	l.events = kept
	delete(l.lastSeen, identityID)
	return removed
}

// Events returns the matching events, newest first. The result is taken
// at call time and does not observe later changes.
func (l *Ledger) Events(_ context.Context, filter model.EventFilter) iter.Seq[model.AttendanceEvent] {
	matched := make([]model.AttendanceEvent, 0, len(l.events))
	for _, ev := range l.events {
		if filter.Matches(ev) {
			matched = append(matched, ev)
		}
	}
	slices.SortFunc(matched, newestFirst)
	return slices.Values(matched)
}

func newestFirst(a, b model.AttendanceEvent) int {
	if c := cmp.Compare(b.Date, a.Date); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Time, a.Time); c != 0 {
		return c
	}
	return cmp.Compare(b.SequenceID, a.SequenceID)
}

// Snapshot returns a copy of the log in append order.
func (l *Ledger) Snapshot() []model.AttendanceEvent {
	return slices.Clone(l.events)
}

// Count returns the number of events.
func (l *Ledger) Count() int {
	return len(l.events)
}

// CountOn returns the number of events on date.
func (l *Ledger) CountOn(date string) int {
	n := 0
	for _, ev := range l.events {
		if ev.Date == date {
			n++
		}
	}
	return n
}

// Restore replaces the log with persisted events. Events whose identity is
// unknown are dropped and counted. Cooldown state starts empty.
func (l *Ledger) Restore(ctx context.Context, events []model.AttendanceEvent) (dropped int) {
	for _, ev := range l.events {
		l.days.Unrecord(ctx, dayKey(ev.IdentityID, ev.Date))
	}
	l.events = make([]model.AttendanceEvent, 0, len(events))
	l.lastSeen = make(map[string]time.Time)
	l.seq = 0
	for _, ev := range events {
		if _, ok := l.identities.Get(ev.IdentityID); !ok {
			dropped++
			continue
		}
		l.days.SeenAndRecord(ctx, dayKey(ev.IdentityID, ev.Date))
		l.events = append(l.events, ev)
		l.seq = max(l.seq, ev.SequenceID)
	}
	return dropped
}
