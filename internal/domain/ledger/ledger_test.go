package ledger_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/okian/attendance/internal/domain/ledger"
	"github.com/okian/attendance/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeIdentities map[string]model.Identity

func (f fakeIdentities) Get(id string) (model.Identity, bool) {
	ident, ok := f[id]
	return ident, ok
}

func newFixture() (fakeIdentities, *ledger.Ledger) {
	ids := fakeIdentities{
		"alice": {ID: "alice", DisplayName: "Alice"},
		"bob":   {ID: "bob", DisplayName: "Bob"},
	}
	return ids, ledger.New(ids)
}

func utcPolicy() ledger.Policy {
	p := ledger.DefaultPolicy()
	p.Location = time.UTC
	return p
}

func matchFor(id string) model.MatchResult {
	return model.MatchResult{IdentityID: id, DisplayName: id, Confidence: 0.9, Distance: 0.1}
}

func TestRecordIfEligible(t *testing.T) {
	ctx := context.Background()
	policy := utcPolicy()
	morning := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	Convey("Given a ledger with two identities", t, func() {
		_, l := newFixture()

		Convey("When Alice is recognized for the first time", func() {
			ev, ok, err := l.RecordIfEligible(ctx, matchFor("alice"), morning, policy)

			Convey("Then an event is appended", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(ev.SequenceID, ShouldEqual, 1)
				So(ev.DisplayName, ShouldEqual, "Alice")
				So(ev.Date, ShouldEqual, "2024-03-01")
				So(ev.Time, ShouldEqual, "09:00:00")
				So(l.Count(), ShouldEqual, 1)
			})

			Convey("And she is seen again within the cooldown", func() {
				out, err := l.Record(ctx, matchFor("alice"), morning.Add(5*time.Second), policy)

				Convey("Then nothing is recorded", func() {
					So(err, ShouldBeNil)
					So(out.Recorded, ShouldBeFalse)
					So(out.Reason, ShouldEqual, ledger.ReasonCooldown)
					So(l.Count(), ShouldEqual, 1)
				})
			})

			Convey("And she is seen again later the same day", func() {
				out, err := l.Record(ctx, matchFor("alice"), morning.Add(time.Hour), policy)

				Convey("Then the daily duplicate rule suppresses it", func() {
					So(err, ShouldBeNil)
					So(out.Recorded, ShouldBeFalse)
					So(out.Reason, ShouldEqual, ledger.ReasonDuplicate)
					So(l.Count(), ShouldEqual, 1)
				})
			})

			Convey("And Bob is recognized right after", func() {
				_, ok, err := l.RecordIfEligible(ctx, matchFor("bob"), morning.Add(time.Second), policy)

				Convey("Then the cooldown is per identity", func() {
					So(err, ShouldBeNil)
					So(ok, ShouldBeTrue)
					So(l.Count(), ShouldEqual, 2)
				})
			})
		})

		Convey("When the match references an unknown identity", func() {
			_, ok, err := l.RecordIfEligible(ctx, matchFor("ghost"), morning, policy)

			Convey("Then an integrity violation is returned", func() {
				So(errors.Is(err, ledger.ErrIntegrityViolation), ShouldBeTrue)
				So(ok, ShouldBeFalse)
				So(l.Count(), ShouldEqual, 0)
			})
		})
	})
}

func TestCooldownAndDayBoundary(t *testing.T) {
	ctx := context.Background()
	policy := utcPolicy()
	lateEvening := time.Date(2024, 3, 1, 23, 59, 55, 0, time.UTC)

	Convey("Given Alice recorded seconds before midnight", t, func() {
		_, l := newFixture()
		_, ok, err := l.RecordIfEligible(ctx, matchFor("alice"), lateEvening, policy)
		So(err, ShouldBeNil)
		So(ok, ShouldBeTrue)

		Convey("When she is seen after midnight but inside the cooldown", func() {
			out, err := l.Record(ctx, matchFor("alice"), lateEvening.Add(7*time.Second), policy)

			Convey("Then the cooldown wins and nothing is recorded", func() {
				So(err, ShouldBeNil)
				So(out.Recorded, ShouldBeFalse)
				So(out.Reason, ShouldEqual, ledger.ReasonCooldown)
			})

			Convey("And once the cooldown has passed a new day event is recorded", func() {
				ev, ok, err := l.RecordIfEligible(ctx, matchFor("alice"), lateEvening.Add(11*time.Second), policy)
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(ev.Date, ShouldEqual, "2024-03-02")
				So(l.Count(), ShouldEqual, 2)
			})
		})

		Convey("When she is seen the next morning", func() {
			ev, ok, err := l.RecordIfEligible(ctx, matchFor("alice"), lateEvening.Add(9*time.Hour), policy)

			Convey("Then a second event is recorded for the new day", func() {
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(ev.Date, ShouldEqual, "2024-03-02")
				So(ev.SequenceID, ShouldEqual, 2)
				So(l.CountOn("2024-03-01"), ShouldEqual, 1)
				So(l.CountOn("2024-03-02"), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a suppressed duplicate that refreshed the cooldown", t, func() {
		_, l := newFixture()
		noon := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		_, _, _ = l.RecordIfEligible(ctx, matchFor("alice"), noon, policy)
		out, _ := l.Record(ctx, matchFor("alice"), noon.Add(20*time.Second), policy)
		So(out.Reason, ShouldEqual, ledger.ReasonDuplicate)

		Convey("Then a sighting within the cooldown of that duplicate is a cooldown", func() {
			out, _ := l.Record(ctx, matchFor("alice"), noon.Add(25*time.Second), policy)
			So(out.Reason, ShouldEqual, ledger.ReasonCooldown)
		})
	})
}

func TestDuplicatesAllowed(t *testing.T) {
	ctx := context.Background()
	policy := utcPolicy()
	policy.PreventDuplicateAttendance = false
	noon := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	Convey("Given duplicate prevention is off", t, func() {
		_, l := newFixture()
		_, _, _ = l.RecordIfEligible(ctx, matchFor("alice"), noon, policy)

		Convey("Then the cooldown still applies", func() {
			_, ok, err := l.RecordIfEligible(ctx, matchFor("alice"), noon.Add(time.Second), policy)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("Then a later sighting the same day is recorded", func() {
			_, ok, err := l.RecordIfEligible(ctx, matchFor("alice"), noon.Add(time.Minute), policy)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(l.CountOn("2024-03-01"), ShouldEqual, 2)
		})
	})
}

func TestRemoveIdentity(t *testing.T) {
	ctx := context.Background()
	policy := utcPolicy()
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	Convey("Given events for Alice and Bob across two days", t, func() {
		_, l := newFixture()
		for _, at := range []time.Time{day1, day1.Add(24 * time.Hour)} {
			_, _, _ = l.RecordIfEligible(ctx, matchFor("alice"), at, policy)
			_, _, _ = l.RecordIfEligible(ctx, matchFor("bob"), at.Add(time.Minute), policy)
		}
		So(l.Count(), ShouldEqual, 4)

		Convey("When Alice is removed", func() {
			removed := l.RemoveIdentity(ctx, "alice")

			Convey("Then only her events are gone", func() {
				So(removed, ShouldEqual, 2)
				So(l.Count(), ShouldEqual, 2)
				for ev := range l.Events(ctx, model.EventFilter{}) {
					So(ev.IdentityID, ShouldEqual, "bob")
				}
			})

			Convey("Then sequence ids are not reused", func() {
				_, _, _ = l.RecordIfEligible(ctx, matchFor("bob"), day1.Add(48*time.Hour), policy)
				snap := l.Snapshot()
				So(snap[len(snap)-1].SequenceID, ShouldEqual, 5)
			})
		})

		Convey("When an identity without events is removed", func() {
			So(l.RemoveIdentity(ctx, "carol"), ShouldEqual, 0)
			So(l.Count(), ShouldEqual, 4)
		})
	})
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	policy := utcPolicy()

	Convey("Given events recorded out of calendar order", t, func() {
		_, l := newFixture()
		l.Restore(ctx, []model.AttendanceEvent{
			{SequenceID: 1, IdentityID: "alice", DisplayName: "Alice", Date: "2024-03-02", Time: "09:00:00"},
			{SequenceID: 2, IdentityID: "bob", DisplayName: "Bob", Date: "2024-03-01", Time: "10:00:00"},
			{SequenceID: 3, IdentityID: "alice", DisplayName: "Alice", Date: "2024-03-01", Time: "08:00:00"},
			{SequenceID: 4, IdentityID: "bob", DisplayName: "Bob", Date: "2024-03-02", Time: "09:00:00"},
		})

		Convey("When all events are listed", func() {
			seqs := []uint64{}
			for ev := range l.Events(ctx, model.EventFilter{}) {
				seqs = append(seqs, ev.SequenceID)
			}

			Convey("Then they are newest first with ties by sequence", func() {
				So(seqs, ShouldResemble, []uint64{4, 1, 2, 3})
			})
		})

		Convey("When filtered by name prefix and date", func() {
			got := slices.Collect(l.Events(ctx, model.EventFilter{NamePrefix: "al", Date: "2024-03-01"}))
			So(len(got), ShouldEqual, 1)
			So(got[0].SequenceID, ShouldEqual, 3)
		})

		Convey("When iteration stops early", func() {
			n := 0
			for range l.Events(ctx, model.EventFilter{}) {
				n++
				if n == 2 {
					break
				}
			}
			So(n, ShouldEqual, 2)
		})

		Convey("Then the next event continues the restored sequence", func() {
			ev, ok, err := l.RecordIfEligible(ctx, matchFor("alice"), time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC), policy)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(ev.SequenceID, ShouldEqual, 5)
		})

		Convey("Then restored days count as already attended", func() {
			_, ok, err := l.RecordIfEligible(ctx, matchFor("alice"), time.Date(2024, 3, 2, 18, 0, 0, 0, time.UTC), policy)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a snapshot with an orphaned event", t, func() {
		_, l := newFixture()
		dropped := l.Restore(ctx, []model.AttendanceEvent{
			{SequenceID: 1, IdentityID: "alice", Date: "2024-03-01", Time: "09:00:00"},
			{SequenceID: 2, IdentityID: "ghost", Date: "2024-03-01", Time: "09:00:00"},
		})
		So(dropped, ShouldEqual, 1)
		So(l.Count(), ShouldEqual, 1)
	})
}
