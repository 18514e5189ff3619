// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Layouts used for the attendance day and time of day. Both are ISO-8601 and
// are what the CSV export writes.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// Descriptor is a face embedding produced by an external model.
type Descriptor []float32

// Clone returns a copy that does not share the backing array.
func (d Descriptor) Clone() Descriptor {
	if d == nil {
		return nil
	}
	out := make(Descriptor, len(d))
	copy(out, d)
	return out
}

// Identity is a registered person with one or more reference descriptors.
type Identity struct {
	ID           string       `json:"id"`
	DisplayName  string       `json:"display_name"`
	Embeddings   []Descriptor `json:"embeddings"`
	RegisteredAt time.Time    `json:"registered_at"`
}

// AttendanceEvent records that an identity was seen on a given day.
type AttendanceEvent struct {
	SequenceID  uint64    `json:"sequence_id"`
	IdentityID  string    `json:"identity_id"`
	DisplayName string    `json:"display_name"`
	Date        string    `json:"date"` // DateLayout, in the ledger's location
	Time        string    `json:"time"` // TimeLayout, in the ledger's location
	RecordedAt  time.Time `json:"recorded_at"`
}

// MatchResult is the best candidate found for a query descriptor.
type MatchResult struct {
	IdentityID  string  `json:"identity_id"`
	DisplayName string  `json:"name"`
	Confidence  float64 `json:"confidence"`
	Distance    float64 `json:"distance"`
}

// EventFilter narrows event listings. Zero values match everything.
type EventFilter struct {
	NamePrefix string // case-insensitive
	Date       string // DateLayout
}

// Matches reports whether e passes the filter.
func (f EventFilter) Matches(e AttendanceEvent) bool {
	if f.Date != "" && e.Date != f.Date {
		return false
	}
	if f.NamePrefix != "" && !strings.HasPrefix(NormalizeName(e.DisplayName), NormalizeName(f.NamePrefix)) {
		return false
	}
	return true
}

// CalendarDay formats t as an attendance day in loc.
func CalendarDay(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DateLayout)
}

// TimeOfDay formats t as a time of day in loc.
func TimeOfDay(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(TimeLayout)
}

// NormalizeName is the key used for case-insensitive name uniqueness. It
// applies Unicode case folding, so "STRASSE" and "Straße" collide.
func NormalizeName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
