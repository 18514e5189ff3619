package ledger

import "github.com/okian/attendance/internal/domain/dedupe"

// Option configures a Ledger.
type Option func(*Ledger)

// WithDayIndex replaces the (identity, date) index. It must be unbounded.
func WithDayIndex(d dedupe.Deduper) Option {
	return func(l *Ledger) {
		if d != nil {
			l.days = d
		}
	}
}
