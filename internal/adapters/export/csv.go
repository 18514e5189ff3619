// Package export renders attendance events as the kiosk's CSV log.
package export

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"github.com/okian/attendance/internal/domain/model"
)

// Header is the first line of every export.
const Header = "Name,Date,Time"

// Filename is the suggested download name.
const Filename = "attendance_log.csv"

// ContentType is the media type served for exports.
const ContentType = "text/csv; charset=utf-8"

// Row is one parsed line of an export.
type Row struct {
	Name string
	Date string
	Time string
}

// CSV renders events in iteration order. Every field is quoted.
func CSV(events iter.Seq[model.AttendanceEvent]) string {
	var b strings.Builder
	_ = WriteCSV(&b, events)
	return b.String()
}

// WriteCSV streams events to w in iteration order.
func WriteCSV(w io.Writer, events iter.Seq[model.AttendanceEvent]) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for ev := range events {
		line := quote(ev.DisplayName) + "," + quote(ev.Date) + "," + quote(ev.Time) + "\n"
		if _, err := bw.WriteString(line); err != nil {
			return fmt.Errorf("write row %d: %w", ev.SequenceID, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// quote wraps s in double quotes, doubling any inside.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ParseCSV reads an export back into rows.
func ParseCSV(text string) ([]Row, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = 3
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCSV, err)
	}
	if len(records) == 0 || !slices.Equal(records[0], strings.Split(Header, ",")) {
		return nil, fmt.Errorf("%w: missing %q header", ErrInvalidCSV, Header)
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, Row{Name: rec[0], Date: rec[1], Time: rec[2]})
	}
	return rows, nil
}
