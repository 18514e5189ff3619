// Package notify publishes recorded attendance events to message brokers.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/okian/attendance/internal/domain/model"
)

// TypeAttendanceRecorded is the message type of every published payload.
const TypeAttendanceRecorded = "attendance.recorded"

// Message is the wire format shared by all sinks.
type Message struct {
	Type  string                `json:"type"`
	Event model.AttendanceEvent `json:"event"`
}

// Encode renders the message for e.
func Encode(e model.AttendanceEvent) ([]byte, error) { //nolint:gocritic // hugeParam: events are passed by value everywhere
	data, err := json.Marshal(Message{Type: TypeAttendanceRecorded, Event: e})
	if err != nil {
		return nil, fmt.Errorf("encode event %d: %w", e.SequenceID, err)
	}
	return data, nil
}

// Decode parses a message produced by Encode.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}
