package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/attendance/internal/domain/model"
)

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes events on a core NATS subject.
type NATSPublisher struct {
	conn    natsConn
	subject string
}

// NewNATSPublisher connects to url. The connection retries in the background.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	if url == "" || subject == "" {
		return nil, fmt.Errorf("%w: nats url and subject are required", ErrInvalidConfig)
	}
	nc, err := nats.Connect(url,
		nats.Name("attendance-kiosk"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{conn: nc, subject: subject}, nil
}

func newNATSPublisherWithConn(conn natsConn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

func (p *NATSPublisher) Name() string { return "nats" }

// Publish sends e and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, e model.AttendanceEvent) error { //nolint:gocritic // hugeParam: events are passed by value everywhere
	data, err := Encode(e)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", p.subject, err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
