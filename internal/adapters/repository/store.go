// Package repository persists the identity set and attendance log as two
// opaque blobs in a pluggable backend.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/attendance/internal/domain/model"
)

// Blob keys, one per collection.
const (
	IdentitiesKey = "identities.json"
	EventsKey     = "events.json"
)

// BlobStore reads and writes whole blobs by key.
type BlobStore interface {
	// Get returns ErrNotFound when the key was never written.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Snapshot is the full persisted state.
type Snapshot struct {
	Identities []model.Identity
	Events     []model.AttendanceEvent
}

// SnapshotStore encodes snapshots into a BlobStore.
type SnapshotStore struct {
	blobs         BlobStore
	identitiesKey string
	eventsKey     string
}

// NewSnapshotStore wraps blobs.
func NewSnapshotStore(blobs BlobStore, opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		blobs:         blobs,
		identitiesKey: IdentitiesKey,
		eventsKey:     EventsKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads both collections. Missing blobs load as empty.
func (s *SnapshotStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := s.read(ctx, s.identitiesKey, &snap.Identities); err != nil {
		return Snapshot{}, err
	}
	if err := s.read(ctx, s.eventsKey, &snap.Events); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Save writes both collections, identities first. Events left pointing at
// identities that did not make it are dropped on restore.
func (s *SnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	if err := s.write(ctx, s.identitiesKey, nonNil(snap.Identities)); err != nil {
		return err
	}
	return s.write(ctx, s.eventsKey, nonNil(snap.Events))
}

func (s *SnapshotStore) read(ctx context.Context, key string, into any) error {
	data, err := s.blobs.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return nil
}

func (s *SnapshotStore) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
