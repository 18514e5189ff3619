package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/attendance/internal/domain/model"
)

func sampleSnapshot() Snapshot {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return Snapshot{
		Identities: []model.Identity{{
			ID:           "a1",
			DisplayName:  "Alice",
			Embeddings:   []model.Descriptor{{0.1, 0.2}, {0.3, 0.4}},
			RegisteredAt: at,
		}},
		Events: []model.AttendanceEvent{{
			SequenceID:  1,
			IdentityID:  "a1",
			DisplayName: "Alice",
			Date:        "2024-03-01",
			Time:        "09:00:00",
			RecordedAt:  at,
		}},
	}
}

func checkRoundTrip(t *testing.T, blobs BlobStore) {
	t.Helper()
	ctx := context.Background()
	store := NewSnapshotStore(blobs)

	empty, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if len(empty.Identities) != 0 || len(empty.Events) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", empty)
	}

	want := sampleSnapshot()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Identities) != 1 || got.Identities[0].DisplayName != "Alice" {
		t.Errorf("identities not restored: %+v", got.Identities)
	}
	if len(got.Identities[0].Embeddings) != 2 || got.Identities[0].Embeddings[1][1] != 0.4 {
		t.Errorf("embeddings not restored: %+v", got.Identities[0].Embeddings)
	}
	if !got.Identities[0].RegisteredAt.Equal(want.Identities[0].RegisteredAt) {
		t.Errorf("registered at changed: %v", got.Identities[0].RegisteredAt)
	}
	if len(got.Events) != 1 || got.Events[0].SequenceID != 1 || got.Events[0].Time != "09:00:00" {
		t.Errorf("events not restored: %+v", got.Events)
	}

	if err := store.Save(ctx, Snapshot{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	cleared, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load cleared: %v", err)
	}
	if len(cleared.Identities) != 0 || len(cleared.Events) != 0 {
		t.Errorf("expected cleared snapshot, got %+v", cleared)
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	checkRoundTrip(t, NewMemoryStore())
}

func TestMemoryStore_GetMissing(t *testing.T) {
	_, err := NewMemoryStore().Get(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CopiesData(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	data := []byte("abc")
	if err := s.Put(ctx, "k", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'x'
	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("expected stored copy, got %q", got)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatal(err)
	}
	checkRoundTrip(t, s)
}

func TestFileStore_KeyPrefix(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	store := NewSnapshotStore(s, WithKeyPrefix("kiosk-1"))
	if err := store.Save(ctx, sampleSnapshot()); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{IdentitiesKey, EventsKey} {
		if _, err := os.Stat(filepath.Join(dir, "kiosk-1", name)); err != nil {
			t.Errorf("expected %s under prefix: %v", name, err)
		}
	}
}

func TestFileStore_EmptyPath(t *testing.T) {
	if _, err := NewFileStore(""); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestSnapshotStore_Corrupt(t *testing.T) {
	ctx := context.Background()
	blobs := NewMemoryStore()
	_ = blobs.Put(ctx, IdentitiesKey, []byte("{not json"))
	_, err := NewSnapshotStore(blobs).Load(ctx)
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

type failingBlobs struct{ *MemoryStore }

func (f *failingBlobs) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestSnapshotStore_SaveError(t *testing.T) {
	store := NewSnapshotStore(&failingBlobs{MemoryStore: NewMemoryStore()})
	err := store.Save(context.Background(), sampleSnapshot())
	if err == nil {
		t.Fatal("expected save error")
	}
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("ATTENDANCE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ATTENDANCE_TEST_POSTGRES_DSN not set")
	}
	s, err := NewPostgresStore(context.Background(), dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	checkRoundTrip(t, &prefixed{BlobStore: s, prefix: t.Name()})
}

func TestMinioStore_RoundTrip(t *testing.T) {
	endpoint := os.Getenv("ATTENDANCE_TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("ATTENDANCE_TEST_MINIO_ENDPOINT not set")
	}
	s, err := NewMinioStore(MinioConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("ATTENDANCE_TEST_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("ATTENDANCE_TEST_MINIO_SECRET_KEY"),
		Bucket:    "attendance-test",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureBucket(context.Background()); err != nil {
		t.Fatal(err)
	}
	checkRoundTrip(t, &prefixed{BlobStore: s, prefix: t.Name() + time.Now().Format("150405.000")})
}

func TestMinioStore_Config(t *testing.T) {
	if _, err := NewMinioStore(MinioConfig{Bucket: "b"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

// prefixed isolates test runs that share a real backend.
type prefixed struct {
	BlobStore
	prefix string
}

func (p *prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.BlobStore.Get(ctx, p.prefix+"/"+key)
}

func (p *prefixed) Put(ctx context.Context, key string, data []byte) error {
	return p.BlobStore.Put(ctx, p.prefix+"/"+key, data)
}
