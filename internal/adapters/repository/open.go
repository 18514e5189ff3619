package repository

import (
	"context"
	"fmt"

	"github.com/okian/attendance/internal/config"
)

// Open builds the snapshot store selected by cfg.StoreBackend. The returned
// close func releases backend connections and is never nil.
func Open(ctx context.Context, cfg *config.Config) (*SnapshotStore, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case config.StoreMemory, "":
		return NewSnapshotStore(NewMemoryStore()), noop, nil
	case config.StoreFile:
		fs, err := NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, noop, err
		}
		return NewSnapshotStore(fs), noop, nil
	case config.StoreMinio:
		ms, err := NewMinioStore(MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, noop, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return nil, noop, err
		}
		return NewSnapshotStore(ms), noop, nil
	case config.StorePostgres:
		ps, err := NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, noop, err
		}
		return NewSnapshotStore(ps), ps.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, cfg.StoreBackend)
	}
}
