// Package repomanager opens the key and blob stores selected by the server
// configuration.
package repomanager

import (
	"context"
	"errors"
	"fmt"

	"github.com/secure-doc/imagey-cloud/internal/logging"
	"github.com/secure-doc/imagey-cloud/internal/server/config"
	"github.com/secure-doc/imagey-cloud/internal/server/repositories/blobs"
	"github.com/secure-doc/imagey-cloud/internal/server/repositories/keys"
)

// RepositoryManager owns the opened stores for the lifetime of the process.
type RepositoryManager struct {
	keys   keys.Store
	blobs  blobs.Store
	logger logging.Logger
}

// seams for tests
var (
	newS3Store = func(ctx context.Context, s blobs.S3Settings) (blobs.Store, error) {
		return blobs.NewS3Store(ctx, s)
	}
	newRedisStore = func(addr string) keys.Store {
		return keys.NewRedisStore(keys.NewRedisClient(addr))
	}
)

// New opens the configured backends and checks that they answer. A failure
// here is fatal for the server.
func New(ctx context.Context, cfg *config.Config, l logging.Logger) (*RepositoryManager, error) {
	logger := l.With("module", "repomanager")

	ks, err := openKeys(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("key store %s: %w", cfg.StorageBackend, err)
	}
	if err := ks.Ping(ctx); err != nil {
		_ = ks.Close()
		return nil, fmt.Errorf("key store %s: %w", cfg.StorageBackend, err)
	}

	bs, err := openBlobs(ctx, cfg)
	if err != nil {
		_ = ks.Close()
		return nil, fmt.Errorf("blob store %s: %w", cfg.BlobBackend, err)
	}

	logger.Info(ctx, "storage ready", "keys", cfg.StorageBackend, "blobs", cfg.BlobBackend)
	return &RepositoryManager{keys: ks, blobs: bs, logger: logger}, nil
}

func openKeys(ctx context.Context, cfg *config.Config) (keys.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageFilesystem:
		return keys.NewFilesystemStore(cfg.RootPath)
	case config.StoragePostgres:
		db, err := OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return keys.NewPostgresStore(db), nil
	case config.StorageRedis:
		return newRedisStore(cfg.RedisAddr), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func openBlobs(ctx context.Context, cfg *config.Config) (blobs.Store, error) {
	switch cfg.BlobBackend {
	case config.BlobFilesystem:
		return blobs.NewFilesystemStore(cfg.RootPath)
	case config.BlobS3:
		return newS3Store(ctx, blobs.S3Settings{
			User:         cfg.S3RootUser,
			Password:     cfg.S3RootPassword,
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			BaseEndpoint: cfg.S3BaseEndpoint,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

func (m *RepositoryManager) Keys() keys.Store {
	return m.keys
}

func (m *RepositoryManager) Blobs() blobs.Store {
	return m.blobs
}

// Ping checks both stores.
func (m *RepositoryManager) Ping(ctx context.Context) error {
	return errors.Join(m.keys.Ping(ctx), m.blobs.Ping(ctx))
}

// Close releases the key store connection. Blob stores hold nothing that
// needs closing.
func (m *RepositoryManager) Close() error {
	return m.keys.Close()
}
