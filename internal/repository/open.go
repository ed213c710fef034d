package repository

import (
	"context"
	"fmt"

	"github.com/debemdeboas/redux-content/internal/config"
	"github.com/debemdeboas/redux-content/internal/db"
	"github.com/debemdeboas/redux-content/internal/util/compression"
)

// Open builds the version store selected by cfg.Backend. For the fs backend
// cfg.Path is the root directory of the page logs.
func Open(ctx context.Context, cfg config.StorageConfig) (Repository, error) {
	compressor, err := compression.ForName(cfg.Compression)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryRepository(), nil

	case config.BackendSQLite:
		database := db.NewSQLite(cfg.Path)
		if err := database.InitDB(); err != nil {
			return nil, fmt.Errorf("error opening sqlite database %s: %w", cfg.Path, err)
		}
		return NewDBRepository(database, compressor), nil

	case config.BackendPostgres:
		database := db.NewPostgres(cfg.DSN)
		if err := database.InitDB(); err != nil {
			return nil, fmt.Errorf("error opening postgres database: %w", err)
		}
		return NewDBRepository(database, compressor), nil

	case config.BackendFS:
		store, err := NewFSObjectStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return NewLogRepository(store, "", compressor), nil

	case config.BackendS3:
		store, err := NewS3ObjectStore(ctx, S3Options{
			Bucket:          cfg.S3.Bucket,
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return NewLogRepository(store, cfg.S3.Prefix, compressor), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
