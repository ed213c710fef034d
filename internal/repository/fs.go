package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/debemdeboas/redux-content/internal/cache"
	"github.com/debemdeboas/redux-content/internal/util"
)

// FSObjectStore keeps objects as files below a root directory. Writes go to a
// temp file that is renamed into place, and the ETag is the content hash.
// Conditional puts are only safe within a single process.
type FSObjectStore struct { // implements ObjectStore
	root  string
	locks *cache.KeyedMutex[string]
}

func NewFSObjectStore(root string) (*FSObjectStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("error creating object root %s: %w", root, err)
	}
	return &FSObjectStore{root: root, locks: cache.NewKeyedMutex[string]()}, nil
}

func (s *FSObjectStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FSObjectStore) Get(ctx context.Context, key string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &Object{Data: data, ETag: util.ContentHash(data)}, nil
}

func (s *FSObjectStore) Put(ctx context.Context, key string, data []byte, ifMatch string) (string, error) {
	unlock, err := s.locks.LockContext(ctx, key)
	if err != nil {
		return "", err
	}
	defer unlock()

	current, err := s.Get(ctx, key)
	switch {
	case errors.Is(err, ErrObjectNotFound):
		if ifMatch != "" {
			return "", fmt.Errorf("%s: %w", key, ErrPreconditionFailed)
		}
	case err != nil:
		return "", err
	case current.ETag != ifMatch:
		return "", fmt.Errorf("%s: %w", key, ErrPreconditionFailed)
	}

	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", err
	}

	return util.ContentHash(data), nil
}

func (s *FSObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
