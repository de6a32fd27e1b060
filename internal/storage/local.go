package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage keeps objects on the local filesystem under a single base
// directory. It is meant for development and single-node deployments; the
// server exposes the base directory over HTTP at the configured BaseURL.
type LocalStorage struct {
	basePath string
	baseURL  string
	logger   *slog.Logger
}

// NewLocalStorage creates the base directory if needed and returns a
// filesystem-backed Storage.
func NewLocalStorage(cfg LocalConfig, logger *slog.Logger) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local storage: base path is required")
	}

	basePath, err := filepath.Abs(cfg.BasePath)
	if err != nil {
		return nil, fmt.Errorf("local storage: resolve base path: %w", err)
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("local storage: create base directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:   logger.With(slog.String("storage", ProviderLocal)),
	}, nil
}

// Put writes the object to a temporary file in the destination directory and
// renames it into place, so readers never observe a partially written file.
func (s *LocalStorage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}

	path, err := s.resolve(key)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}

	if !opts.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return &StorageError{Op: "put", Key: key, Err: ErrKeyExists}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("create directory: %w", err)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("create temp file: %w", err)}
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	reader := data
	if opts.MaxSize > 0 {
		// Read one byte past the limit so an exactly-at-limit object passes.
		reader = io.LimitReader(data, opts.MaxSize+1)
	}

	written, err := io.Copy(tmp, reader)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("write object: %w", err)}
	}
	if opts.MaxSize > 0 && written > opts.MaxSize {
		return &StorageError{Op: "put", Key: key, Err: ErrTooLarge}
	}

	if err := tmp.Close(); err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("close temp file: %w", err)}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("rename into place: %w", err)}
	}

	s.logger.Debug("stored object",
		slog.String("key", key),
		slog.Int64("size", written),
	)
	return nil
}

// Get opens the object for reading. The caller must close the returned reader.
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: err}
	}

	path, err := s.resolve(key)
	if err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: err}
	}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: ErrNotFound}
		}
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: err}
	}
	if stat.IsDir() {
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: ErrNotFound}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: err}
	}

	info := ObjectInfo{
		Key:          key,
		Size:         stat.Size(),
		ContentType:  ContentTypeForFilename(key),
		LastModified: stat.ModTime(),
	}
	return f, info, nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	path, err := s.resolve(key)
	if err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	s.logger.Debug("deleted object", slog.String("key", key))
	return nil
}

// URL returns the public URL for a key. Local storage has no notion of
// presigning, so the expiry is ignored and every object is reachable while
// the file server route is mounted.
func (s *LocalStorage) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", &StorageError{Op: "url", Key: key, Err: err}
	}
	return s.baseURL + "/" + key, nil
}

// Exists reports whether a regular file is stored at the key.
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, &StorageError{Op: "exists", Key: key, Err: err}
	}

	path, err := s.resolve(key)
	if err != nil {
		return false, &StorageError{Op: "exists", Key: key, Err: err}
	}

	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &StorageError{Op: "exists", Key: key, Err: err}
	}
	return !stat.IsDir(), nil
}

// resolve maps a key to an absolute path under basePath, rejecting empty
// keys and any traversal attempt that would escape the base directory.
func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	cleaned := filepath.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}
	if filepath.IsAbs(cleaned) {
		return "", ErrInvalidKey
	}

	path := filepath.Join(s.basePath, cleaned)
	if path != s.basePath && !strings.HasPrefix(path, s.basePath+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return path, nil
}
