package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrObjectExists is returned when Put targets a key that is already stored.
var ErrObjectExists = errors.New("object already exists")

// LocalStorage keeps objects on disk as <root>/<bucket>/<key>.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates root if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		root = "./uploads"
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", abs, err)
	}
	return &LocalStorage{root: abs}, nil
}

// Put stores data under bucket/key and returns the object reference "bucket/key".
// The object becomes visible in one step, so the media route never serves a
// partial file. Keys are never overwritten.
func (s *LocalStorage) Put(ctx context.Context, bucket, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := s.objectPath(bucket, key)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("stage %s/%s: %w", bucket, key, err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		return "", fmt.Errorf("write %s/%s: %w", bucket, key, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close() //nolint:errcheck
		return "", fmt.Errorf("chmod %s/%s: %w", bucket, key, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("flush %s/%s: %w", bucket, key, err)
	}

	// link fails when target exists, unlike rename
	if err := os.Link(tmp.Name(), target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s/%s: %w", bucket, key, ErrObjectExists)
		}
		return "", fmt.Errorf("publish %s/%s: %w", bucket, key, err)
	}
	return bucket + "/" + key, nil
}

// Remove deletes bucket/key. Missing objects are ignored.
func (s *LocalStorage) Remove(bucket, key string) error {
	path, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Root is the absolute directory served by the static media route.
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) objectPath(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", errors.New("bucket and key are required")
	}
	if strings.ContainsAny(bucket, `/\`) {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	path := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	rel, err := filepath.Rel(filepath.Join(s.root, bucket), path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(key) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return path, nil
}
