package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"

	"github.com/noah-isme/gettogather-api/pkg/config"
	"github.com/noah-isme/gettogather-api/pkg/storage"
)

const (
	StorageDriverSupabase = "supabase"
	StorageDriverLocal    = "local"

	// MediaPrefix is the route under which the local driver's files are served.
	MediaPrefix = "/media"
)

// Storage uploads and removes objects and resolves their public URLs.
type Storage interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Remove(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

// NewStorage selects the driver named in configuration.
func NewStorage(backend config.BackendConfig, cfg config.StorageConfig, publicBaseURL string, client *http.Client) (Storage, error) {
	switch cfg.Driver {
	case "", StorageDriverSupabase:
		return NewObjectStorage(backend, client), nil
	case StorageDriverLocal:
		local, err := storage.NewLocalStorage(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		return NewLocalObjectStorage(local, publicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ObjectStorage talks to the hosted storage API.
type ObjectStorage struct {
	baseURL string
	apiKey  string
	token   string
	timeout time.Duration
}

// NewObjectStorage builds a client for {url}/storage/v1. The service key is preferred for writes.
func NewObjectStorage(cfg config.BackendConfig, client *http.Client) *ObjectStorage {
	token := cfg.ServiceKey
	if token == "" {
		token = cfg.AnonKey
	}
	var timeout time.Duration
	if client != nil {
		timeout = client.Timeout
	}
	return &ObjectStorage{
		baseURL: strings.TrimRight(cfg.URL, "/") + "/storage/v1",
		apiKey:  cfg.AnonKey,
		token:   token,
		timeout: timeout,
	}
}

// api returns a fresh client. Uploads set per-file headers on the client itself, so
// clients are never shared between calls.
func (s *ObjectStorage) api() *storage_go.Client {
	return storage_go.NewClient(s.baseURL, s.token, map[string]string{"apikey": s.apiKey})
}

// Upload stores data at bucket/key. An existing object is not overwritten.
func (s *ObjectStorage) Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	upsert := false
	_, err := s.run(ctx, func(c *storage_go.Client) (interface{}, error) {
		return c.UploadFile(bucket, escapeKey(key), bytes.NewReader(data), storage_go.FileOptions{
			ContentType: &contentType,
			Upsert:      &upsert,
		})
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Remove deletes bucket/key. A missing object is not an error.
func (s *ObjectStorage) Remove(ctx context.Context, bucket, key string) error {
	_, err := s.run(ctx, func(c *storage_go.Client) (interface{}, error) {
		return c.RemoveFile(bucket, []string{key})
	})
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucket, key, err)
	}
	return nil
}

// PublicURL returns the public download URL of an object in a public bucket.
func (s *ObjectStorage) PublicURL(bucket, key string) string {
	return s.api().GetPublicUrl(url.PathEscape(bucket), escapeKey(key)).SignedURL
}

// run executes call on a fresh client and returns early when ctx ends. The storage client
// takes no context, so an abandoned request finishes in the background.
func (s *ObjectStorage) run(ctx context.Context, call func(*storage_go.Client) (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	type result struct {
		value interface{}
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call(s.api())
		done <- result{v, storageError(err)}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// storageError maps the client's error body onto *APIError. The client drops the HTTP
// status, so replies without a status field count as a bad gateway.
func storageError(err error) error {
	var se *storage_go.StorageError
	if !errors.As(err, &se) {
		return err
	}
	status := se.Status
	if status == 0 {
		status = http.StatusBadGateway
	}
	return &APIError{Status: status, Message: se.Message}
}

// LocalObjectStorage writes objects to disk and serves them from MediaPrefix.
type LocalObjectStorage struct {
	store   *storage.LocalStorage
	baseURL string
}

// NewLocalObjectStorage adapts a LocalStorage to the Storage interface.
func NewLocalObjectStorage(store *storage.LocalStorage, publicBaseURL string) *LocalObjectStorage {
	return &LocalObjectStorage{store: store, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Upload writes the object to disk.
func (s *LocalObjectStorage) Upload(ctx context.Context, bucket, key string, data []byte, _ string) error {
	_, err := s.store.Put(ctx, bucket, key, data)
	return err
}

// Remove deletes the file if present.
func (s *LocalObjectStorage) Remove(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.Remove(bucket, key)
}

// PublicURL returns the URL under which the media route serves the object.
func (s *LocalObjectStorage) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s%s/%s/%s", s.baseURL, MediaPrefix, url.PathEscape(bucket), escapeKey(key))
}

// Root exposes the on-disk directory for the static media route.
func (s *LocalObjectStorage) Root() string {
	return s.store.Root()
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
