package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gettogather-api/pkg/config"
	"github.com/noah-isme/gettogather-api/pkg/storage"
)

func TestObjectStorageUpload(t *testing.T) {
	var gotPath, gotAuth, gotKey, gotType, gotUpsert string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("apikey")
		gotType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Key":"event-images/e1-1.png"}`))
	}))
	defer srv.Close()

	store := NewObjectStorage(config.BackendConfig{URL: srv.URL, AnonKey: "anon", ServiceKey: "service"}, srv.Client())
	err := store.Upload(context.Background(), "event-images", "e1-1.png", []byte("img"), "image/png")
	require.NoError(t, err)

	assert.Equal(t, "/storage/v1/object/event-images/e1-1.png", gotPath)
	assert.Equal(t, "Bearer service", gotAuth)
	assert.Equal(t, "anon", gotKey)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, "false", gotUpsert)
	assert.Equal(t, "img", string(gotBody))
}

func TestObjectStorageUploadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`))
	}))
	defer srv.Close()

	store := NewObjectStorage(config.BackendConfig{URL: srv.URL, AnonKey: "anon"}, srv.Client())
	err := store.Upload(context.Background(), "event-images", "e1-1.png", []byte("img"), "")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "The resource already exists", apiErr.Message)
	assert.False(t, IsAuthRejection(err))
}

func TestObjectStorageUploadHonoursCancellation(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewObjectStorage(config.BackendConfig{URL: srv.URL, AnonKey: "anon"}, srv.Client())
	err := store.Upload(ctx, "event-images", "e1-1.png", []byte("img"), "image/png")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestObjectStoragePublicURL(t *testing.T) {
	store := NewObjectStorage(config.BackendConfig{URL: "https://project.supabase.co/", AnonKey: "anon"}, nil)
	assert.Equal(t, "https://project.supabase.co/storage/v1/object/public/event-images/e1%20x-1.png", store.PublicURL("event-images", "e1 x-1.png"))
}

func TestObjectStorageRemove(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody struct {
		Prefixes []string `json:"prefixes"`
	}
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.EscapedPath()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		if fail {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"status":403,"message":"new row violates row-level security policy"}`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	store := NewObjectStorage(config.BackendConfig{URL: srv.URL, AnonKey: "anon"}, srv.Client())
	require.NoError(t, store.Remove(context.Background(), "event-images", "e1-1.png"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/storage/v1/object/event-images", gotPath)
	assert.Equal(t, []string{"e1-1.png"}, gotBody.Prefixes)

	fail = true
	err := store.Remove(context.Background(), "event-images", "e1-1.png")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.True(t, IsAuthRejection(err))
}

func TestLocalObjectStorage(t *testing.T) {
	dir := t.TempDir()
	local, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	store := NewLocalObjectStorage(local, "http://localhost:8080/")

	require.NoError(t, store.Upload(context.Background(), "event-images", "e1-1.png", []byte("img"), "image/png"))
	data, err := os.ReadFile(filepath.Join(dir, "event-images", "e1-1.png"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
	assert.Equal(t, "http://localhost:8080/media/event-images/e1-1.png", store.PublicURL("event-images", "e1-1.png"))
	assert.Equal(t, dir, store.Root())

	require.NoError(t, store.Remove(context.Background(), "event-images", "e1-1.png"))
	_, err = os.Stat(filepath.Join(dir, "event-images", "e1-1.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewStorageUnknownDriver(t *testing.T) {
	_, err := NewStorage(config.BackendConfig{}, config.StorageConfig{Driver: "s3"}, "", nil)
	assert.Error(t, err)
}
