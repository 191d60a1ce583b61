package cache

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/dronestore/storefront/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 serves path-style GET/PUT/DELETE object requests from a map
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = string(body)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		body, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
				`<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	case http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestNewS3Store_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3Store(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3Store(&config.StorageConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("endpoint without scheme", func(t *testing.T) {
		store, err := NewS3Store(&config.StorageConfig{
			Bucket:    "carts",
			Endpoint:  "minio.local:9000",
			AccessKey: "key",
			SecretKey: "secret",
		})
		require.NoError(t, err)
		assert.Equal(t, "carts", store.GetBucket())
	})
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: make(map[string]string)}
	server := httptest.NewServer(fake)
	defer server.Close()

	store, err := NewS3Store(&config.StorageConfig{
		Bucket:       "carts",
		Endpoint:     server.URL,
		Region:       "us-east-1",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		UsePathStyle: true,
		KeyPrefix:    "carts/",
	})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)

	require.NoError(t, store.Set(t.Context(), "storefront:cart:user:42", "[]"))
	fake.mu.Lock()
	_, ok := fake.objects["carts/carts/storefront/cart/user/42.json"]
	fake.mu.Unlock()
	assert.True(t, ok, "keys map to prefixed object paths")
}
