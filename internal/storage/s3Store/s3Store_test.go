package s3Store_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"filetree-service/internal/common"
	"filetree-service/internal/storage/s3Store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noSuchKey = `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`

type fakeS3 struct {
	mu      sync.Mutex
	buckets map[string]bool
	objects map[string]string
	calls   []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	f.calls = append(f.calls, r.Method+" "+path)

	switch {
	case key == "" && r.Method == http.MethodHead:
		if !f.buckets[bucket] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	case key == "" && r.Method == http.MethodPut:
		f.buckets[bucket] = true
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[path] = string(body)
		w.Header().Set("ETag", `"etag"`)
	case r.Method == http.MethodGet:
		data, ok := f.objects[path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, noSuchKey)
			return
		}
		_, _ = io.WriteString(w, data)
	case r.Method == http.MethodDelete:
		delete(f.objects, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newStore(t *testing.T, fake *fakeS3) *s3Store.Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := s3Store.New(context.Background(), s3Store.Config{
		Region:       "us-east-1",
		BaseEndpoint: srv.URL,
		AccessKey:    "key",
		SecretKey:    "secret",
		Bucket:       "uploads",
	})
	require.NoError(t, err)
	return store
}

func TestNew_BootstrapsBucket(t *testing.T) {
	fake := &fakeS3{buckets: map[string]bool{}, objects: map[string]string{}}
	newStore(t, fake)

	assert.True(t, fake.buckets["uploads"])
	assert.Equal(t, []string{"HEAD uploads", "PUT uploads"}, fake.calls)
}

func TestStore_RoundTrip(t *testing.T) {
	fake := &fakeS3{buckets: map[string]bool{"uploads": true}, objects: map[string]string{}}
	store := newStore(t, fake)
	ctx := context.Background()

	url, err := store.Put(ctx, "u1/k.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(url, "/uploads/u1/k.txt"), url)
	assert.Contains(t, fake.objects, "uploads/u1/k.txt")

	fake.mu.Lock()
	fake.objects["uploads/u1/k.txt"] = "hello"
	fake.mu.Unlock()

	rc, err := store.Get(ctx, "u1/k.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	_ = rc.Close()
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, "u1/k.txt"))
	_, err = store.Get(ctx, "u1/k.txt")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.NoError(t, store.Ping(ctx))
}
