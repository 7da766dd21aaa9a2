package upload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "h1", "0-notes.pdf", []byte("%PDF"), "application/pdf"))
	require.NoError(t, s.Put(ctx, "h1", "/1-figure.png", []byte("png"), "image/png"))
	require.NoError(t, s.Put(ctx, "h2", "0-other.pdf", []byte("x"), "application/pdf"))

	got, err := s.Get(ctx, "h1", "1-figure.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), got)

	names, err := s.List(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []string{"0-notes.pdf", "1-figure.png"}, names)

	require.NoError(t, s.DeleteAll(ctx, "h1"))
	_, err = s.Get(ctx, "h1", "0-notes.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	names, err = s.List(ctx, "h2")
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestMemoryStoreCopiesContent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "h", "f", buf, ""))
	buf[0] = 'z'
	got, _ := s.Get(ctx, "h", "f")
	assert.Equal(t, "abc", string(got))
}

func TestStoreValidation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	assert.Error(t, s.Put(ctx, " ", "f", nil, ""))
	assert.Error(t, s.Put(ctx, "h", "", nil, ""))
	_, err := s.List(ctx, "")
	assert.Error(t, err)

	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	assert.Error(t, err)
}

func TestNewS3StoreDefaultsRegion(t *testing.T) {
	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "uploads"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.region)
	assert.Equal(t, "uploads", s.bucketName)
}

func TestS3StoreRetriesBucketSetup(t *testing.T) {
	var heads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	s, err := NewS3Store(S3Config{Endpoint: strings.TrimPrefix(srv.URL, "http://"), AccessKey: "a", SecretKey: "b", Bucket: "uploads"})
	require.NoError(t, err)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.ensureBucket(canceled))

	require.NoError(t, s.ensureBucket(context.Background()))
	require.NoError(t, s.ensureBucket(context.Background()))
	assert.EqualValues(t, 1, heads.Load())
}
