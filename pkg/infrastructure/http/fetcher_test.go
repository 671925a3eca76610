package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		UserAgent:      "blocklist-merger/test",
		Retries:        2,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}
}

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestFetcherHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "blocklist-merger/test", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, "0.0.0.0 example.com\n")
	}))
	defer server.Close()

	body, err := NewFetcher(testConfig()).Open(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0 example.com\n", readAll(t, body))
}

func TestFetcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer server.Close()

	body, err := NewFetcher(testConfig()).Open(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", readAll(t, body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcherGivesUp(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewFetcher(testConfig()).Open(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcherDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewFetcher(testConfig()).Open(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetcherMaxResponseSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "0123456789")
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MaxResponseSize = 10
	body, err := NewFetcher(cfg).Open(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", readAll(t, body))

	cfg.MaxResponseSize = 4
	body, err = NewFetcher(cfg).Open(context.Background(), server.URL)
	require.NoError(t, err)
	defer body.Close()
	_, err = io.ReadAll(body)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestFetcherCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.BackoffInitial = time.Hour
	cfg.BackoffMax = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewFetcher(cfg).Open(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetcherFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.txt")
	require.NoError(t, os.WriteFile(path, []byte("||example.com^"), 0o644))

	f := NewFetcher(testConfig())

	body, err := f.Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "||example.com^", readAll(t, body))

	body, err = f.Open(context.Background(), "file://"+filepath.ToSlash(path))
	require.NoError(t, err)
	assert.Equal(t, "||example.com^", readAll(t, body))

	_, err = f.Open(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = f.Open(context.Background(), "ftp://example.com/hosts")
	assert.Error(t, err)
}

func TestCalcBackoff(t *testing.T) {
	for failures := 1; failures <= 6; failures++ {
		d := calcBackoff(100*time.Millisecond, time.Second, failures)
		base := 100 * time.Millisecond << (failures - 1)
		if base > time.Second {
			base = time.Second
		}
		assert.GreaterOrEqual(t, d, base*8/10)
		assert.LessOrEqual(t, d, base*12/10)
	}
}
