package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		MaxAttempts:   3,
		MinBodyLength: 500,
		Sleep:         func(context.Context, time.Duration) error { return nil },
	}
}

func realPage() string {
	return "<html><body>" + strings.Repeat("<p>listing</p>", 60) + "</body></html>"
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		assert.Contains(t, r.Header.Get("Accept-Language"), "ro-RO")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(realPage()))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(testOptions()).Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, realPage(), body)
}

func TestHTTPFetcher_RetriesShortBody(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Write([]byte("<html>checking your browser</html>"))
			return
		}
		w.Write([]byte(realPage()))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(testOptions()).Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, realPage(), body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_ExactlyMinLengthIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(testOptions()).Fetch(context.Background(), server.URL)

	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestHTTPFetcher_Non200Unavailable(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(realPage()))
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(testOptions()).Fetch(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestHTTPFetcher_TransportError(t *testing.T) {
	opts := testOptions()
	opts.MaxAttempts = 2
	_, err := NewHTTPFetcher(opts).Fetch(context.Background(), "http://127.0.0.1:1/unreachable")

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestImageFetcher_DownloadImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/webp")
		w.Write([]byte("RIFF....WEBP"))
	}))
	defer server.Close()

	f := NewImageFetcher(0, "test-agent")

	data, contentType, err := f.DownloadImage(context.Background(), server.URL+"/a.webp")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", contentType)
	assert.Equal(t, []byte("RIFF....WEBP"), data)

	_, _, err = f.DownloadImage(context.Background(), server.URL+"/missing.jpg")
	assert.Error(t, err)
}
