package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("window.axe = {};"))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Equal(t, "window.axe = {};", result.Text())
	assert.Equal(t, "application/javascript", result.MediaType)
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestURL_InvalidURL(t *testing.T) {
	for _, u := range []string{"not-a-valid-url", "ftp://ex.com/a.png", "data:image/png;base64,AAAA"} {
		_, err := URL(context.Background(), u, nil)
		require.Error(t, err, u)

		var fetchErr *Error
		assert.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "invalid URL")
	}
}

func TestURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "404")
}

func TestImage_Success(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/gif")
		_, _ = w.Write([]byte("GIF89a"))
	}))
	defer server.Close()

	result, err := Image(context.Background(), server.URL+"/a.gif", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), result.Body)
	assert.Equal(t, "image/gif", result.MediaType)
	assert.Equal(t, DefaultUserAgent, gotUA)
}

func TestImage_Rejects4xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	_, err := Image(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestImage_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := Image(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response body")
}

func TestImage_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer server.Close()

	opts := DefaultOptions()
	opts.MaxBytes = 16
	_, err := Image(context.Background(), server.URL, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}

func TestImage_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	opts := DefaultOptions()
	opts.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := Image(context.Background(), server.URL, opts)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "HTTP request failed", fetchErr.Message)
}

func TestMediaType(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/gif; charset=binary", "image/gif"},
		{" Image/PNG ", "image/png"},
		{"IMAGE/WEBP; q=", "image/webp"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MediaType(tt.contentType), tt.contentType)
	}
}
