package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanbriolat/stream-archiver/media"
)

func TestClientSendsFixedHeaders(t *testing.T) {
	assert := assert_.New(t)
	var gotUA, gotReferer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	c := NewClientWith(srv.Client(), DefaultConfig())
	body, err := c.GetText(context.Background(), srv.URL+"/master.m3u8")
	assert.NoError(err)
	assert.Equal("#EXTM3U\n", body)
	assert.Equal(DefaultUserAgent, gotUA)
	assert.Equal(DefaultReferer, gotReferer)
}

func TestClientNon2xxIsFetchError(t *testing.T) {
	assert := assert_.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClientWith(srv.Client(), DefaultConfig())
	_, err := c.GetText(context.Background(), srv.URL+"/embed/abc")
	var fetchErr *media.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(srv.URL+"/embed/abc", fetchErr.URL)
	assert.Contains(err.Error(), "404")
}

func TestClientTransportErrorIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWith(&http.Client{}, DefaultConfig())
	_, err := c.GetText(context.Background(), url)
	var fetchErr *media.FetchError
	assert_.True(t, errors.As(err, &fetchErr))
	assert_.Equal(t, 0, fetchErr.StatusCode)
}

func TestClientSaveURL(t *testing.T) {
	assert := assert_.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("segment-bytes"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "raw_00000")
	c := NewClientWith(srv.Client(), Config{RequestsPerSecond: 100})
	n, err := c.SaveURL(context.Background(), srv.URL+"/seg-0.ts", path)
	assert.NoError(err)
	assert.Equal(int64(len("segment-bytes")), n)
	data, err := os.ReadFile(path)
	assert.NoError(err)
	assert.Equal("segment-bytes", string(data))
}
