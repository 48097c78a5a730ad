package download

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	files map[string]string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	content, ok := f.files[url]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", url)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func TestStream(t *testing.T) {
	a := &Archiver{Fetcher: &stubFetcher{files: map[string]string{
		"https://cdn.example.com/a.png": "aaa",
		"https://cdn.example.com/b.jpg": "bbb",
	}}}

	var buf bytes.Buffer
	err := a.Stream(context.Background(), &buf, []Entry{
		{URL: "https://cdn.example.com/a.png", Name: "artwork.png"},
		{URL: "https://cdn.example.com/b.jpg", Name: "artwork.jpg"},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	require.Equal(t, "artwork.png", zr.File[0].Name)
	require.Equal(t, "artwork.jpg", zr.File[1].Name)
}

func TestStreamDeduplicatesNames(t *testing.T) {
	a := &Archiver{Fetcher: &stubFetcher{files: map[string]string{
		"https://cdn.example.com/a.png": "aaa",
		"https://cdn.example.com/b.png": "bbb",
	}}}

	var buf bytes.Buffer
	err := a.Stream(context.Background(), &buf, []Entry{
		{URL: "https://cdn.example.com/a.png", Name: "artwork.png"},
		{URL: "https://cdn.example.com/b.png", Name: "artwork.png"},
	})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	require.Equal(t, "artwork.png", zr.File[0].Name)
	require.Equal(t, "1_artwork.png", zr.File[1].Name)
}

func TestStreamPropagatesFetchError(t *testing.T) {
	a := &Archiver{Fetcher: &stubFetcher{files: map[string]string{}}}

	var buf bytes.Buffer
	err := a.Stream(context.Background(), &buf, []Entry{
		{URL: "https://cdn.example.com/missing.png", Name: "artwork.png"},
	})
	require.Error(t, err)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			io.WriteString(w, "payload")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := &HTTPFetcher{Client: srv.Client()}

	rc, err := f.Fetch(context.Background(), srv.URL+"/ok")
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	require.Equal(t, "payload", string(content))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
}
