package download

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
)

type Entry struct {
	URL  string
	Name string
}

// Fetcher retrieves one hosted asset; tests substitute an in-memory one.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	return resp.Body, nil
}

type Archiver struct {
	Fetcher Fetcher
}

func NewArchiver() *Archiver {
	return &Archiver{Fetcher: &HTTPFetcher{}}
}

// Stream fetches every entry and writes it into a zip on the fly, so the
// bundle never lands on disk. Duplicate names get a numeric suffix.
func (a *Archiver) Stream(ctx context.Context, w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	seen := map[string]int{}

	for _, entry := range entries {
		name := entry.Name
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%d_%s", n, name)
		}
		seen[entry.Name]++

		rc, err := a.Fetcher.Fetch(ctx, entry.URL)
		if err != nil {
			zw.Close()
			return fmt.Errorf("archive: %w", err)
		}
		fw, err := zw.Create(name)
		if err != nil {
			rc.Close()
			zw.Close()
			return fmt.Errorf("archive: %w", err)
		}
		if _, err := io.Copy(fw, rc); err != nil {
			rc.Close()
			zw.Close()
			return fmt.Errorf("archive: %w", err)
		}
		rc.Close()
	}

	return zw.Close()
}
