// Package static serves saved pages from disk. It stands in for the headless
// fetcher in tests and offline runs, where scrape pipelines are exercised
// against fixture HTML instead of the live retailer.
package static

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/JakeFAU/book-release-tracker/internal/tracker"
)

// Fetcher implements tracker.Fetcher from a URL-to-file mapping.
type Fetcher struct {
	pages map[string]string
}

// New creates an empty static fetcher.
func New() *Fetcher {
	return &Fetcher{pages: make(map[string]string)}
}

// Register maps a URL to a file on disk.
func (f *Fetcher) Register(url, path string) {
	f.pages[url] = path
}

// Fetch returns the registered page body for the URL, or an error mimicking
// a navigation failure when the URL is unknown.
func (f *Fetcher) Fetch(_ context.Context, request tracker.FetchRequest) (tracker.FetchResponse, error) {
	path, ok := f.pages[request.URL]
	if !ok {
		return tracker.FetchResponse{}, fmt.Errorf("no page registered for %s", request.URL)
	}
	start := time.Now()
	raw, err := os.ReadFile(path)
	if err != nil {
		return tracker.FetchResponse{}, fmt.Errorf("read page %s: %w", path, err)
	}
	return tracker.FetchResponse{
		URL:      request.URL,
		HTML:     string(raw),
		Duration: time.Since(start),
	}, nil
}
