package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tenqz/videosos/internal/domain"
)

// DownloadError is returned when a result URL cannot be retrieved.
type DownloadError struct {
	URL    string
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("download %s: status %d", e.URL, e.Status)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Fetcher retrieves a binary payload from a remote URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*domain.Blob, error)
}

// HTTPFetcher downloads result payloads over plain HTTP.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher builds a fetcher with the given client, defaulting to a
// client with a generous timeout for large video payloads.
func NewHTTPFetcher(httpClient *http.Client) *HTTPFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &HTTPFetcher{httpClient: httpClient}
}

// Fetch downloads the payload behind rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*domain.Blob, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" {
		return nil, &DownloadError{URL: rawURL, Err: fmt.Errorf("invalid url")}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &DownloadError{URL: rawURL, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &domain.Blob{Data: data, ContentType: contentType}, nil
}
