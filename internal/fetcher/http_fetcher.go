package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/FerdiWoo/nowbar/internal/domain"
	"go.uber.org/zap"
)

const _maxImageSize = 10 * 1024 * 1024 // 10 MB

// HTTPFetcher downloads artwork bytes from HTTP/HTTPS URLs.
// It never retries: a failed fetch is absent artwork and the next poll
// cycle fetches again if the track is still current.
type HTTPFetcher struct {
	logger *zap.Logger
	client *http.Client
}

// NewHTTPFetcher creates a new HTTP-based fetcher instance
func NewHTTPFetcher(logger *zap.Logger, cfg domain.Config) *HTTPFetcher {
	return &HTTPFetcher{
		logger: logger,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout(), // Essential to keep poll cycles bounded
		},
	}
}

// Fetch downloads image data from the given URL
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "nowbar/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("url is not an image: %s", ct)
	}

	limitReader := io.LimitReader(resp.Body, _maxImageSize)

	data, err := io.ReadAll(limitReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	f.logger.Debug("Artwork fetched", zap.Int("bytes", len(data)), zap.String("url", url))
	return data, nil
}
