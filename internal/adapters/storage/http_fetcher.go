package storage

import (
	"FlashGrade/internal/core/ports"
	"FlashGrade/internal/shared/retry"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HTTPFetcher downloads chat attachments from their direct URL.
type HTTPFetcher struct {
	client *http.Client
	policy retry.Policy
	log    zerolog.Logger
}

var _ ports.FileFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher uses client, or a client with a one minute timeout when nil.
func NewHTTPFetcher(client *http.Client, policy retry.Policy, baseLogger *zerolog.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	return &HTTPFetcher{
		client: client,
		policy: policy,
		log:    baseLogger.With().Str("component", "file_fetcher").Logger(),
	}
}

// Fetch returns the response body of a successful GET. The caller closes it.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*ports.FetchedFile, error) {
	var resp *http.Response
	err := retry.Do(ctx, f.policy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		r, err := f.client.Do(req)
		if err != nil {
			return err
		}
		if r.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, r.Body)
			r.Body.Close()
			statusErr := fmt.Errorf("download status %d", r.StatusCode)
			if r.StatusCode < http.StatusInternalServerError {
				return retry.Permanent(statusErr)
			}
			return statusErr
		}
		resp = r
		return nil
	}, func(err error, wait time.Duration) {
		f.log.Warn().Err(err).Dur("wait", wait).Msg("Download failed, retrying")
	})
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}

	return &ports.FetchedFile{
		Body:        resp.Body,
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
