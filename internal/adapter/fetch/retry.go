package fetch

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig controls the exponential backoff of WithRetry.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns three retries starting at one second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// WithRetry wraps f so that transient failures are retried with exponential
// backoff. Missing manifest entries and 4xx responses are not retried.
func WithRetry(f Fetcher, cfg RetryConfig) Fetcher {
	return &retryFetcher{next: f, cfg: cfg}
}

type retryFetcher struct {
	next Fetcher
	cfg  RetryConfig
}

func (r *retryFetcher) FetchManifest(ctx context.Context, manifestURL string) ([]ManifestEntry, error) {
	var entries []ManifestEntry
	err := r.retry(ctx, manifestURL, func() error {
		var err error
		entries, err = r.next.FetchManifest(ctx, manifestURL)
		return err
	})
	return entries, err
}

func (r *retryFetcher) FetchRange(ctx context.Context, objectURL string, br ByteRange) (*TempFile, error) {
	var f *TempFile
	err := r.retry(ctx, objectURL, func() error {
		var err error
		f, err = r.next.FetchRange(ctx, objectURL, br)
		return err
	})
	return f, err
}

func (r *retryFetcher) FetchObject(ctx context.Context, objectURL string) (*TempFile, error) {
	var f *TempFile
	err := r.retry(ctx, objectURL, func() error {
		var err error
		f, err = r.next.FetchObject(ctx, objectURL)
		return err
	})
	return f, err
}

func (r *retryFetcher) retry(ctx context.Context, target string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	if r.cfg.InitialInterval > 0 {
		bo.InitialInterval = r.cfg.InitialInterval
	}
	if r.cfg.MaxInterval > 0 {
		bo.MaxInterval = r.cfg.MaxInterval
	}

	operation := func() error {
		err := op()
		if err == nil {
			return nil
		}
		var dlErr *DownloadError
		if IsEntryNotFound(err) || (errors.As(err, &dlErr) && dlErr.Permanent()) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("fetch: %s failed, retrying in %s: %v", target, wait.Round(time.Millisecond), err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, r.cfg.MaxRetries), ctx)
	return backoff.RetryNotify(operation, policy, notify)
}
