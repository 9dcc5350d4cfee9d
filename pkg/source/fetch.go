package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the collector to the platforms it reads.
const DefaultUserAgent = "hazardradar/1.0 (coastal hazard monitor)"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// FetcherConfig controls throttling and retries for adapter HTTP calls.
type FetcherConfig struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	InitialBackoff    time.Duration
}

// DefaultFetcherConfig returns conservative settings for public endpoints.
func DefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		UserAgent:         DefaultUserAgent,
		Timeout:           15 * time.Second,
		RequestsPerSecond: 1,
		Burst:             2,
		MaxRetries:        3,
		InitialBackoff:    time.Second,
	}
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
}

// retryable reports whether a status is worth another attempt.
func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Fetcher performs throttled GET requests with exponential backoff on 429
// and 5xx responses. It is shared by all adapters of one process.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	cfg     FetcherConfig
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher. Zero fields in cfg take their defaults.
func NewFetcher(cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	def := DefaultFetcherConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		cfg:     cfg,
		logger:  logger,
	}
}

// Wait blocks until the rate limiter admits one more request.
func (f *Fetcher) Wait(ctx context.Context) error {
	return f.limiter.Wait(ctx)
}

// Get fetches url and returns the response body.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	op := func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			serr := &StatusError{URL: url, Code: resp.StatusCode}
			if retryable(resp.StatusCode) {
				return serr
			}
			return backoff.Permanent(serr)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.InitialBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.cfg.MaxRetries)), ctx)

	err := backoff.RetryNotify(op, policy, func(err error, wait time.Duration) {
		f.logger.Debug("retrying request", "url", url, "error", err, "wait", wait)
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON fetches url and decodes the JSON body into v.
func (f *Fetcher) GetJSON(ctx context.Context, url string, v any) error {
	body, err := f.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}
