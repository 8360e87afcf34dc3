package scraper

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"pandafinder/internal/config"
)

// Client fetches Bilbasen pages politely: one request per RequestDelayMin
// with random jitter up to RequestDelayMax, a browser User-Agent, and
// exponential backoff on transport errors, 429 and 5xx.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	retries   int
	backoff   time.Duration
	jitter    time.Duration
}

func NewClient(cfg *config.Config) *Client {
	jitter := cfg.RequestDelayMax - cfg.RequestDelayMin
	if jitter < 0 {
		jitter = 0
	}
	return &Client{
		http:      &http.Client{Timeout: 60 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(cfg.RequestDelayMin), 1),
		userAgent: cfg.UserAgent,
		retries:   cfg.RetryAttempts,
		backoff:   cfg.RetryDelayBase,
		jitter:    jitter,
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d", e.code) }

func retryable(err error) bool {
	if se, ok := err.(*statusError); ok {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// Transport-level failures are worth another try.
	return true
}

// Get fetches url and returns the body. Failed attempts back off as
// backoff*2^(attempt-1); a non-retryable HTTP status fails immediately.
func (c *Client) Get(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * (1 << (attempt - 1))
			log.Warn().Str("url", url).Int("attempt", attempt).Dur("delay", delay).
				Msg("retrying fetch")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
		if c.jitter > 0 {
			select {
			case <-time.After(time.Duration(rand.Int63n(int64(c.jitter)))):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		body, err := c.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return "", fmt.Errorf("fetch %s: %w", url, lastErr)
}

func (c *Client) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "da-DK,da;q=0.9,en;q=0.8")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode}
	}

	b, err := io.ReadAll(resp.Body)
	return string(b), err
}
