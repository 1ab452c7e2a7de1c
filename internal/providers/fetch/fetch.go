// Package fetch is the retrying HTTP GET used by every plain HTTP source:
// vendor download pages, documentation sites, Helm repository indexes and
// the Panorama XML API.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"
)

// maxBody caps a single response body.
const maxBody = 32 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Getter fetches a URL body. Client is the production implementation.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client performs GET requests with exponential backoff on network errors,
// 429 and 5xx responses.
type Client struct {
	HTTP    *http.Client
	Backoff wait.Backoff

	// Header is added to every request (e.g. an API key header).
	Header http.Header
}

var _ Getter = (*Client)(nil)

// New returns a Client with the given per-request timeout and total number
// of attempts.
func New(timeout time.Duration, attempts int) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: timeout},
		Backoff: DefaultBackoff(attempts),
	}
}

// DefaultBackoff starts at 500ms and doubles, with jitter, for attempts tries.
func DefaultBackoff(attempts int) wait.Backoff {
	if attempts < 1 {
		attempts = 1
	}
	return wait.Backoff{
		Duration: 500 * time.Millisecond,
		Factor:   2,
		Jitter:   0.1,
		Steps:    attempts,
		Cap:      30 * time.Second,
	}
}

// Get implements Getter.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := retry.OnError(c.Backoff, Retriable, func() error {
		b, err := c.once(ctx, url)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) once(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	return body, nil
}

// Retriable reports whether err is worth another attempt: throttling,
// server errors, timeouts and connection failures. Context cancellation is
// never retried.
func Retriable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
