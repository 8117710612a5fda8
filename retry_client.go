package tinydav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/avast/retry-go"
)

type retryHTTPClient struct {
	c        HTTPClient
	attempts uint
	delay    time.Duration
	log      *slog.Logger
}

// NewRetryHTTPClient wraps c to resend requests failing with a transient
// transport error, such as a reset connection or a timeout. Replies are
// returned as-is whatever their status. Request bodies are replayed with
// GetBody.
func NewRetryHTTPClient(c HTTPClient, attempts uint, delay time.Duration, logger *slog.Logger) HTTPClient {
	if c == nil {
		c = http.DefaultClient
	}
	if attempts == 0 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &retryHTTPClient{c: c, attempts: attempts, delay: delay, log: logger}
}

func (c *retryHTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	var resp *http.Response
	first := true
	err := retry.Do(func() error {
		r := req
		if !first && req.Body != nil && req.Body != http.NoBody {
			if req.GetBody == nil {
				return retry.Unrecoverable(fmt.Errorf("tinydav: cannot replay request body"))
			}
			body, err := req.GetBody()
			if err != nil {
				return retry.Unrecoverable(err)
			}
			r = req.Clone(ctx)
			r.Body = body
		}
		first = false

		var err error
		resp, err = c.c.Do(r)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsRetryableError),
		retry.OnRetry(func(n uint, err error) {
			c.log.InfoContext(ctx, "Request failed. Retrying",
				"method", req.Method,
				"url", req.URL.String(),
				"error", err,
				"retry", n)
		}),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// IsRetryableError reports whether err is a transient transport error.
func IsRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
