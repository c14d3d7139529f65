package httpclient

import (
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

type config struct {
	baseURL          string
	timeout          time.Duration
	retryCount       int
	retryWaitTime    time.Duration
	retryMaxWaitTime time.Duration
}

type Option func(c *config)

func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

func WithRetryCount(count int) Option {
	return func(c *config) {
		c.retryCount = count
	}
}

func WithRetryWaitTime(waitTime time.Duration) Option {
	return func(c *config) {
		c.retryWaitTime = waitTime
	}
}

func WithRetryMaxWaitTime(maxWaitTime time.Duration) Option {
	return func(c *config) {
		c.retryMaxWaitTime = maxWaitTime
	}
}

// New builds a resty client that retries transient network failures with
// backoff.
func New(opts ...Option) *resty.Client {
	cfg := &config{
		timeout:          30 * time.Second,
		retryCount:       3,
		retryWaitTime:    1 * time.Second,
		retryMaxWaitTime: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return resty.New().
		SetBaseURL(cfg.baseURL).
		SetTimeout(cfg.timeout).
		SetRetryCount(cfg.retryCount).
		SetRetryWaitTime(cfg.retryWaitTime).
		SetRetryMaxWaitTime(cfg.retryMaxWaitTime).
		AddRetryCondition(func(_ *resty.Response, err error) bool {
			return isRetryableError(err)
		})
}

// isRetryableError reports whether the request failed in a way a retry can
// fix: refused connections, timeouts, and DNS or address resolution errors.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
