package api

import (
	"context"
	"fmt"
	"time"

	"github.com/valyala/fasthttp"
)

// ConnectionConfig holds configuration for outbound HTTP connections
type ConnectionConfig struct {
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	MaxIdleConnDuration time.Duration `mapstructure:"max_idle_conn_duration"`
	ReadTimeout         time.Duration `mapstructure:"read_timeout"`
	WriteTimeout        time.Duration `mapstructure:"write_timeout"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	UserAgent           string        `mapstructure:"user_agent"`
}

// DefaultConnectionConfig returns settings for API collaborators
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxConnsPerHost:     32,
		MaxIdleConnDuration: 90 * time.Second,
		ReadTimeout:         30 * time.Second,
		WriteTimeout:        10 * time.Second,
		RequestTimeout:      5 * time.Second,
		UserAgent:           "trend-go/1.0",
	}
}

// ScraperConnectionConfig returns settings for page scraping, which is
// slower than API traffic.
func ScraperConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxConnsPerHost:     8,
		MaxIdleConnDuration: 2 * time.Minute,
		ReadTimeout:         45 * time.Second,
		WriteTimeout:        15 * time.Second,
		RequestTimeout:      30 * time.Second,
		UserAgent:           "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// NewFastHTTPClient builds a reusable fasthttp client from config
func NewFastHTTPClient(config ConnectionConfig) *fasthttp.Client {
	return &fasthttp.Client{
		Name:                     config.UserAgent,
		ReadTimeout:              config.ReadTimeout,
		WriteTimeout:             config.WriteTimeout,
		MaxConnsPerHost:          config.MaxConnsPerHost,
		MaxIdleConnDuration:      config.MaxIdleConnDuration,
		NoDefaultUserAgentHeader: config.UserAgent == "",
	}
}

// DoContext executes req with the earlier of ctx's deadline and timeout.
// fasthttp has no context support, so cancellation without a deadline is
// only observed before the request starts.
func DoContext(ctx context.Context, client *fasthttp.Client, req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	if err := client.DoDeadline(req, resp, deadline); err != nil {
		if err == fasthttp.ErrTimeout {
			return fmt.Errorf("request failed: %w", context.DeadlineExceeded)
		}
		return fmt.Errorf("request failed: %w", err)
	}

	if code := resp.StatusCode(); code < 200 || code >= 300 {
		return &StatusError{Code: code, Body: string(resp.Body())}
	}
	return nil
}
