// Package httpclient builds the retrying HTTP client shared by the outbound
// integrations (GitHub and the vector database).
package httpclient

import (
	"context"
	"io"
	stdlog "log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// NewRetryClient returns a client that retries connection failures and 5xx
// responses up to retryMax times. 4xx responses are returned as-is.
func NewRetryClient(retryMax int) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	// hand the last response back instead of a generic "giving up" error
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = stdlog.New(io.Discard, "", stdlog.LstdFlags)
	retryClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		log.Trace().
			Str(req.Method, req.URL.String()).
			Int("attempt", attempt).
			Msg("outbound request")
	}
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if resp == nil {
			return true, err
		}
		log.Trace().
			Str(resp.Request.Method, resp.Request.URL.String()).
			Int("code", resp.StatusCode).
			Msg("outbound response")
		// auth and validation errors are never retried
		return resp.StatusCode >= 500, nil
	}
	return retryClient
}

// NewStandardClient wraps NewRetryClient in a plain *http.Client for
// libraries that expect one.
func NewStandardClient(retryMax int, timeout time.Duration) *http.Client {
	c := NewRetryClient(retryMax)
	c.HTTPClient.Timeout = timeout
	return c.StandardClient()
}
