package clients

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/metasnap/pkg/document"
	"github.com/ajitpratap0/metasnap/pkg/errors"
	"github.com/ajitpratap0/metasnap/pkg/logger"
)

// maxErrorBody bounds how much of a failed response is kept for logging
const maxErrorBody = 512

// FetchDocument issues one GET to url and parses the body as JSON.
//
// Failures are reported as *errors.Error with type connection, timeout,
// http_status (with a status_code detail) or decode. The response body is
// closed on every path. No retries are attempted.
func (c *HTTPClient) FetchDocument(ctx context.Context, url string) (*document.Value, error) {
	start := time.Now()
	log := c.logger.With(zap.String("url", url))
	log.Info("fetching document")

	resp, err := c.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, c.fail(log, classify(ctx, err, "request failed").WithDetail("url", url))
	}
	defer func() { _ = resp.Body.Close() }()

	if !IsSuccess(resp.StatusCode) {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := errors.New(errors.ErrorTypeHTTPStatus, "unexpected response status "+resp.Status).
			WithDetail("url", url).
			WithDetail("status_code", resp.StatusCode).
			WithDetail("body", string(snippet))
		return nil, c.fail(log, err)
	}

	doc, err := document.Decode(resp.Body)
	if err != nil {
		var syntaxErr *document.SyntaxError
		if stderrors.As(err, &syntaxErr) {
			derr := errors.Wrap(err, errors.ErrorTypeDecode, "response body is not valid JSON").
				WithDetail("url", url).
				WithDetail("content_type", resp.Header.Get("Content-Type"))
			return nil, c.fail(log, derr)
		}
		return nil, c.fail(log, classify(ctx, err, "failed to read response body").WithDetail("url", url))
	}

	log.Info("document fetched",
		zap.Int("status", resp.StatusCode),
		zap.String("kind", doc.Kind().String()),
		zap.Duration("duration", time.Since(start)))
	return doc, nil
}

func (c *HTTPClient) fail(log *zap.Logger, err *errors.Error) error {
	log.Error("fetch failed", logger.ErrorFields(err)...)
	return err
}

// classify maps a transport error onto the timeout or connection category
func classify(ctx context.Context, err error, msg string) *errors.Error {
	if isTimeout(ctx, err) {
		return errors.Wrap(err, errors.ErrorTypeTimeout, msg)
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, msg)
}

func isTimeout(ctx context.Context, err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// IsSuccess reports whether code is a 2xx status
func IsSuccess(code int) bool {
	return code >= http.StatusOK && code < http.StatusMultipleChoices
}
