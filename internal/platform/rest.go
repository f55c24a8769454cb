package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/JavaZeroo/gitee-monitor/internal/domain"
	"github.com/JavaZeroo/gitee-monitor/internal/pkg/logger"
)

// restClient is the request helper shared by both platform dialects.
// It owns the HTTP transport, the per-request deadline and the mapping
// of responses onto the engine's error taxonomy.
type restClient struct {
	baseURL string
	httpc   *http.Client
	headers func(h http.Header)
	logger  *logger.Logger
}

func newRESTClient(cfg ClientConfig, headers func(h http.Header), log *logger.Logger) *restClient {
	return &restClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.RequestTimeout},
		headers: headers,
		logger:  log,
	}
}

// getJSON performs a GET against baseURL+path and decodes the body
// into out. Errors are always one of the domain sentinels.
func (c *restClient) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.headers(req.Header)

	resp, err := c.httpc.Do(req)
	if err != nil {
		// timeouts and connection failures are retryable
		return fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		c.logger.Debug("platform request failed",
			"url", u,
			"status", resp.StatusCode,
			"error", err,
		)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrTransient, err)
	}

	return nil
}

// classifyStatus maps a non-2xx response onto the error taxonomy. A
// 403 counts as rate limiting when the platform reports an exhausted
// quota, otherwise as an auth failure.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrPRNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.ErrRateLimited
	case resp.StatusCode == http.StatusForbidden:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" {
			return domain.ErrRateLimited
		}
		return domain.ErrAuth
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuth
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: server returned %d", domain.ErrTransient, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: unexpected status %d: %s", domain.ErrTransient, resp.StatusCode, body)
	}
}

// IsRetryable reports whether the fetch may be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrTransient)
}
