package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spooltracker/internal"
	"spooltracker/internal/config"
)

// Client talks to the SpoolTracker REST backend.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
	backoff    func(attempt int) time.Duration
}

type pagedSpools struct {
	Data  []internal.Spool `json:"data"`
	Total *int             `json:"total"`
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("spooltracker api error: status=%d body=%s", e.Status, e.Body)
}

func NewClient(cfg config.Config) *Client {
	timeout := time.Duration(cfg.APITimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    NewRateLimiter(cfg.APIRateLimitRS),
		backoff:    defaultBackoff,
	}
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1000*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
}

// ListSpools fetches every spool. The backend answers with either a bare
// array or a {"data": [...]} page.
func (c *Client) ListSpools(ctx context.Context) ([]internal.Spool, error) {
	body, err := c.do(ctx, http.MethodGet, "api/spools", nil)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var spools []internal.Spool
		if err := json.Unmarshal(trimmed, &spools); err != nil {
			return nil, fmt.Errorf("decode spools: %w", err)
		}
		return spools, nil
	}

	var page pagedSpools
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("decode spools: %w", err)
	}
	return page.Data, nil
}

func (c *Client) UpdateWeight(ctx context.Context, spoolID int64, grams float64) (internal.Spool, error) {
	params := url.Values{}
	params.Set("weight", strconv.FormatFloat(grams, 'f', -1, 64))
	body, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("api/spools/%d/weight", spoolID), params)
	if err != nil {
		return internal.Spool{}, err
	}
	return decodeSpool(body)
}

func (c *Client) MarkEmpty(ctx context.Context, spoolID int64) (internal.Spool, error) {
	body, err := c.do(ctx, http.MethodPatch, fmt.Sprintf("api/spools/%d/empty", spoolID), nil)
	if err != nil {
		return internal.Spool{}, err
	}
	return decodeSpool(body)
}

func decodeSpool(body []byte) (internal.Spool, error) {
	var spool internal.Spool
	if len(bytes.TrimSpace(body)) == 0 {
		return spool, nil
	}
	if err := json.Unmarshal(body, &spool); err != nil {
		return internal.Spool{}, fmt.Errorf("decode spool: %w", err)
	}
	return spool, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values) ([]byte, error) {
	baseURL := strings.TrimRight(c.cfg.APIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	retries := c.cfg.APIMaxRetries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if token := strings.TrimSpace(c.cfg.APIToken); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			slog.Debug("inventory request failed", "method", method, "url", u.String(), "attempt", attempt+1, "error", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = &apiError{Status: resp.StatusCode, Body: string(body)}
			if isRetryableStatus(resp.StatusCode) {
				slog.Debug("inventory request retryable", "method", method, "url", u.String(), "status", resp.StatusCode, "attempt", attempt+1)
				continue
			}
			return nil, lastErr
		}
		return body, nil
	}

	if lastErr == nil {
		lastErr = errors.New("spooltracker request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
