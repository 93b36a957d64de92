package coincap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
)

// Error classes returned by Fetch. Callers check them with errors.Is.
var (
	ErrNetwork = errors.New("coincap: network error")
	ErrDecode  = errors.New("coincap: decode error")
)

// StatusError is a non-2xx response. It matches ErrNetwork.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coincap: GET %s: unexpected status code %d", e.Path, e.Code)
}

func (e *StatusError) Is(target error) bool { return target == ErrNetwork }

// Client is a thin REST client for the market-data API.
// It never retries and never caches; each call is a fresh request.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *infra.RateLimiter
}

// NewClient creates a client for baseURL (e.g. https://api.coincap.io/v2).
func NewClient(baseURL, apiKey string, timeout time.Duration, limiter *infra.RateLimiter) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}
}

// NewClientFromConfig wires the REST settings of cfg.
func NewClientFromConfig(cfg *infra.Config) *Client {
	return NewClient(
		cfg.API.RestURL,
		cfg.API.APIKey,
		time.Duration(cfg.API.TimeoutSec)*time.Second,
		infra.NewRateLimiter(cfg.API.Burst, cfg.API.RequestsPerSecond),
	)
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Fetch issues GET {base}{path} and returns the envelope's data field.
// A null data field yields the zero T.
func Fetch[T any](ctx context.Context, c *Client, path string) (T, error) {
	var zero T

	body, err := c.get(ctx, path)
	if err != nil {
		return zero, err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	if env.Data == nil {
		return zero, fmt.Errorf("%w: %s: response has no data field", ErrDecode, path)
	}

	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.GetUserAgent())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	slog.Debug("REST request", slog.String("path", path), slog.Int("status", resp.StatusCode), slog.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Path: path}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return body, nil
}

// Assets fetches the full asset list.
func (c *Client) Assets(ctx context.Context) ([]domain.Asset, error) {
	return Fetch[[]domain.Asset](ctx, c, "/assets")
}

// Asset fetches one asset. It returns nil, nil when the API has no data for id.
func (c *Client) Asset(ctx context.Context, id string) (*domain.Asset, error) {
	return Fetch[*domain.Asset](ctx, c, "/assets/"+url.PathEscape(id))
}

// History fetches the price history of id at interval (e.g. "d1").
func (c *Client) History(ctx context.Context, id, interval string) ([]domain.HistoryPoint, error) {
	q := url.Values{}
	q.Set("interval", interval)
	return Fetch[[]domain.HistoryPoint](ctx, c, "/assets/"+url.PathEscape(id)+"/history?"+q.Encode())
}
