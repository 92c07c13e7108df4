// Package stats talks to the external hit-statistics service.
package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/config"
	"github.com/Shivanand-hulikatti/event-participation/internal/metrics"
	"golang.org/x/time/rate"
)

// TimeLayout is the timestamp format the stats service speaks.
const TimeLayout = "2006-01-02 15:04:05"

const (
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 3 * time.Second
	// DefaultRateLimit caps outbound calls per second.
	DefaultRateLimit = rate.Limit(200)
)

// Hit is one recorded page view.
type Hit struct {
	App       string
	URI       string
	IP        string
	Timestamp time.Time
}

// Client is what the rest of the service needs from the stats service.
type Client interface {
	RecordHit(ctx context.Context, hit Hit) error
	Views(ctx context.Context, uris []string, start, end time.Time, unique bool) (map[string]int64, error)
}

// HTTPClient calls the stats service over HTTP.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *HTTPClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// NewHTTPClient creates a client for the stats service at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		limiter:    rate.NewLimiter(DefaultRateLimit, int(DefaultRateLimit)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// New builds the client described by cfg: a Noop when stats are disabled.
func New(cfg config.StatsConfig) Client {
	if !cfg.Enabled || cfg.URL == "" {
		return Noop{}
	}
	opts := []Option{WithHTTPClient(&http.Client{Timeout: cfg.Timeout})}
	if cfg.RateLimit > 0 {
		opts = append(opts, WithRateLimit(cfg.RateLimit))
	}
	return NewHTTPClient(cfg.URL, opts...)
}

type hitBody struct {
	App       string `json:"app"`
	URI       string `json:"uri"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
}

type viewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// RecordHit posts a single hit to /hit.
func (c *HTTPClient) RecordHit(ctx context.Context, hit Hit) (err error) {
	defer func() {
		if err != nil {
			metrics.StatsFailures.WithLabelValues("hit").Inc()
		}
	}()

	body, err := json.Marshal(hitBody{
		App:       hit.App,
		URI:       hit.URI,
		IP:        hit.IP,
		Timestamp: hit.Timestamp.UTC().Format(TimeLayout),
	})
	if err != nil {
		return fmt.Errorf("marshal hit: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body)); err != nil {
		return fmt.Errorf("record hit: %w", err)
	}
	return nil
}

// Views returns hits per URI between start and end. URIs with no hits are
// absent from the result.
func (c *HTTPClient) Views(ctx context.Context, uris []string, start, end time.Time, unique bool) (_ map[string]int64, err error) {
	defer func() {
		if err != nil {
			metrics.StatsFailures.WithLabelValues("stats").Inc()
		}
	}()

	q := url.Values{}
	q.Set("start", start.UTC().Format(TimeLayout))
	q.Set("end", end.UTC().Format(TimeLayout))
	q.Set("unique", strconv.FormatBool(unique))
	for _, u := range uris {
		q.Add("uris", u)
	}

	respBody, err := c.do(ctx, http.MethodGet, c.baseURL+"/stats?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	var stats []viewStats
	if err := json.Unmarshal(respBody, &stats); err != nil {
		return nil, fmt.Errorf("parse stats: %w", err)
	}
	out := make(map[string]int64, len(stats))
	for _, s := range stats {
		out[s.URI] += s.Hits
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, reqURL string, body io.Reader) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return respBody, nil
}

// Noop discards hits and reports no views.
type Noop struct{}

// RecordHit drops the hit.
func (Noop) RecordHit(context.Context, Hit) error { return nil }

// Views returns an empty count for every URI.
func (Noop) Views(context.Context, []string, time.Time, time.Time, bool) (map[string]int64, error) {
	return map[string]int64{}, nil
}
