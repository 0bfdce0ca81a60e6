package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/docket/internal/metrics"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) docket/1.0"

// HTTPLoader fetches portal pages with a plain HTTP client.
type HTTPLoader struct {
	name       string
	httpClient *http.Client
	Monitor    *PortalMonitor
}

// NewHTTPLoader creates a loader sharing one connection pool for the whole run.
func NewHTTPLoader(name string, timeout time.Duration) *HTTPLoader {
	return &HTTPLoader{
		name: name,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Monitor: NewPortalMonitor(),
	}
}

// Load performs a GET for pageURL and returns the body.
func (l *HTTPLoader) Load(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()

	switch status := l.Monitor.Status(); status {
	case StatusThrottled, StatusBlocked:
		return "", fmt.Errorf("portal %s, retry after: %v", status, l.Monitor.RetryAfter())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		metrics.PageLoads.WithLabelValues(l.name, "http", "error").Inc()
		return "", fmt.Errorf("get page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusForbidden {
		l.Monitor.RecordThrottle(resp.StatusCode, resp.Header.Get("Retry-After"))
		metrics.PageLoads.WithLabelValues(l.name, "http", "throttled").Inc()
		return "", &StatusError{Code: resp.StatusCode, Body: "portal throttled request"}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.PageLoads.WithLabelValues(l.name, "http", "error").Inc()
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.PageLoads.WithLabelValues(l.name, "http", "status").Inc()
		return "", &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	if l.Monitor.DetectThrottlePattern(string(body)) {
		l.Monitor.RecordThrottle(http.StatusTooManyRequests, "")
		metrics.PageLoads.WithLabelValues(l.name, "http", "throttled").Inc()
		return "", fmt.Errorf("throttle notice in portal response")
	}

	latency := time.Since(start)
	l.Monitor.RecordRequest(latency)
	metrics.PageLoads.WithLabelValues(l.name, "http", "ok").Inc()
	metrics.PageLoadLatency.WithLabelValues(l.name, "http").Observe(latency.Seconds())

	return string(body), nil
}

// RetryAfter returns the time left before the portal accepts requests again.
func (l *HTTPLoader) RetryAfter() time.Duration {
	return l.Monitor.RetryAfter()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
