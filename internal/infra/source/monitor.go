package source

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// PortalStatus represents the health state of a portal as seen by this client.
type PortalStatus int

const (
	StatusHealthy   PortalStatus = iota // Portal is working normally
	StatusDegraded                      // Portal is slow but working
	StatusThrottled                     // Portal is rate limiting
	StatusBlocked                       // Portal has blocked this client
)

func (s PortalStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// PortalMonitor tracks portal latency and rate limiting.
type PortalMonitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	status429Count     int
	status403Count     int
	throttlePatterns   []string
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	slowResponseThreshold time.Duration
	now                   func() time.Time
}

// NewPortalMonitor creates a new monitor with default settings.
func NewPortalMonitor() *PortalMonitor {
	return &PortalMonitor{
		recentLatencies:  make([]time.Duration, 0, 50),
		maxLatencyWindow: 50,
		throttlePatterns: []string{
			"too many requests",
			"rate limit exceeded",
			"request rejected",
			"access denied",
			"please try again later",
		},
		slowResponseThreshold: 10 * time.Second,
		now:                   time.Now,
	}
}

// RecordRequest records a successful page load with its latency.
func (pm *PortalMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.recentLatencies = append(pm.recentLatencies, latency)
	if len(pm.recentLatencies) > pm.maxLatencyWindow {
		pm.recentLatencies = pm.recentLatencies[1:]
	}
}

// RecordThrottle records a rate limiting or blocking response.
func (pm *PortalMonitor) RecordThrottle(statusCode int, retryAfter string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.lastThrottleTime = pm.now()

	switch statusCode {
	case 429:
		pm.status429Count++
		pm.retryAfterDuration = 60 * time.Second
		if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
			pm.retryAfterDuration = time.Duration(secs) * time.Second
		}
	case 403:
		pm.status403Count++
		pm.retryAfterDuration = 10 * time.Minute // Longer for IP block
	}
}

// DetectThrottlePattern checks if a page body looks like a throttle notice.
func (pm *PortalMonitor) DetectThrottlePattern(body string) bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	lowerMsg := strings.ToLower(body)
	for _, pattern := range pm.throttlePatterns {
		if strings.Contains(lowerMsg, pattern) {
			return true
		}
	}
	return false
}

// Status returns the current status of the portal.
func (pm *PortalMonitor) Status() PortalStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	sinceThrottle := pm.now().Sub(pm.lastThrottleTime)

	if pm.status403Count > 0 && sinceThrottle < pm.retryAfterDuration {
		return StatusBlocked
	}
	if pm.status429Count > 0 && sinceThrottle < pm.retryAfterDuration {
		return StatusThrottled
	}

	if len(pm.recentLatencies) > 10 {
		var total time.Duration
		for _, lat := range pm.recentLatencies {
			total += lat
		}
		if total/time.Duration(len(pm.recentLatencies)) > pm.slowResponseThreshold {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

// RetryAfter returns remaining time before requests are allowed again.
func (pm *PortalMonitor) RetryAfter() time.Duration {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	if pm.retryAfterDuration > 0 {
		remaining := pm.retryAfterDuration - pm.now().Sub(pm.lastThrottleTime)
		if remaining > 0 {
			return remaining
		}
	}
	return 0
}
