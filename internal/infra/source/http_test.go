package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPLoader_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected method GET, got %s", r.Method)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("expected a user agent header")
		}
		_, _ = w.Write([]byte(caseDetailPage))
	}))
	defer server.Close()

	l := NewHTTPLoader("test", 5*time.Second)
	body, err := l.Load(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != caseDetailPage {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestHTTPLoader_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		expect ErrorAction
	}{
		{"not found", http.StatusNotFound, ActionMiss},
		{"server error", http.StatusBadGateway, ActionFatal},
		{"throttled", http.StatusTooManyRequests, ActionFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			l := NewHTTPLoader("test", 5*time.Second)
			_, err := l.Load(context.Background(), server.URL)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ClassifyError(err); got != tt.expect {
				t.Errorf("ClassifyError(%v) = %v, want %v", err, got, tt.expect)
			}
		})
	}
}

func TestHTTPLoader_BackOffAfterThrottle(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	l := NewHTTPLoader("test", 5*time.Second)
	_, _ = l.Load(context.Background(), server.URL)
	_, err := l.Load(context.Background(), server.URL)
	if err == nil {
		t.Fatal("expected throttled error")
	}
	if calls != 1 {
		t.Errorf("expected the second load to short-circuit, server saw %d calls", calls)
	}
	if l.Monitor.Status() != StatusThrottled {
		t.Errorf("status = %v, want throttled", l.Monitor.Status())
	}
	if ra := l.Monitor.RetryAfter(); ra <= 60*time.Second {
		t.Errorf("RetryAfter = %v, expected Retry-After header to be honoured", ra)
	}
}

func TestHTTPLoader_ThrottleNotice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>Too many requests. Please try again later.</html>"))
	}))
	defer server.Close()

	l := NewHTTPLoader("test", 5*time.Second)
	_, err := l.Load(context.Background(), server.URL)
	if err == nil || ClassifyError(err) != ActionFatal {
		t.Errorf("throttle notice should be a fatal error, got %v", err)
	}
}

func TestPageSource_RetryAfterFromLoader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	src := NewPageSource(Variant{Name: "test", URLTemplate: server.URL + "/{id}", Parse: OdysseyParser("test")},
		NewHTTPLoader("test", 5*time.Second))

	if ra := src.RetryAfter(); ra != 0 {
		t.Errorf("RetryAfter before any throttle = %v, want 0", ra)
	}
	if _, _, err := src.FetchCase(context.Background(), "A1"); err == nil {
		t.Fatal("expected a throttled fetch to fail the batch")
	}
	if ra := src.RetryAfter(); ra <= 25*time.Second || ra > 30*time.Second {
		t.Errorf("RetryAfter = %v, want close to 30s", ra)
	}

	var _ RetryAfterer = src
	var noWait RetryAfterer = NewPageSource(testVariant(), &fakeLoader{})
	if ra := noWait.RetryAfter(); ra != 0 {
		t.Errorf("loader without throttle tracking should report 0, got %v", ra)
	}
}
