package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Config holds Pushgateway settings. Metrics are only pushed when URL is set.
type Config struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

var (
	// FetchAttempts tracks whole-batch fetch attempts per county and outcome
	FetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_fetch_attempts_total",
			Help: "Total number of whole-batch fetch attempts",
		},
		[]string{"county", "outcome"},
	)

	// CasesFetched tracks successfully parsed cases
	CasesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_cases_fetched_total",
			Help: "Total number of cases fetched and parsed",
		},
		[]string{"county"},
	)

	// CasesFailed tracks identifiers lost per pipeline stage
	CasesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_cases_failed_total",
			Help: "Total number of case identifiers that failed",
		},
		[]string{"county", "stage"},
	)

	// PageLoads tracks portal page loads per backend and result
	PageLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docket_page_loads_total",
			Help: "Total number of portal page loads",
		},
		[]string{"source", "backend", "result"},
	)

	// PageLoadLatency tracks portal page load latency
	PageLoadLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docket_page_load_seconds",
			Help:    "Portal page load latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "backend"},
	)

	// LastRunCases tracks the size of the last emitted result
	LastRunCases = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "docket_last_run_cases",
			Help: "Number of cases in the result of the last run",
		},
		[]string{"county"},
	)
)

// Push sends the default registry to the Pushgateway.
func Push(cfg Config, county string) error {
	if cfg.PushgatewayURL == "" {
		return nil
	}

	err := push.New(cfg.PushgatewayURL, cfg.Job).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("county", county).
		Push()
	if err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	return nil
}
