package config

import (
	"time"

	"github.com/vietddude/docket/internal/infra/notify"
	"github.com/vietddude/docket/internal/infra/output"
	redisclient "github.com/vietddude/docket/internal/infra/redis"
	"github.com/vietddude/docket/internal/infra/source"
	"github.com/vietddude/docket/internal/infra/storage/postgres"
	"github.com/vietddude/docket/internal/metrics"
)

// DefaultOutput is the JSON destination used when none is given.
const DefaultOutput = "result.json"

// DefaultCounty selects the source variant used when none is given.
const DefaultCounty = "travis"

// AppConfig represents the top-level configuration.
type AppConfig struct {
	County   string                 `yaml:"county"`
	Output   string                 `yaml:"output"`
	JSON     *bool                  `yaml:"json"`
	Persist  *bool                  `yaml:"persist"`
	Fetch    FetchConfig            `yaml:"fetch"`
	Browser  source.BrowserConfig   `yaml:"browser"`
	Sources  []source.VariantConfig `yaml:"sources"`
	Database postgres.Config        `yaml:"database"`
	Redis    redisclient.Config     `yaml:"redis"`
	Email    notify.EmailConfig     `yaml:"email"`
	S3       output.S3Config        `yaml:"s3"`
	Metrics  metrics.Config         `yaml:"metrics"`
	Logging  LoggingConfig          `yaml:"logging"`
}

// FetchConfig controls the batch fetch and its whole-batch retry.
// CallTimeout and InitialDelay are pointers so an explicit 0 (disabled)
// survives the defaults.
type FetchConfig struct {
	MaxAttempts  int            `yaml:"max_attempts"`
	Workers      int            `yaml:"workers"`
	CallTimeout  *time.Duration `yaml:"call_timeout"`
	InitialDelay *time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration  `yaml:"max_delay"`
}

// Timeout returns the per-call timeout; zero disables it.
func (f FetchConfig) Timeout() time.Duration {
	if f.CallTimeout == nil {
		return 0
	}
	return *f.CallTimeout
}

// RetryDelay returns the first whole-batch retry delay; zero disables waiting.
func (f FetchConfig) RetryDelay() time.Duration {
	if f.InitialDelay == nil {
		return 0
	}
	return *f.InitialDelay
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text (default) or json
}

// JSONEnabled reports whether the JSON artifact should be written.
func (c *AppConfig) JSONEnabled() bool {
	return c.JSON == nil || *c.JSON
}

// PersistEnabled reports whether records should be stored.
func (c *AppConfig) PersistEnabled() bool {
	return c.Persist == nil || *c.Persist
}
