// Package source turns case identifiers into parsed case records by loading
// court portal pages and parsing them.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/vietddude/docket/internal/core/domain"
)

var (
	// ErrCaseNotFound is returned when the portal has no page for a case.
	ErrCaseNotFound = errors.New("case not found")

	// ErrUnknownVariant is returned by the registry for an unregistered source name.
	ErrUnknownVariant = errors.New("unknown source variant")
)

// Source fetches one case record.
// A nil error with found=false is a miss for that identifier only; a non-nil
// error is a fault affecting the whole batch.
type Source interface {
	FetchCase(ctx context.Context, id domain.CaseID) (rec domain.CaseRecord, found bool, err error)
}

// RetryAfterer reports how long the portal asked this client to wait
// before sending more requests.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// PageLoader retrieves the HTML of a portal page.
type PageLoader interface {
	Load(ctx context.Context, pageURL string) (string, error)
}

// PageSource is a Source backed by a portal variant and a page loader.
type PageSource struct {
	variant Variant
	loader  PageLoader
	log     *slog.Logger
}

// NewPageSource binds a variant to the loader used to fetch its pages.
func NewPageSource(variant Variant, loader PageLoader) *PageSource {
	return &PageSource{
		variant: variant,
		loader:  loader,
		log:     slog.Default().With("source", variant.Name),
	}
}

// RetryAfter returns the loader's remaining throttle wait, or zero when the
// loader does not track one.
func (s *PageSource) RetryAfter() time.Duration {
	if ra, ok := s.loader.(RetryAfterer); ok {
		return ra.RetryAfter()
	}
	return 0
}

// FetchCase loads and parses the case detail page of id.
func (s *PageSource) FetchCase(
	ctx context.Context,
	id domain.CaseID,
) (domain.CaseRecord, bool, error) {
	pageURL := s.variant.CaseURL(id)

	html, err := s.loader.Load(ctx, pageURL)
	if err != nil {
		if ClassifyError(err) == ActionMiss {
			s.log.Warn("Case page unavailable", "case", id, "error", err)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load case %s: %w", id, err)
	}

	rec, err := s.variant.Parse(html)
	if err != nil {
		if ClassifyError(err) == ActionMiss {
			s.log.Warn("Failed to parse case page", "case", id, "error", err)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("parse case %s: %w", id, err)
	}

	return rec, true, nil
}

// ParseFunc converts a case detail page into a record.
type ParseFunc func(html string) (domain.CaseRecord, error)

// Variant describes one court portal.
type Variant struct {
	Name        string
	URLTemplate string // "{id}" is replaced with the escaped case identifier
	Parse       ParseFunc
}

// CaseURL returns the detail page address of id.
func (v Variant) CaseURL(id domain.CaseID) string {
	return strings.ReplaceAll(v.URLTemplate, "{id}", url.QueryEscape(string(id)))
}

// VariantConfig declares an additional Odyssey portal in the config file.
type VariantConfig struct {
	Name    string `yaml:"name"`
	CaseURL string `yaml:"case_url"`
}
