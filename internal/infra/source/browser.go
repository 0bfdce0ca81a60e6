package source

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/vietddude/docket/internal/metrics"
)

// BrowserConfig selects and tunes the headless browser backend.
type BrowserConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ShowBrowser bool   `yaml:"show_browser"`
	ExecPath    string `yaml:"exec_path"`
}

// BrowserLoader renders portal pages in Chrome through the DevTools protocol.
// One browser process serves every page of the run; each load opens a tab.
type BrowserLoader struct {
	name          string
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewBrowserLoader starts the browser. Close must be called to stop it.
func NewBrowserLoader(name string, cfg BrowserConfig) (*BrowserLoader, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !cfg.ShowBrowser),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(userAgent),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// First Run launches the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &BrowserLoader{
		name:          name,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Load navigates a fresh tab to pageURL and returns the rendered document.
func (b *BrowserLoader) Load(ctx context.Context, pageURL string) (string, error) {
	start := time.Now()

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		metrics.PageLoads.WithLabelValues(b.name, "browser", "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("render page: %w", ctxErr)
		}
		return "", fmt.Errorf("render page: %w", err)
	}

	metrics.PageLoads.WithLabelValues(b.name, "browser", "ok").Inc()
	metrics.PageLoadLatency.WithLabelValues(b.name, "browser").Observe(time.Since(start).Seconds())
	return html, nil
}

// Close shuts the browser down.
func (b *BrowserLoader) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}
