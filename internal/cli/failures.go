package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/docket/internal/control"
	"github.com/vietddude/docket/internal/core/config"
)

var failuresCmd = &cobra.Command{
	Use:   "failures [COUNTY]",
	Short: "List case numbers that failed in earlier runs",
	Args:  cobra.MaximumNArgs(1),
	Run:   runFailures,
}

var retryFailuresCmd = &cobra.Command{
	Use:   "retry-failures [COUNTY]",
	Short: "Fetch the failed case numbers again",
	Args:  cobra.MaximumNArgs(1),
	Run:   runRetryFailures,
}

var clearFailuresCmd = &cobra.Command{
	Use:   "clear-failures [COUNTY]",
	Short: "Forget the failed case numbers of a county",
	Args:  cobra.MaximumNArgs(1),
	Run:   runClearFailures,
}

func init() {
	rootCmd.AddCommand(failuresCmd, retryFailuresCmd, clearFailuresCmd)
}

func countyConfig(args []string) *config.AppConfig {
	cfg := setup()
	if len(args) > 0 && args[0] != "" {
		cfg.County = strings.ToLower(args[0])
	}
	if cfg.Redis.URL == "" {
		slog.Warn("redis.url is not set; the failure ledger only lives for this process")
	}
	return cfg
}

func runFailures(cmd *cobra.Command, args []string) {
	cfg := countyConfig(args)
	cfg.Browser.Enabled = false

	ctx, cancel := signalContext()
	defer cancel()

	app, err := control.NewApp(ctx, cfg, control.Options{})
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Close()
	}()

	failed, err := app.Failures(ctx)
	if err != nil {
		slog.Error("Failed to list failed cases", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CASE\tSTAGE\tRUN\tRECORDED")
	for _, f := range failed {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.CaseID, f.Stage, f.RunID, f.RecordedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}

func runRetryFailures(cmd *cobra.Command, args []string) {
	cfg := countyConfig(args)

	ctx, cancel := signalContext()
	defer cancel()

	app, err := control.NewApp(ctx, cfg, control.Options{})
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Close()
	}()

	if _, err := app.RetryFailures(ctx); err != nil {
		slog.Error("Failed to retry failed cases", "error", err)
		_ = app.Close()
		os.Exit(1)
	}
}

func runClearFailures(cmd *cobra.Command, args []string) {
	cfg := countyConfig(args)
	cfg.Browser.Enabled = false

	ctx, cancel := signalContext()
	defer cancel()

	app, err := control.NewApp(ctx, cfg, control.Options{})
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = app.Close()
	}()

	if err := app.ClearFailures(ctx); err != nil {
		slog.Error("Failed to clear failed cases", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Cleared failed cases for %s\n", cfg.County)
}
