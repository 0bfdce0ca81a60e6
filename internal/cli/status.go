package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/docket/internal/control"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the most recent runs",
	Args:  cobra.NoArgs,
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of runs to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := setup()
	if cfg.Database.URL == "" {
		slog.Error("Run history needs database.url")
		os.Exit(1)
	}
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

	runs, err := app.RecentRuns(ctx, statusLimit)
	if err != nil {
		slog.Error("Failed to query runs", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "RUN\tCOUNTY\tSTATUS\tREQUESTED\tFETCHED\tFETCH FAILED\tPERSIST FAILED\tATTEMPTS\tSTARTED")

	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.County, r.Status, r.Requested, r.Fetched,
			r.FetchFailed, r.PersistFailed, r.Attempts, r.StartedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
}
