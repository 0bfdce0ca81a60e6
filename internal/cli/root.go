package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/docket/internal/control"
	"github.com/vietddude/docket/internal/core/config"
	"github.com/vietddude/docket/internal/infra/input"
)

var (
	cfgPath string
	isDebug bool

	showBrowser bool
	headless    bool
	useBrowser  bool
	writeJSON   bool
	noJSON      bool
	useDB       bool
	noDB        bool
	workers     int
	maxAttempts int
)

var rootCmd = &cobra.Command{
	Use:   "docket INFILE [OUTFILE] [COUNTY]",
	Short: "Fetch court case records in batch",
	Long: `Docket reads case numbers from INFILE, fetches each case from the county portal,
writes the parsed cases as JSON to OUTFILE (default result.json) and stores them in the database.`,
	Args: cobra.RangeArgs(1, 3),
	Run:  runParse,
}

var parseCmd = &cobra.Command{
	Use:   "parse INFILE [OUTFILE] [COUNTY]",
	Short: "Fetch the cases listed in INFILE",
	Args:  cobra.RangeArgs(1, 3),
	Run:   runParse,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	for _, cmd := range []*cobra.Command{rootCmd, parseCmd} {
		f := cmd.Flags()
		f.BoolVar(&showBrowser, "showbrowser", false, "show the browser window while fetching")
		f.BoolVar(&headless, "headless", false, "run the browser without a window")
		f.BoolVar(&useBrowser, "browser", false, "load pages with a browser instead of plain HTTP")
		f.BoolVar(&writeJSON, "json", true, "write the JSON output file")
		f.BoolVar(&noJSON, "no-json", false, "skip the JSON output file")
		f.BoolVar(&useDB, "db", true, "store cases in the database")
		f.BoolVar(&noDB, "no-db", false, "skip storing cases")
		f.IntVar(&workers, "workers", 0, "concurrent page loads")
		f.IntVar(&maxAttempts, "max-attempts", 0, "whole-batch attempts before giving up")
		cmd.MarkFlagsMutuallyExclusive("showbrowser", "headless")
		cmd.MarkFlagsMutuallyExclusive("json", "no-json")
		cmd.MarkFlagsMutuallyExclusive("db", "no-db")
	}

	rootCmd.AddCommand(parseCmd)
}

// setup loads .env and the config file and initialises logging.
func setup() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	initLogging(cfg.Logging, isDebug, os.Stderr)
	return cfg
}

func logLevel(logging config.LoggingConfig, debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// initLogging installs the default logger: tint for terminals, JSON lines
// when logging.format is json.
func initLogging(logging config.LoggingConfig, debug bool, w io.Writer) {
	level := logLevel(logging, debug)

	if strings.EqualFold(logging.Format, "json") {
		slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
		return
	}

	stylelog.InitDefault(&tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})
}

// applyParseFlags lets explicitly set flags override the config file.
func applyParseFlags(cmd *cobra.Command, cfg *config.AppConfig, args []string) {
	flags := cmd.Flags()

	if len(args) > 1 && args[1] != "" {
		cfg.Output = args[1]
	}
	if len(args) > 2 && args[2] != "" {
		cfg.County = strings.ToLower(args[2])
	}

	if flags.Changed("browser") {
		cfg.Browser.Enabled = useBrowser
	}
	if flags.Changed("showbrowser") {
		cfg.Browser.ShowBrowser = showBrowser
		cfg.Browser.Enabled = cfg.Browser.Enabled || showBrowser
	}
	if flags.Changed("headless") {
		cfg.Browser.ShowBrowser = !headless
	}
	if flags.Changed("json") {
		cfg.JSON = &writeJSON
	}
	if flags.Changed("no-json") {
		v := !noJSON
		cfg.JSON = &v
	}
	if flags.Changed("db") {
		cfg.Persist = &useDB
	}
	if flags.Changed("no-db") {
		v := !noDB
		cfg.Persist = &v
	}
	if workers > 0 {
		cfg.Fetch.Workers = workers
	}
	if maxAttempts > 0 {
		cfg.Fetch.MaxAttempts = maxAttempts
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runParse(cmd *cobra.Command, args []string) {
	cfg := setup()
	applyParseFlags(cmd, cfg, args)

	ids, err := input.ReadFile(args[0])
	if err != nil {
		slog.Error("Failed to read case numbers", "file", args[0], "error", err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := control.NewApp(ctx, cfg, control.Options{})
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("Error during shutdown", "error", err)
		}
	}()

	if _, err := app.Run(ctx, ids); err != nil {
		slog.Error("Failed to write output", "error", err)
		_ = app.Close()
		os.Exit(1)
	}
}
