package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/docket/internal/infra/storage/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Args:  cobra.NoArgs,
	Run:   runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) {
	cfg := setup()
	if cfg.Database.URL == "" {
		slog.Error("Migrations need database.url")
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := postgres.Migrate(ctx, db); err != nil {
		slog.Error("Failed to migrate", "error", err)
		os.Exit(1)
	}

	version, err := postgres.SchemaVersion(ctx, db)
	if err != nil {
		slog.Error("Failed to read schema version", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Schema is at version %d\n", version)
}
