// Command reconcile runs warehouse reconciliation from the command line:
// import an item list, refresh stock on open comparisons, export an order.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/app"
	"github.com/useneurox-company/ERP--sub000/internal/config"
	"github.com/useneurox-company/ERP--sub000/internal/database"
	"github.com/useneurox-company/ERP--sub000/internal/logger"
)

var (
	actorFlag  string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "reconcile",
	Short:         "Match furniture item lists against warehouse stock",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", os.Getenv("ERP_ACTOR"), "acting user recorded on changes (env ERP_ACTOR)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")

	rootCmd.AddCommand(uploadCmd, refreshCmd, exportCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withServices loads configuration, opens the database and runs fn with the
// wired services. Buffered writes are flushed before returning.
func withServices(ctx context.Context, fn func(*app.Services) error) error {
	cfg, err := config.LoadWithSecrets(ctx, zap.NewNop())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.Driver == "sqlite" {
		if err := database.Migrate(db, cfg.Database.Driver); err != nil {
			return err
		}
	}

	services, err := app.NewServices(ctx, cfg, db, log)
	if err != nil {
		return err
	}
	runErr := fn(services)
	if err := services.Close(context.WithoutCancel(ctx)); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
