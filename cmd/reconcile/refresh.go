package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/useneurox-company/ERP--sub000/internal/app"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-read stock for confirmed matches that are not ordered yet",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	return withServices(cmd.Context(), func(s *app.Services) error {
		changed, err := s.Reconciliation.RefreshStock(cmd.Context())
		if err != nil {
			return fmt.Errorf("refresh: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]any{"itemsChanged": changed})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d items changed\n", changed)
		return nil
	})
}
