package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/useneurox-company/ERP--sub000/internal/app"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export COMPARISON_ID",
	Short: "Write the purchase order of a comparison as .xlsx",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default order-<id>.xlsx)")
}

func runExport(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid comparison id: %w", err)
	}

	return withServices(cmd.Context(), func(s *app.Services) error {
		order, err := s.Reconciliation.ExportOrder(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		path := exportOutput
		if path == "" {
			path = order.FileName
		}
		if err := os.WriteFile(path, order.Data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Order written to %s\n", path)
		return nil
	})
}
