package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/useneurox-company/ERP--sub000/internal/app"
	"github.com/useneurox-company/ERP--sub000/internal/domain"
	"github.com/useneurox-company/ERP--sub000/internal/service"
)

var uploadStageID string

var uploadCmd = &cobra.Command{
	Use:   "upload FILE",
	Short: "Import an .xlsx or .csv item list and match it against stock",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

func init() {
	uploadCmd.Flags().StringVar(&uploadStageID, "stage", "", "procurement stage to attach the comparison to")
}

func runUpload(cmd *cobra.Command, args []string) error {
	in := service.UploadInput{
		FileName: filepath.Base(args[0]),
		Actor:    actorFlag,
	}
	if uploadStageID != "" {
		id, err := uuid.Parse(uploadStageID)
		if err != nil {
			return fmt.Errorf("invalid --stage: %w", err)
		}
		in.StageID = &id
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	in.Data = data

	return withServices(cmd.Context(), func(s *app.Services) error {
		comparison, err := s.Reconciliation.Upload(cmd.Context(), in)
		if err != nil {
			return fmt.Errorf("upload: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), comparison)
		}
		printComparison(cmd.OutOrStdout(), comparison)
		return nil
	})
}

func printComparison(out io.Writer, c *domain.ComparisonDTO) {
	fmt.Fprintf(out, "Comparison %s (%s)\n", c.ID, c.SourceFileName)
	fmt.Fprintf(out, "%d items: %d in stock, %d partial, %d missing\n\n",
		c.Summary.TotalItems, c.Summary.InStock, c.Summary.Partial, c.Summary.Missing)

	w := newTabWriter(out)
	fmt.Fprintln(w, "ROW\tNAME\tQTY\tCONFIDENCE\tSTATUS\tMATCH\tTO ORDER")
	for _, item := range c.Items {
		match := "-"
		if item.WarehouseItem != nil {
			match = item.WarehouseItem.Name
		}
		fmt.Fprintf(w, "%d\t%s\t%g\t%s\t%s\t%s\t%g\n",
			item.RowIndex,
			item.ExcelName,
			item.ExcelQuantity,
			item.MatchConfidence,
			item.Status,
			match,
			item.QuantityToOrder,
		)
	}
	w.Flush()

	for _, re := range c.RowErrors {
		fmt.Fprintf(out, "row %d skipped: %s\n", re.Row, re.Reason)
	}
}
