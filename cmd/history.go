package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"kiosk-lottery/internal/config"
	"kiosk-lottery/internal/export"
	"kiosk-lottery/internal/models"

	"github.com/google/logger"
	"github.com/spf13/cobra"
)

func newHistoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Export or clear the draw history",
	}
	cmd.AddCommand(newHistoryExportCommand(a), newHistoryClearCommand(a))
	return cmd
}

func newHistoryExportCommand(a *app) *cobra.Command {
	var (
		format string
		pool   string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the draw history as CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), a.cfg.Store)
			if err != nil {
				return err
			}
			defer store.Close()

			var records []models.DrawRecord
			if pool != "" {
				poolID := models.PoolID(pool)
				if !poolID.Valid() {
					return fmt.Errorf("unknown pool %q", pool)
				}
				records, err = store.ListRecordsByPool(cmd.Context(), poolID)
			} else {
				records, err = store.ListRecords(cmd.Context())
				slices.SortStableFunc(records, func(x, y models.DrawRecord) int {
					return x.CreatedAt.Compare(y.CreatedAt)
				})
			}
			if err != nil {
				return fmt.Errorf("list records: %w", err)
			}

			if out == "" {
				out = defaultExportName(a.cfg, format, pool, records)
			}
			var w io.Writer = cmd.OutOrStdout()
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "csv":
				err = export.WriteCSV(w, records)
			case "json":
				err = export.WriteJSON(w, records)
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d records written to %s\n", len(records), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "csv", "csv or json")
	cmd.Flags().StringVar(&pool, "pool", "", "only this pool (first, second, third, fourth, lucky)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file, - for stdout")
	return cmd
}

func defaultExportName(cfg *config.Config, format, pool string, records []models.DrawRecord) string {
	date := time.Now().Format(time.DateOnly)
	if format == "json" && pool != "" {
		name := pool
		if len(records) > 0 {
			name = records[0].PoolName
		}
		return export.PoolFilename(date, name)
	}
	if settings, err := config.LoadSettings(cfg.DataDir); err == nil && settings.EventDate() != "" {
		date = settings.EventDate()
	}
	if format == "json" {
		return fmt.Sprintf("年会%s_抽奖记录.json", date)
	}
	return export.HistoryCSVFilename(date)
}

func newHistoryClearCommand(a *app) *cobra.Command {
	var confirm string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every draw record (requires --confirm RESET)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !strings.EqualFold(strings.TrimSpace(confirm), "RESET") {
				return errors.New("refusing to clear history: pass --confirm RESET")
			}
			store, err := openStore(cmd.Context(), a.cfg.Store)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.ClearAll(cmd.Context()); err != nil {
				return fmt.Errorf("clear history: %w", err)
			}
			logger.Info("draw history cleared from the command line")
			fmt.Fprintln(cmd.OutOrStdout(), "history cleared")
			return nil
		},
	}
	cmd.Flags().StringVar(&confirm, "confirm", "", "type RESET to confirm")
	return cmd
}
