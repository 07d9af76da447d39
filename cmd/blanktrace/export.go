package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrorigo/blanktrace/internal/store"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the request log as JSON or CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch format {
			case "json", "csv":
			default:
				return fmt.Errorf("unknown --format %q: want json or csv", format)
			}

			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			rows, err := db.ExportRequestLog(cmd.Context())
			if err != nil {
				return fmt.Errorf("export request log: %w", err)
			}

			if format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			return writeCSV(cmd, rows)
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or csv")
	return cmd
}

func writeCSV(cmd *cobra.Command, rows []store.RequestLogRow) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write([]string{"domain", "path", "timestamp", "user_agent", "client_ip"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Domain,
			r.Path,
			strconv.FormatInt(r.Timestamp, 10),
			r.UserAgent,
			r.ClientIP,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
