package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrorigo/blanktrace/internal/store"
)

func newStatsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print aggregate counters from the audit log database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			db, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			st, err := db.Summary(cmd.Context())
			if err != nil {
				return fmt.Errorf("summarize: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "requests logged:         %d\n", st.TotalRequests)
			fmt.Fprintf(out, "tracking domains seen:   %d\n", st.TotalDomains)
			fmt.Fprintf(out, "tracking domains blocked: %d\n", st.BlockedDomains)
			fmt.Fprintf(out, "cookies blocked:         %d\n", st.CookiesBlocked)
			fmt.Fprintf(out, "fingerprint rotations:   %d\n", st.FingerprintRotations)
			return nil
		},
	}
}
