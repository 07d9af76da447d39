package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mrorigo/blanktrace/internal/store"
)

func newDomainsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List tracked domains, hit counts, and block state",
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

			domains, err := db.Domains(cmd.Context())
			if err != nil {
				return fmt.Errorf("list domains: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tHITS\tBLOCKED\tCATEGORY")
			for _, d := range domains {
				fmt.Fprintf(w, "%s\t%d\t%t\t%s\n", d.Domain, d.HitCount, d.Blocked, d.Category)
			}
			return w.Flush()
		},
	}
}
