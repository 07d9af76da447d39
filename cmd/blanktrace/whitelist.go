package main

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrorigo/blanktrace/internal/store"
)

func newWhitelistCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage the host whitelist (overrides tracker blocking, spec §4.5)",
	}
	cmd.AddCommand(newWhitelistAddCmd(flags), newWhitelistRemoveCmd(flags))
	return cmd
}

func newWhitelistAddCmd(flags *rootFlags) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "add <host>",
		Short: "Add a host to the whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, cmd, func(db *store.Store) error {
				return db.WithTx(cmd.Context(), func(tx *sql.Tx) error {
					return db.SetWhitelist(tx, args[0], reason)
				})
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "free-text note stored alongside the whitelist entry")
	return cmd
}

func newWhitelistRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <host>",
		Short: "Remove a host from the whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, cmd, func(db *store.Store) error {
				return db.WithTx(cmd.Context(), func(tx *sql.Tx) error {
					return db.RemoveWhitelist(tx, args[0])
				})
			})
		},
	}
}

// withStore opens the configured database, runs fn, and closes it,
// printing nothing on success (main prints command errors).
func withStore(flags *rootFlags, cmd *cobra.Command, fn func(*store.Store) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	return fn(db)
}
