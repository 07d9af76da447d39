package main

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/mrorigo/blanktrace/internal/store"
)

func newBlockCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Manage explicit domain blocking",
	}
	cmd.AddCommand(newBlockAddCmd(flags), newBlockRemoveCmd(flags))
	return cmd
}

func newBlockAddCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <host>",
		Short: "Mark a tracked domain as blocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, cmd, func(db *store.Store) error {
				return db.WithTx(cmd.Context(), func(tx *sql.Tx) error {
					return db.SetDomainBlocked(tx, args[0], true)
				})
			})
		},
	}
}

func newBlockRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <host>",
		Short: "Clear a tracked domain's blocked flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(flags, cmd, func(db *store.Store) error {
				return db.WithTx(cmd.Context(), func(tx *sql.Tx) error {
					return db.SetDomainBlocked(tx, args[0], false)
				})
			})
		},
	}
}
