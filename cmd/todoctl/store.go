package main

import (
	"errors"
	"fmt"

	"todo_api/internal/db"

	"github.com/spf13/cobra"
)

func newMigrateCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, m, err := openStore(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer conn.Close()

			before, err := m.Version(cmd.Context())
			if err != nil {
				return err
			}
			after, err := m.Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if before == after {
				fmt.Fprintf(cmd.OutOrStdout(), "schema already at version %d\n", after)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated schema from version %d to %d\n", before, after)
			return nil
		},
	}
}

func newStatusCmd(flags *storeFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the schema version and the todos columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, m, err := openStore(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer conn.Close()

			v, err := m.Version(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			state := "up to date"
			if v < m.Latest() {
				state = fmt.Sprintf("%d pending", m.Latest()-v)
			}
			fmt.Fprintf(out, "schema version: %d (%s)\n", v, state)

			cols, err := m.Columns(cmd.Context(), db.TodosTable)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "todos columns: %v\n", cols)
			return nil
		},
	}
}

func newResetCmd(flags *storeFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every todo and recreate the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes all todos; pass --yes to confirm")
			}
			conn, m, err := openStore(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer conn.Close()

			v, err := m.Reset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store reset, schema version %d\n", v)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
