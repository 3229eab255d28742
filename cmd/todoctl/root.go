package main

import (
	"context"
	"os"

	"todo_api/internal/config"
	"todo_api/internal/db"
	"todo_api/internal/logger"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type storeFlags struct {
	driver string
	path   string
	url    string
}

func newRootCmd() *cobra.Command {
	var flags storeFlags

	root := &cobra.Command{
		Use:   "todoctl",
		Short: "Operator tool for the todo service",
		Long: `todoctl manages the todo service's store and serves the web app.

Store settings come from the environment (and .env) like the server's;
the --driver, --db-path and --database-url flags override them.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init("info", false)
		},
	}
	root.PersistentFlags().StringVar(&flags.driver, "driver", "", "store driver: sqlite or postgres")
	root.PersistentFlags().StringVar(&flags.path, "db-path", "", "SQLite file")
	root.PersistentFlags().StringVar(&flags.url, "database-url", "", "PostgreSQL DSN")

	root.AddCommand(
		newMigrateCmd(&flags),
		newStatusCmd(&flags),
		newResetCmd(&flags),
		newServeSPACmd(),
	)
	return root
}

// openStore applies flag overrides on top of the environment and opens the store.
func openStore(ctx context.Context, flags *storeFlags) (*sqlx.DB, *db.Migrator, error) {
	_ = godotenv.Load()
	for key, val := range map[string]string{
		"DB_DRIVER":    flags.driver,
		"DB_PATH":      flags.path,
		"DATABASE_URL": flags.url,
	} {
		if val != "" {
			if err := os.Setenv(key, val); err != nil {
				return nil, nil, err
			}
		}
	}
	cfg, err := config.Read()
	if err != nil {
		return nil, nil, err
	}

	conn, dialect, err := db.Open(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	return conn, db.NewMigrator(conn, dialect), nil
}
