package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"placement_backend/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		return database.Migrate(db)
	},
}
