package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"placement_backend/pkg/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample A1-B2 question bank into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
		if err != nil {
			return fmt.Errorf("initialize database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			return err
		}

		seeded, err := database.SeedSampleBank(db)
		if err != nil {
			return err
		}
		if seeded {
			fmt.Fprintln(cmd.OutOrStdout(), "sample question bank created")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "question bank is not empty, nothing to do")
		}
		return nil
	},
}
