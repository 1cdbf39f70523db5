package cmd

import (
	"github.com/spf13/cobra"

	"placement_backend/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "placement",
	Short: "Language placement test backend",
	Long:  "placement 为 A1-B2 语言定级测试提供自适应和整卷两种作答接口。",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs", "Directory containing config.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(dir)
}
