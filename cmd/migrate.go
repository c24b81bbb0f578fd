package cmd

import (
	"github.com/spf13/cobra"
	"github.com/yourusername/facturas/config"
	"github.com/yourusername/facturas/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := config.InitDB(cfg); err != nil {
			return err
		}
		log := logger.WithComponent("migrate")
		log.Info().Msg("Database schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
