package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yourusername/facturas/config"
	"github.com/yourusername/facturas/logger"
)

var version = "1.0.0"

// cfg is loaded once before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "facturas",
	Short: "Invoicing server with a Veri*Factu hash chain",
	Long: `facturas runs the invoicing API and its maintenance tasks.

Finalized invoices are numbered per company without gaps and, for companies
with Veri*Factu enabled, sealed into a SHA-256 hash chain that can be
validated at any time.

Configuration comes from the environment or a .env file:
  DATABASE_URL        - PostgreSQL DSN (sqlite at DATABASE_PATH otherwise)
  JWT_SECRET          - Access token secret (serve only)
  JWT_REFRESH_SECRET  - Refresh token secret (serve only)
  LOCK_BACKEND        - memory or redis
  REDIS_ADDR          - Redis address for the redis lock backend`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if err := logger.Setup(loaded.GetLoggerConfig()); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if IsChainBroken(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
