package cli

import (
	"github.com/spf13/cobra"

	"saldo/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "saldoctl",
	Short: "Administer a saldo deployment",
	Long: `saldoctl runs maintenance tasks against the saldo data store:
schema migrations, default taxonomy seeding, integrity audits and
spreadsheet exports. Configuration comes from the environment (and .env).`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		LoadEnvFile()
		level, _ := cmd.Flags().GetString("log-level")
		SetupLogger(level, "text")
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().String("backend", "", "data backend: sqlite or memory (overrides DATA_BACKEND)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level")
}

// Execute runs saldoctl with the process arguments.
func Execute() error {
	return rootCmd.Execute()
}

// commandConfig loads the environment configuration with flag overrides applied.
func commandConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.SQLiteDBPath = db
	}
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		cfg.DataBackend = backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
