// Command funnel runs the lead-qualification funnel: the HTTP API the chat
// transport talks to, schema migrations and an operator statistics report.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/vibe-compass/internal/config"
	"github.com/tbourn/vibe-compass/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfg     config.Config
	envFile string
	dsnFlag string

	rootCmd = &cobra.Command{
		Use:           "funnel",
		Short:         "Lead-qualification chat funnel",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
				return err
			}
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			loaded.DBDSN = sysutil.FirstNonEmpty(dsnFlag, loaded.DBDSN)
			cfg = loaded
			sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, nil)
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "database DSN (overrides DB_DSN)")

	rootCmd.AddCommand(serveCmd, migrateCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("funnel")
	}
}
