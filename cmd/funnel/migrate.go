package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/vibe-compass/internal/repo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the funnel schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer closeDB(db)
		if err := repo.AutoMigrate(db); err != nil {
			return err
		}
		log.Info().Str("driver", cfg.DBDriver).Msg("schema up to date")
		return nil
	},
}
