package main

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	dbfs "github.com/garnizeh/wellbeing/db"
	"github.com/garnizeh/wellbeing/internal/db"
)

func NewMigrateCommand() *cobra.Command {
	var skipSeed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed the default questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			database, err := db.New(ctx, cfg.DatabasePath, logger)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer database.Close()

			var seed fs.FS = dbfs.SeedFiles
			if skipSeed {
				seed = nil
			}
			if err := db.Migrate(ctx, database, dbfs.Migrations, seed); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			logger.Info("database initialized", "path", cfg.DatabasePath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "Do not insert the default questions")

	return cmd
}
