package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garnizeh/wellbeing/internal/db"
)

func NewBackupCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a consistent copy of the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("%s.%s.bak", cfg.DatabasePath, time.Now().UTC().Format("20060102T150405Z"))
			}

			database, err := db.New(cmd.Context(), cfg.DatabasePath, logger)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer database.Close()

			if err := database.Backup(cmd.Context(), out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Backup file (default <database_path>.<timestamp>.bak)")

	return cmd
}

func NewRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore BACKUP",
		Short: "Replace the database with a backup; stop the server first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if err := db.Restore(args[0], cfg.DatabasePath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s\n", cfg.DatabasePath, args[0])
			return nil
		},
	}
}
