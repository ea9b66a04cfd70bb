package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/garnizeh/wellbeing/internal/analysis"
	"github.com/garnizeh/wellbeing/pkg/scoring"
)

// NewScoreCommand sends a transcript straight to the configured provider.
// It touches no database and is meant for checking provider settings.
func NewScoreCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a transcript read from --file or stdin and print the analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			scoring.SetLogger(logger)
			analysis.SetLogger(logger)

			var in io.Reader = cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			transcript, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			if strings.TrimSpace(string(transcript)) == "" {
				return fmt.Errorf("transcript is empty")
			}

			scorer, err := scoring.New(cfg.Scoring, nil)
			if err != nil {
				return err
			}
			if c, ok := scorer.(interface{ Close() error }); ok {
				defer c.Close()
			}
			validator, err := analysis.NewValidator()
			if err != nil {
				return err
			}

			raw, err := scorer.Score(cmd.Context(), strings.TrimSpace(string(transcript)))
			if err != nil {
				return err
			}
			result, err := validator.Parse(cmd.Context(), raw)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), raw)
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Transcript file, one \"Q: ...\\nA: ...\" block per answer")

	return cmd
}
