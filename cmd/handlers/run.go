package handlers

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRunCmd creates the run command for a single pipeline execution.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one newsletter pipeline run",
		Long: `Execute the full generation pipeline once: fetch trending news, draft
the newsletter, repair malformed model output, persist the issue, draft the
marketing emails, and deliver them to every registered user.

Examples:
  # Run with configuration from .env / .gazette.yaml
  gazette run

  # Run with an explicit config file
  gazette run --config ./gazette.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			p, db, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := p.Run(cmd.Context())
			if err != nil {
				return fmt.Errorf("pipeline run failed: %w", err)
			}

			failed := 0
			for _, delivered := range result.Delivered {
				if delivered.Err != nil {
					failed++
				}
			}

			fmt.Printf("Newsletter %s (%q) published from %d articles\n",
				result.Newsletter.ID, result.Newsletter.Title, result.ArticleCount)
			fmt.Printf("Delivered to %d recipients (%d failed)\n", len(result.Delivered), failed)
			if result.Repaired {
				fmt.Println("Note: the model output needed a repair pass")
			}

			return nil
		},
	}

	return cmd
}
