// Package handlers implements the gazette CLI subcommands.
package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"gazette/internal/compose"
	"gazette/internal/config"
	"gazette/internal/delivery"
	"gazette/internal/llm"
	"gazette/internal/logger"
	"gazette/internal/news"
	"gazette/internal/persistence"
	"gazette/internal/pipeline"
)

// loadConfig loads the configuration named by the --config flag and
// initializes logging from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger.Init(cfg.App.LogLevel)
	return cfg, nil
}

// buildPipeline wires a complete pipeline and the database it persists to.
// The caller owns closing the returned database.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, persistence.Database, error) {
	db, err := persistence.NewPostgresDB(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}

	chatClient, err := llm.New(cfg.AI)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	sender, err := delivery.NewSMTPSender(cfg.Email)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	p := pipeline.New(
		news.NewClient(cfg.News),
		compose.NewComposer(chatClient, cfg.News.MaxArticles),
		db.Newsletters(),
		delivery.NewDispatcher(db.Users(), sender),
		cfg.News.Country,
	)

	return p, db, nil
}
