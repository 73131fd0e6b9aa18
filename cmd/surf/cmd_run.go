package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sanjuz-cas/SURF/internal/config"
	"github.com/sanjuz-cas/SURF/internal/llm"
	"github.com/sanjuz-cas/SURF/internal/pipeline"
	"github.com/sanjuz-cas/SURF/internal/store"
	"github.com/sanjuz-cas/SURF/internal/tools"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute the five-stage feedback pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			dispatcher, err := buildDispatcher(cfg, st)
			if err != nil {
				return err
			}

			runner := &pipeline.Runner{
				Store:       st,
				Reasoner:    llm.NewFromEnv(ctx, cfg.Provider, cfg.Model, cfg.HTTPTimeout),
				Dispatcher:  dispatcher,
				Logger:      log.Default(),
				TopItems:    cfg.TopItems,
				MaxAttempts: cfg.MaxAttempts,
			}

			result, rc := runner.Run(ctx)
			for _, line := range rc.Summary() {
				fmt.Println(line)
			}
			if !result.Success {
				return fmt.Errorf("stage %s (%s) failed: %s",
					result.FailedStep, result.FailedRole, result.Reason)
			}
			fmt.Printf("run %s completed: %d stages\n", result.RunID, rc.Len())
			return nil
		},
	}
}

// buildDispatcher assembles the closed operation set: the database
// operations plus Slack delivery with its local fallback log.
func buildDispatcher(cfg *config.Config, st *store.Store) (*tools.Dispatcher, error) {
	registry := tools.NewRegistry()
	if err := tools.RegisterDatabaseOps(registry, st); err != nil {
		return nil, err
	}
	notifier := &tools.SlackNotifier{
		WebhookURL: cfg.SlackWebhookURL,
		BotToken:   cfg.SlackBotToken,
		Channel:    cfg.SlackChannel,
		Timeout:    cfg.HTTPTimeout,
	}
	if err := tools.RegisterSlackOps(registry, notifier); err != nil {
		return nil, err
	}
	fallback, err := tools.NewFallbackLog(cfg.FallbackLogPath)
	if err != nil {
		return nil, err
	}
	return tools.NewDispatcher(registry, fallback, log.Default()), nil
}
