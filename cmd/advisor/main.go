package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/worldsun-app/coopeartion-project/internal/config"
	"github.com/worldsun-app/coopeartion-project/internal/service"
)

func main() {
	var configPath string
	var filterExpr string

	rootCmd := &cobra.Command{
		Use:   "advisor",
		Short: "customer profile and product knowledge advisor",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run http server, telegram bot and scheduled jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "build the product catalog once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			c, err := buildCore(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			snap, err := c.holder.Rebuild(ctx)
			if err != nil {
				return fmt.Errorf("build catalog: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, e := range snap.Entries {
				fmt.Fprintf(out, "%s\t%s\n", e.CleanName, e.StorageKey)
			}
			fmt.Fprintf(out, "total=%d indexed=%d\n", len(snap.Entries), snap.Index.Len())
			return nil
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "answer one question from the product knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			c, err := buildCore(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()
			if _, err := c.holder.Rebuild(ctx); err != nil {
				logutil.GetLogger(ctx).Warn("catalog unavailable, answering unscoped", zap.Error(err))
			}
			advisor := service.NewAdvisorService(c.manager, c.planner, nil, nil, service.AdvisorConfig{Language: cfg.AnswerLang})
			reply := advisor.AnswerFromKnowledgeBase(ctx, strings.Join(args, " "), filterExpr, "")
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			if reply.Status == service.StatusFailed {
				return fmt.Errorf("answer failed")
			}
			return nil
		},
	}
	askCmd.Flags().StringVar(&filterExpr, "filter", "", "comma separated product names to scope the answer")

	rootCmd.AddCommand(runCmd, catalogCmd, askCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}
