package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Hallucination-Check-Platform/pkg/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
}

// appConfig is loaded before any subcommand runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "hallucheck",
	Short: "Retrieval-confidence hallucination checks for RAG answers",
	Long: `hallucheck scores questions against a knowledge corpus with BM25,
calibrates a hallucination threshold from covered and uncovered questions,
tags generated answers and evaluates the predictions against ground truth.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(rootFlags.configPath)
		if err != nil {
			return err
		}
		if rootFlags.logLevel != "" {
			cfg.Logging.Level = rootFlags.logLevel
		}
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		appConfig = cfg
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to YAML config file (defaults plus HC_* environment when empty)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(calibrateCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(labelCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
