package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragqa/internal/config"
	"ragqa/internal/logging"
)

var (
	cfgPath  string
	logLevel string

	appCfg *config.AppConfig
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "ragqa",
	Short: "Ask questions about your own documents",
	Long: `ragqa ingests text files, PDFs and web pages into a local vector index
and answers questions with a language model grounded on the retrieved passages.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"path to YAML config file (default ./config.yaml, then ~/.config/ragqa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

// setup loads configuration and builds the logger before any subcommand runs.
func setup(_ *cobra.Command, _ []string) error {
	var err error
	if cfgPath == "" {
		appCfg, _, err = config.LoadDefault()
	} else {
		appCfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level := appCfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	l, err := logging.New(level)
	if err != nil {
		return err
	}
	logger = l
	return nil
}
