package main

import (
	"github.com/spf13/cobra"

	"motorciclye/partsworker/config"
	"motorciclye/partsworker/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "partsworker",
		Short:         "Crawls motorcycle parts shops and publishes records to a message broker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringP("config", "c", "config.yml", "path to the configuration file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newCrawlCmd(),
		newResendCmd(),
		newSitesCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig resolves the configuration for one command invocation and
// initializes logging from it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	logger.Init(logger.Options{
		Level:       cfg.Logging.Level,
		Environment: cfg.Environment,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
	})
	return cfg, nil
}
