// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

// Package cli implements the storegeo command line.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mobiletoly/go-storegeo/internal/config"
)

const (
	flagConfig    = "config"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

// NewRootCmd creates the storegeo root command.
func NewRootCmd(ver string) *cobra.Command {
	return NewRootCmdWithEnv(ver, os.LookupEnv)
}

// NewRootCmdWithEnv creates the root command with an explicit env lookup for tests.
func NewRootCmdWithEnv(ver string, lookupEnv func(string) (string, bool)) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "storegeo",
		Short:         "Batch replace store geography rows in PostgreSQL",
		Long:          "storegeo loads store geography records from a CSV or JSON file and replaces the matching rows of the target table in chunked, bounded-concurrency transactions.",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String(flagConfig, "", "path to a YAML config file")
	cmd.PersistentFlags().String(flagLogLevel, "", "log level: debug, info, warn, error (overrides config)")
	cmd.PersistentFlags().String(flagLogFormat, "", "log format: text or json (overrides config)")

	cmd.AddCommand(newLoadCmd(lookupEnv), newGenerateCmd(), newVersionCmd(ver))
	return cmd
}

const rootCmdExample = `  # Replace rows from a CSV file
  storegeo load --input stores.csv --database-url postgres://localhost/geo

  # Use a config file and the direct protocol
  storegeo load --config storegeo.yaml --input stores.json --protocol direct

  # Write 5000 synthetic records for a dry run
  storegeo generate --rows 5000 --output stores.csv`

// loadSettings reads the config file named by --config, applies the
// environment and the persistent flag overrides, and builds the logger.
func loadSettings(cmd *cobra.Command, lookupEnv func(string) (string, bool)) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString(flagConfig)
	cfg, err := config.Load(path, lookupEnv)
	if err != nil {
		return nil, nil, err
	}

	if cmd.Flags().Changed(flagLogLevel) {
		cfg.Logging.Level, _ = cmd.Flags().GetString(flagLogLevel)
	}
	if cmd.Flags().Changed(flagLogFormat) {
		cfg.Logging.Format, _ = cmd.Flags().GetString(flagLogFormat)
	}

	logger, err := config.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return cfg, logger, nil
}

func newVersionCmd(ver string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the storegeo version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storegeo %s\n", ver)
		},
	}
}
