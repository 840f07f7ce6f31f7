// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mobiletoly/go-storegeo/internal/recordio"
)

type generateOptions struct {
	rows       int
	firstStore int64
	output     string
	format     string
	seed       uint64
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a file of synthetic store geography records",
		Example: `  storegeo generate --rows 5000 --output stores.csv
  storegeo generate --rows 100 --first-store 9000 --output stores.json --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, &opts)
		},
	}

	cmd.Flags().IntVar(&opts.rows, "rows", 1000, "number of records to generate")
	cmd.Flags().Int64Var(&opts.firstStore, "first-store", 1, "store number of the first record")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "file to write (required)")
	cmd.Flags().StringVar(&opts.format, "format", "", "output format: csv or json (default: from the file extension)")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "random seed")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions) error {
	if opts.rows < 0 {
		return fmt.Errorf("rows must be >= 0, got %d", opts.rows)
	}
	if opts.firstStore <= 0 {
		return fmt.Errorf("first-store must be positive, got %d", opts.firstStore)
	}

	var (
		format recordio.Format
		err    error
	)
	if opts.format != "" {
		format, err = recordio.ParseFormat(opts.format)
	} else {
		format, err = recordio.FormatFromPath(opts.output)
	}
	if err != nil {
		return err
	}

	records := recordio.Generate(opts.rows, opts.firstStore, opts.seed)
	if err := recordio.WriteFile(opts.output, format, records); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n", len(records), opts.output)
	return nil
}
