// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/mobiletoly/go-storegeo/internal/config"
	"github.com/mobiletoly/go-storegeo/internal/database"
	"github.com/mobiletoly/go-storegeo/internal/metrics"
	"github.com/mobiletoly/go-storegeo/internal/recordio"
	"github.com/mobiletoly/go-storegeo/storegeo"
)

type loadOptions struct {
	input       string
	format      string
	createTable bool
}

func newLoadCmd(lookupEnv func(string) (string, bool)) *cobra.Command {
	var opts loadOptions
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Replace target rows with the records of a file",
		Long: `Reads every record of the input file and replaces the target table rows with
the same STORE_NBR. Records are split into chunks; each chunk is replaced in its
own transaction and at most --concurrency chunks run at a time.

A failed chunk is rolled back; chunks committed before it stay committed.
Running the same file again is safe.`,
		Example: `  storegeo load --input stores.csv
  storegeo load --input stores.json --chunk-size 1000 --concurrency 8 --metrics-addr :9102`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd, lookupEnv, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "CSV or JSON file with the records to load (required)")
	cmd.Flags().StringVar(&opts.format, "format", "", "input format: csv or json (default: from the file extension)")
	cmd.Flags().BoolVar(&opts.createTable, "create-table", false, "create the target schema and table if missing")

	// Overrides for config file values, applied only when set.
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL (overrides config and DATABASE_URL)")
	cmd.Flags().String("protocol", "", "replace protocol: staged or direct")
	cmd.Flags().Int("chunk-size", 0, "records per transaction")
	cmd.Flags().Int("concurrency", 0, "chunks replaced concurrently")
	cmd.Flags().Bool("dedupe", false, "keep the last record of a repeated STORE_NBR instead of failing")
	cmd.Flags().Bool("cancel-on-failure", false, "cancel the other chunks of a wave when one fails")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while loading")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// applyLoadFlags overrides config values with the flags the user actually set.
func applyLoadFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("database-url") {
		cfg.DatabaseURL, _ = flags.GetString("database-url")
	}
	if flags.Changed("protocol") {
		cfg.Protocol, _ = flags.GetString("protocol")
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("concurrency") {
		cfg.MaxConcurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("dedupe") {
		cfg.DuplicatePolicy = string(storegeo.DuplicateReject)
		if dedupe, _ := flags.GetBool("dedupe"); dedupe {
			cfg.DuplicatePolicy = string(storegeo.DuplicateKeepLast)
		}
	}
	if flags.Changed("cancel-on-failure") {
		cfg.CancelOnFailure, _ = flags.GetBool("cancel-on-failure")
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
}

func runLoad(cmd *cobra.Command, lookupEnv func(string) (string, bool), opts *loadOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, logger, err := loadSettings(cmd, lookupEnv)
	if err != nil {
		return err
	}
	applyLoadFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	format, err := inputFormat(opts)
	if err != nil {
		return err
	}
	records, err := recordio.ReadFile(opts.input, format)
	if err != nil {
		return err
	}
	logger.Info("Read input file", "path", opts.input, "format", format, "records", len(records))

	loaderCfg := cfg.LoaderConfig()
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		loaderCfg.StageMetrics = metrics.NewRecorder(reg)
		stop, err := serveMetrics(cfg.Metrics.Addr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	pool, err := database.NewPool(ctx, &database.PoolConfig{
		DatabaseURL:     cfg.DatabaseURL,
		AppName:         cfg.AppName,
		MaxConns:        cfg.PoolMaxConns(),
		MinConns:        cfg.Pool.MinConns,
		MaxConnLifetime: cfg.Pool.MaxConnLifetime,
		MaxConnIdleTime: cfg.Pool.MaxConnIdleTime,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if opts.createTable {
		if err := database.EnsureTable(ctx, pool, cfg.Table, logger); err != nil {
			return err
		}
	}

	loader, err := storegeo.NewLoader(storegeo.NewPgxPool(pool), loaderCfg, logger)
	if err != nil {
		return err
	}
	defer loader.Close()

	result, err := loader.ReplaceAll(ctx, records)
	if err != nil {
		return describeLoadError(err)
	}

	printResult(cmd.OutOrStdout(), cfg, result)
	return nil
}

func inputFormat(opts *loadOptions) (recordio.Format, error) {
	if opts.format != "" {
		return recordio.ParseFormat(opts.format)
	}
	return recordio.FormatFromPath(opts.input)
}

// describeLoadError adds the failing chunk and a retry hint to a batch error.
func describeLoadError(err error) error {
	var chunkErr *storegeo.ChunkError
	if !errors.As(err, &chunkErr) {
		return err
	}
	hint := "fix the data and run the load again"
	if chunkErr.Class() == storegeo.ClassTransient {
		hint = "the failure looks transient, running the load again is safe"
	}
	return fmt.Errorf("load failed at chunk %d (%d records, stage %s, %s): %w; %s",
		chunkErr.Index, chunkErr.Rows, chunkErr.Stage, chunkErr.Class(), err, hint)
}

func printResult(w io.Writer, cfg *config.Config, result *storegeo.BatchResult) {
	fmt.Fprintf(w, "Batch %s: replaced %d rows in %s\n", result.BatchID, result.Rows, cfg.Table)
	fmt.Fprintf(w, "  chunks: %d, waves: %d, protocol: %s, elapsed: %s\n",
		result.Chunks, result.Waves, cfg.Protocol, result.Elapsed.Round(time.Millisecond))
	if result.DuplicatesDropped > 0 {
		fmt.Fprintf(w, "  duplicate records dropped: %d\n", result.DuplicatesDropped)
	}
}

// serveMetrics starts the /metrics endpoint and returns a function that stops it.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on metrics address %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	logger.Info("Serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}, nil
}
