// Package main provides the CLI entry point for makobench, a
// wire-level read-modify-write benchmark for Redis-protocol
// key-value servers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Jiyang-Wu/makobench/bench"
	"github.com/Jiyang-Wu/makobench/config"
	"github.com/Jiyang-Wu/makobench/report"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	root := newRootCmd(logger)
	if err := root.Execute(); err != nil {
		logger.Error("benchmark failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "makobench",
		Short: "Wire-level RMW benchmark for Redis-protocol servers",
		Long: `Makobench speaks the Redis serialization protocol directly over a
raw TCP stream, drives a read-modify-write counter loop against one server,
and verifies the final counter value over a fresh connection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(logger))

	return root
}

func newRunCmd(logger *slog.Logger) *cobra.Command {
	var (
		host       string
		port       int
		key        string
		ops        int
		configPath string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the read-modify-write counter benchmark",
		Long: `Initialize the counter key to "0", run the timed GET/increment/SET
loop, and verify the stored value against the acknowledged increment count.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env file is fine; defaults cover everything.
			_ = godotenv.Load()

			cfg, err := resolveConfig(cmd, configPath, host, port, key, ops)
			if err != nil {
				return err
			}

			return runBenchmark(cmd.Context(), logger, cfg, outputJSON)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&host, "host", config.DefaultHost,
		"Target server host")
	flags.IntVar(&port, "port", config.DefaultPort,
		"Target server port")
	flags.StringVar(&key, "key", config.DefaultKey,
		"Counter key name")
	flags.IntVar(&ops, "ops", config.DefaultOps,
		"Number of RMW iterations")
	flags.StringVar(&configPath, "config", "",
		"Path to a YAML config file")
	flags.BoolVar(&outputJSON, "json", false,
		"Output the result as JSON instead of text")

	return cmd
}

// resolveConfig layers the sources: defaults, then the config file,
// then environment overrides, then explicitly set flags.
func resolveConfig(
	cmd *cobra.Command,
	configPath string,
	host string, port int,
	key string, ops int,
) (config.Config, error) {
	cfg := config.Default()

	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if err := cfg.FromEnv(); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("key") {
		cfg.Key = key
	}
	if flags.Changed("ops") {
		cfg.Ops = ops
	}

	if err := cfg.Verify(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	outputJSON bool,
) error {
	logger.InfoContext(ctx, "starting benchmark",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("key", cfg.Key),
		slog.Int("ops", cfg.Ops),
	)

	runner := bench.NewRunner(cfg.Host, cfg.Port, cfg.Key, cfg.Ops, logger)

	result, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("run benchmark: %w", err)
	}

	if outputJSON {
		if err := report.GenerateJSON(os.Stdout, result); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else {
		if err := report.Generate(os.Stdout, result); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.Int("success_count", result.SuccessCount),
		slog.String("verification", result.Verification),
	)

	return nil
}
