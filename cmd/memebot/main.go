// Package main is the memebot CLI: search and feed ingestion plus periodic
// classification of stored coins.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vladymirovich/MemeBot/internal/config"
	"github.com/Vladymirovich/MemeBot/internal/ingestion"
	"github.com/Vladymirovich/MemeBot/internal/orchestrator"
)

var (
	configPath  string
	logLevel    string
	metricsAddr string

	listenWindow time.Duration
	classify     bool
	watchFlow    string
	watchCron    string
)

var rootCmd = &cobra.Command{
	Use:   "memebot",
	Short: "Solana meme token ingestion and classification",
	Long: `memebot collects token pairs from the DexScreener search API and new
tokens from the PumpPortal feed into a local store, then screens every stored
coin through risk, blacklist, threshold and synthetic-volume gates.`,
	SilenceUsage: true,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Ingest one search query, then classify",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCycle(cmd.Context(), orchestrator.ModeSearch, queryArg(args))
	},
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen to the new-token feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCycle(cmd.Context(), orchestrator.ModeListen, "")
	},
}

var bothCmd = &cobra.Command{
	Use:   "both [query]",
	Short: "Run search and feed ingestion concurrently, then classify",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCycle(cmd.Context(), orchestrator.ModeBoth, queryArg(args))
	},
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Run one classification pass over stored coins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runClassify(cmd.Context())
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [query]",
	Short: "Run cycles on a cron schedule until interrupted",
	Example: `  memebot watch --flow both --cron "*/15 * * * *" BONK/SOL
  memebot watch --flow listen --window 10m --classify`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := orchestrator.ParseMode(watchFlow)
		if err != nil {
			return err
		}
		return runWatch(cmd.Context(), mode, queryArg(args))
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out, err := cfg.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Override metrics.addr, e.g. :9090")

	for _, cmd := range []*cobra.Command{listenCmd, bothCmd, watchCmd} {
		cmd.Flags().DurationVar(&listenWindow, "window", 0, "Stop listening after this long (0: config listener.window)")
	}
	listenCmd.Flags().BoolVar(&classify, "classify", false, "Run a classification pass after listening")
	watchCmd.Flags().BoolVar(&classify, "classify", false, "Classify after listen-only cycles")
	watchCmd.Flags().StringVar(&watchFlow, "flow", string(orchestrator.ModeSearch), "Flow per cycle: search, listen or both")
	watchCmd.Flags().StringVar(&watchCron, "cron", "", "Cron spec (default: config schedule.cron)")

	rootCmd.AddCommand(searchCmd, listenCmd, bothCmd, classifyCmd, watchCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func queryArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return ""
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if listenWindow > 0 {
		cfg.Listener.Window = listenWindow
	}
	return cfg, nil
}

func runCycle(ctx context.Context, mode orchestrator.Mode, query string) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if query == "" {
		query = a.cfg.Search.Query
	}
	res, err := a.orchestrator.Run(ctx, mode, query)
	a.logResult(res)
	return ignoreCancel(err)
}

func runClassify(ctx context.Context) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.orchestrator.Classify(ctx)
	return ignoreCancel(err)
}

func runWatch(ctx context.Context, mode orchestrator.Mode, query string) error {
	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if query == "" {
		query = a.cfg.Search.Query
	}
	spec := watchCron
	if spec == "" {
		spec = a.cfg.Schedule.Cron
	}
	return a.orchestrator.Schedule(ctx, spec, mode, query)
}

// ignoreCancel treats an interrupt as a clean exit unless an ingest task had
// already failed before it.
func ignoreCancel(err error) error {
	if !errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, ingestion.ErrIngestFailed) || errors.Is(err, ingestion.ErrFeedDisconnected) {
		return err
	}
	return nil
}
