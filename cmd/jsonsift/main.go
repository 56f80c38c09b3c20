package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsonsift/jsonsift/internal/api"
	"github.com/jsonsift/jsonsift/internal/batch"
	"github.com/jsonsift/jsonsift/internal/config"
	"github.com/jsonsift/jsonsift/internal/extract"
	"github.com/jsonsift/jsonsift/internal/logging"
	"github.com/jsonsift/jsonsift/internal/server"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	envFile    string
	logFile    string
	verbose    bool

	logger     *slog.Logger
	loggerFile *os.File
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jsonsift",
		Short: "jsonsift - recover structured JSON from LLM output",
		Long: `jsonsift recovers structured JSON values from unreliable LLM output
using a layered strategy: direct parse, labeled and generic code fences,
balanced delimiter scanning, and heuristic cleanup. It also ships the
provider plumbing to obtain that output: OpenRouter, LiteLLM gateways
and Ollama via their OpenAI-compatible endpoints.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(envFile); err != nil {
				return err
			}

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			var err error
			logger, loggerFile, err = logging.Setup(level, logFile)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if loggerFile != nil {
				_ = loggerFile.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to environment file")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newVerifyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newExtractCmd() *cobra.Command {
	var showRaw, showStrategy bool

	cmd := &cobra.Command{
		Use:   "extract [file]",
		Short: "Extract a JSON value from text on stdin or in a file",
		Long: `Extract reads raw model output from stdin or a file and prints the
recovered JSON value. Exits with status 1 when no value is recoverable.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			text, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			res, found := extract.Extract(string(text))
			if !found {
				return fmt.Errorf("no structured value found")
			}

			if showStrategy {
				fmt.Fprintln(os.Stderr, "strategy:", res.Strategy)
			}
			if showRaw {
				fmt.Println(res.Raw)
				return nil
			}
			return printValue(res.Value)
		},
	}

	cmd.Flags().BoolVar(&showRaw, "raw", false, "Print the matched substring instead of the re-marshaled value")
	cmd.Flags().BoolVar(&showStrategy, "strategy", false, "Print the winning strategy to stderr")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var inPath, outPath string
	var concurrency int
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run extraction over a JSONL file of model responses",
		Long: `Batch reads JSONL records ({"id": ..., "text": ...}) and writes one
outcome per record ({"id", "found", "strategy", "value"}), preserving
input order. Records without an id are assigned one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := os.Stdin
			if inPath != "" && inPath != "-" {
				f, err := os.Open(inPath)
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer func() { _ = f.Close() }()
				in = f
			}

			out := os.Stdout
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer func() { _ = f.Close() }()
				out = f
			}

			// Progress output would interleave with results on stdout
			showProgress := !noProgress && out != os.Stdout

			runner := batch.NewRunner(concurrency, showProgress, logger)
			stats, err := runner.Run(cmd.Context(), in, out)
			if err != nil {
				return err
			}

			logger.Info("Batch complete",
				"total", stats.Total,
				"found", stats.Found,
				"absent", stats.Absent,
				"invalid", stats.Invalid)
			return nil
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "-", "Input JSONL file (- for stdin)")
	cmd.Flags().StringVar(&outPath, "out", "-", "Output JSONL file (- for stdout)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "Number of extraction workers")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the extraction HTTP service",
		Long: `Serve exposes POST /api/extract, POST /api/complete, GET /health and
GET /metrics. The completion endpoint uses the provider configured in
the config file and environment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, secrets, err := config.Load(configPath)
			if err != nil {
				return err
			}

			manager := api.NewManager(cfg.ResolveBaseURL(), cfg.Model, logger)
			defer manager.CloseAll()
			client := manager.Get(secrets.APIKey)

			srv := server.New(cfg.Server, client, logger)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("Shutting down", "signal", sig.String())
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown failed: %w", err)
			}
			return nil
		},
	}
	return cmd
}

func newAskCmd() *cobra.Command {
	var system string

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send a prompt to the configured provider and extract the JSON reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeClient, err := buildClient()
			if err != nil {
				return err
			}
			defer closeClient()

			var messages []api.Message
			if system != "" {
				messages = append(messages, api.Message{Role: "system", Content: system})
			}
			messages = append(messages, api.Message{Role: "user", Content: args[0]})

			res, raw, found, err := client.ExtractCompletion(cmd.Context(), messages)
			if err != nil {
				return err
			}
			if !found {
				logger.Warn("No structured value in response, printing raw text")
				fmt.Println(raw)
				return nil
			}

			logger.Debug("Extraction succeeded", "strategy", res.Strategy)
			return printValue(res.Value)
		},
	}

	cmd.Flags().StringVar(&system, "system", "", "Optional system prompt")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify provider credentials and connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closeClient, err := buildClient()
			if err != nil {
				return err
			}
			defer closeClient()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			if err := client.VerifyKey(ctx); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

// buildClient loads configuration and returns a ready provider client plus
// its teardown func
func buildClient() (*api.Client, func(), error) {
	cfg, secrets, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	manager := api.NewManager(cfg.ResolveBaseURL(), cfg.Model, logger)
	client := manager.Get(secrets.APIKey)
	return client, manager.CloseAll, nil
}

func printValue(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
