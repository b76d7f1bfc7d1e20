// Package main is the entry point for the query translation gateway.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gateway/internal/api"
	"gateway/internal/config"
	"gateway/internal/directory"
	"gateway/internal/downstream"
	"gateway/internal/executor"
	"gateway/internal/linkbuilder"
	"gateway/internal/profile"
	"gateway/internal/queryplan"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(Execute())
}

// Execute runs the CLI and returns the process exit code, per spec.md
// §6: 0 on clean shutdown, non-zero on bind or config failure.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "gateway",
		Short:         "Query translation gateway",
		Long:          "HTTP gateway that translates a flat query DSL into PostgREST-style downstream requests.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gateway %s (%s)\n", version, commit)
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if envFile != "" {
				if err := config.LoadDotEnv(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			}
			return runServe()
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", "", "optional .env file to load before reading environment")
	return cmd
}

func runServe() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logHandlerOpts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, logHandlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, logHandlerOpts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ds := downstream.New(cfg.DownstreamURL, cfg.DownstreamTimeout, cfg.DownstreamMaxConns)
	dir := directory.New(ds, cfg.AllowAggregation)
	profiles := profile.New(ds)
	exec := executor.New(ds, logger)
	links := linkbuilder.New(cfg.BaseURL())
	pageCfg := queryplan.PageConfig{Default: cfg.PageSizeDefault, Max: cfg.PageSizeMax}

	h := api.New(dir, dir, profiles, ds, exec, links, pageCfg, logger)
	router := api.Router(h, cfg.MetricsEnabled, cfg.CORSAllowedOrigins, api.RateLimit{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down gateway")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("gateway listening", "addr", cfg.ListenAddr, "downstream", cfg.DownstreamURL, "env", cfg.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
