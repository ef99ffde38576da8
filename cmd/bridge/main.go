package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/voximity/omegga-discord-lite/internal/config"
	"github.com/voximity/omegga-discord-lite/internal/factory"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "omegga-discord-lite",
		Short: "Chat and presence bridge between a game server and Discord",
		Long: `omegga-discord-lite relays chat, join/leave, and verification traffic
between a game server's plugin host (over stdin/stdout RPC) and a Discord
channel. It is normally launched by the host itself.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to the config file (env: ODL_CONFIG)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bridge (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(resolveConfigPath(configPath))
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the config file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.Load(resolveConfigPath(configPath))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "config ok")
			return nil
		},
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)

	// Bare invocation runs the bridge, which is how the host launches it.
	rootCmd.RunE = runCmd.RunE

	return rootCmd
}

func resolveConfigPath(flagValue string) string {
	if env := os.Getenv("ODL_CONFIG"); env != "" && flagValue == "config.json" {
		return env
	}
	return flagValue
}

func run(configPath string) error {
	// Stdout carries the host RPC stream, so logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return err
	}

	app, err := factory.New(factory.Config{
		Config:  cfg,
		Logger:  logger,
		HostIn:  os.Stdin,
		HostOut: os.Stdout,
	})
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.StatusAddr != "" {
		go app.Status.Serve(cfg.StatusAddr)
		logger.Info("status endpoint listening", slog.String("addr", cfg.StatusAddr))
	}

	// The RPC read loop feeds the host-side dispatcher; the chat loop runs
	// independently. Neither blocks the other.
	errs := make(chan error, 3)
	go func() { errs <- app.Host.Run(ctx) }()
	go func() { errs <- app.Relay.RunHostLoop(ctx) }()
	go func() {
		// The chat connection failing is fatal to the chat loop only; the
		// host loop keeps relaying what it can.
		if err := app.Relay.RunChatLoop(ctx); err != nil && ctx.Err() == nil {
			logger.Error("chat loop terminated", slog.String("error", err.Error()))
		}
	}()

	logger.Info("bridge started")

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errs:
		if err != nil && ctx.Err() == nil {
			logger.Error("bridge terminated", slog.String("error", err.Error()))
			return err
		}
		return nil
	}
}
