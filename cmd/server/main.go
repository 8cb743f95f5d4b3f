// Package main runs the GoChat server: an in-memory, multi-room chat
// broadcaster served over WebSocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tyrowin/gochat/internal/chat"
	"github.com/Tyrowin/gochat/internal/config"
	"github.com/Tyrowin/gochat/internal/observability"
	"github.com/Tyrowin/gochat/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "gochat",
		Short: "Multi-room WebSocket chat server",
		Long: `gochat serves chat rooms over WebSocket at /chat/{room}?username=NAME.
Rooms are created on first join and keep their history in memory until
the process exits. Settings come from an optional YAML file and from
GOCHAT_* environment variables.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	registry := chat.NewRegistry(logger, chat.WithHistoryLimit(cfg.Chat.HistoryLimit))
	dispatcher := server.NewDispatcher(registry, cfg.WebSocket, logger)
	httpServer := server.CreateServer(cfg.Server, server.SetupRoutes(dispatcher, logger))

	logger.Info("starting GoChat server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Strings("allowed_origins", cfg.WebSocket.AllowedOrigins),
		zap.Int("history_limit", cfg.Chat.HistoryLimit),
	)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.StartServer(httpServer, logger)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	httpErr := server.ShutdownServer(shutdownCtx, httpServer, logger)
	sessionErr := dispatcher.Shutdown(shutdownCtx)
	if err := errors.Join(httpErr, sessionErr); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
