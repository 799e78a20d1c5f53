package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angeloszaimis/link-unwrapper/config"
	"github.com/angeloszaimis/link-unwrapper/internal/app"
	"github.com/angeloszaimis/link-unwrapper/internal/httpserver"
	"github.com/angeloszaimis/link-unwrapper/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("err", err))
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("Failed to initialize application", slog.Any("err", err))
		os.Exit(1)
	}
	a.Start(ctx)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(a), serverTimeouts(cfg.Server))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Listening", slog.String("addr", srv.Addr()))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func serverTimeouts(sc config.ServerConfig) httpserver.Timeouts {
	return httpserver.Timeouts{
		Read:     config.Duration(sc.ReadTimeout),
		Write:    config.Duration(sc.WriteTimeout),
		Idle:     config.Duration(sc.IdleTimeout),
		Shutdown: config.Duration(sc.ShutdownTimeout),
	}
}
