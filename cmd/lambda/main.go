// Command lambda serves the redirect profiles from AWS Lambda behind an API
// Gateway proxy integration. Configuration is read exactly like the HTTP
// server's; set server.public_base_url when the API stage prefixes paths.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/angeloszaimis/link-unwrapper/config"
	"github.com/angeloszaimis/link-unwrapper/internal/app"
	"github.com/angeloszaimis/link-unwrapper/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment)

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("Failed to initialize application", slog.Any("err", err))
		os.Exit(1)
	}
	// Throttling belongs to the gateway here; only the collector runs.
	a.Collector.Start(context.Background())

	lambda.Start(a.APIGateway().Handle)
}
