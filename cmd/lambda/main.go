// Command lambda serves the API from AWS Lambda behind an API Gateway proxy
// integration. Configuration comes from the same LT_* variables as the
// standalone server; database.driver should be postgres, since the Lambda
// filesystem is not persistent.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/sakif/life-tracker/internal/config"
	"github.com/sakif/life-tracker/internal/lambdaproxy"
	"github.com/sakif/life-tracker/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", slog.String("error", err.Error()))
	}

	cfg, err := config.Load(os.Getenv("LT_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// CloudWatch indexes JSON lines.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	if cfg.Database.Driver != "postgres" {
		logger.Warn("running on Lambda without postgres; data will not survive cold starts",
			slog.String("driver", cfg.Database.Driver))
	}

	// The connection is reused across warm invocations and closed with the
	// execution environment.
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Without a long-running process there is no sweeper; expired
	// idempotency keys are cleared once per cold start instead.
	if err := srv.PurgeExpired(context.Background()); err != nil {
		logger.Error("failed to purge idempotency keys", slog.String("error", err.Error()))
	}

	lambda.Start(lambdaproxy.New(srv.Handler()).Handle)
}
