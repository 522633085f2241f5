package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spacesedan/commentflow/config"
	"github.com/spacesedan/commentflow/internal/app"
	"github.com/spacesedan/commentflow/internal/logging"
	"github.com/spacesedan/commentflow/internal/server"
)

var handler *server.LambdaHandler

// init runs once per Lambda cold start
func init() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("[Lambda] Invalid configuration", slog.String("error", err.Error()))
		panic(err)
	}
	logging.InitLogger(cfg.LogLevel)

	service, _ := app.NewCommentService(cfg, nil)
	handler = server.NewLambdaHandler(service)

	slog.Info("[Lambda] Initialization complete",
		slog.String("environment", cfg.AppEnv),
		slog.Bool("sentiment", cfg.SentimentEnabled),
		slog.String("backend", cfg.SentimentBackend))
}

func main() {
	lambda.Start(handler.Handle)
}
