package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/graphrag-chat/backend/internal/app"
	"github.com/graphrag-chat/backend/internal/queue"
	"github.com/graphrag-chat/backend/internal/server"
	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		JSON:  util.GetEnvString("LOG_FORMAT", "text") == "json",
	})
	logger.Init(consoleLogger)

	cfg := app.LoadConfig()

	var opts []app.Option
	if cfg.Server.IngestMode == app.IngestQueue {
		conn := queue.Init(cfg.Queue)
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			logger.Fatal("Failed to open channel", "err", err)
		}
		defer ch.Close()

		if err := queue.SetupQueues(ch, queue.Queues); err != nil {
			logger.Fatal("Failed to setup queues", "err", err)
		}
		opts = append(opts, app.WithPublisher(queue.NewPublisher(ch)))
	}

	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		logger.Fatal("Failed to initialize", "err", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Error("Failed to close backends", "err", err)
		}
	}()

	if err := a.Graph.EnsureIndex(ctx); err != nil {
		logger.Warn("Could not ensure the full-text index", "err", err)
	}

	if err := server.Run(ctx, a); err != nil {
		logger.Error("Server stopped", "err", err)
	}
	logger.Info("Shutdown complete")
}
