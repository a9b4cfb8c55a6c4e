// Command ragctl drives ingestion and question answering from the shell
// against the same backends as the server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/graphrag-chat/backend/internal/app"
	"github.com/graphrag-chat/backend/internal/util"
	"github.com/graphrag-chat/backend/pkg/logger"
	"github.com/graphrag-chat/backend/pkg/logger/console"

	"github.com/spf13/cobra"
)

var (
	debug   bool
	envFile string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Ingest documents into the knowledge graph and ask questions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if envFile != "" {
				util.LoadEnv(envFile)
			} else {
				util.LoadEnv()
			}
			logger.Init(console.NewConsoleLogger(console.ConsoleLoggerParams{
				Debug: debug || util.GetEnvBool("DEBUG", false),
			}))
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment from this file instead of .env")

	root.AddCommand(newIngestCmd(), newClearCmd(), newAskCmd(), newIndexCmd())
	return root
}

// openApp builds the App from the environment. The caller closes it.
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, app.LoadConfig())
}

func closeApp(a *app.App) {
	if err := a.Close(context.Background()); err != nil {
		logger.Error("Failed to close backends", "err", err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logger.Error("Command failed", "err", err)
		stop()
		os.Exit(1)
	}
}
