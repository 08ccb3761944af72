// Command prepdocs is the admin CLI: upload and remove documents, run
// ingestion and maintain permissions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kailas-cloud/docassist/internal/app"
	"github.com/kailas-cloud/docassist/internal/config"
	logpkg "github.com/kailas-cloud/docassist/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup := newRootCmd(config.GetEnv(), newServices)
	err := root.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newServices loads the configuration for env and wires the application.
func newServices(ctx context.Context, env string) (*services, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, "prepdocs", cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a, err := app.New(ctx, &cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &services{
		documents:   a.Documents,
		ingestion:   a.Ingestion,
		permissions: a.Permissions,
		budget:      a.Budget,
		close: func() {
			a.Close()
			_ = logger.Sync()
		},
	}, nil
}
