// Command server runs the casino platform API: the admin console
// backend plus the player wallet service.
package main

import (
	"context"
	"os"

	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/config"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/logging"
	"github.com/huseyinwural-lab/slot-database-012026-Ck-final-sub001/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting casino platform",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
		"env", cfg.Env,
		"currency", cfg.DefaultCurrency,
	)

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	if err := srv.Run(context.Background()); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
