// Reindex tool: rebuilds search documents for every stored post. Use it
// after the index was unavailable while posts were written.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/app"
	"github.com/BorisDmv/blog-cms/internal/config"
	"github.com/BorisDmv/blog-cms/internal/logging"
)

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "overall time limit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	// A reindex against an unreachable cluster is pointless.
	cfg.Search.HealthCheck = true

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	report, err := a.Posts.Reindex(ctx)
	if err != nil {
		logger.Fatalf("reindex failed: %v", err)
	}
	logger.WithFields(logrus.Fields{"indexed": report.Indexed, "failed": report.Failed}).Info("done")
	if report.Failed > 0 {
		a.Close()
		os.Exit(1)
	}
}
