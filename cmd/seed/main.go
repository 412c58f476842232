// Seed tool: loads the sample posts and makes sure an admin account exists.
// Posts go through the post service so the search index is filled too.
package main

import (
	"context"
	"flag"

	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/app"
	"github.com/BorisDmv/blog-cms/internal/config"
	"github.com/BorisDmv/blog-cms/internal/logging"
)

func main() {
	var opts options
	flag.BoolVar(&opts.reset, "reset", false, "delete every existing post first")
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@gmail.com", "admin account email")
	flag.StringVar(&opts.adminPassword, "admin-password", "admin123", "admin account password")
	flag.StringVar(&opts.adminUsername, "admin-username", "adminaja", "admin account username")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	if err := seed(ctx, a.Posts, a.Auth, opts, logging.Component(logger, "seed")); err != nil {
		logger.Fatalf("seed failed: %v", err)
	}
}
