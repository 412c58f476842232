package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/app"
	"github.com/BorisDmv/blog-cms/internal/config"
	"github.com/BorisDmv/blog-cms/internal/handlers"
	"github.com/BorisDmv/blog-cms/internal/logging"
	appmiddleware "github.com/BorisDmv/blog-cms/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	a, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer a.Close()

	var searchPinger handlers.Pinger
	if a.Index != nil {
		searchPinger = a.Index
	}

	// 5 login attempts per minute per IP
	loginLimiter := appmiddleware.NewRateLimiter(5, time.Minute)
	defer loginLimiter.Stop()

	router := handlers.NewRouter(handlers.RouterConfig{
		Logger:             logger,
		Posts:              a.Posts,
		Auth:               a.Auth,
		Store:              a.Store,
		Search:             searchPinger,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
		AdminToken:         cfg.AuthToken,
		PostsRequireAuth:   cfg.PostsRequireAuth,
		LoginLimiter:       loginLimiter,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown error")
	}
	logger.Info("server stopped")
}
