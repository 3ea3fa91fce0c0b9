package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"model-gateway/internal/audit"
	"model-gateway/internal/config"
	"model-gateway/internal/database"
	"model-gateway/internal/gateway"
	"model-gateway/internal/gateway/auth"
	"model-gateway/internal/gateway/cache"
	"model-gateway/internal/gateway/ratelimit"
	"model-gateway/internal/gateway/registry"
	"model-gateway/internal/middleware"
	"model-gateway/internal/server"
	"model-gateway/internal/store"
)

const sweepInterval = time.Hour

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg := config.Load()

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	sink := audit.NewLogger(db, db, log)
	decisions := cache.New()

	perms, err := registry.New(db, db, decisions, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build permission registry")
	}

	limiter := ratelimit.New(func() int { return gateway.RequestLimit(db) })
	validator := auth.NewValidator(db, sink, log)
	records := store.NewSQLite(db.Handle())

	mediator := gateway.NewMediator(db, perms, validator, limiter, sink, records, gateway.Info{
		Version:  cfg.Application.Version,
		Database: databaseName(cfg.Database.Path),
		Language: cfg.Application.Language,
		Timezone: cfg.Application.Timezone,
	}, log)

	srv := server.New(cfg, mediator, log,
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logging(log),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := audit.NewSweeper(sink, sweepInterval, log)
	go sweeper.Start(ctx)

	go func() {
		log.WithFields(logrus.Fields{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	log.Info("server exited")
}

func databaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
