package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"hearth/internal/audit/export"
	"hearth/internal/crypto/fieldcipher"
	"hearth/internal/crypto/masterkey"
	"hearth/internal/directory"
	"hearth/internal/gateway"
	"hearth/internal/household/service"
	"hearth/internal/jwtauth"
	"hearth/internal/platform/config"
	"hearth/internal/platform/httpserver"
	"hearth/internal/platform/logger"
	"hearth/internal/platform/metrics"
	platformredis "hearth/internal/platform/redis"
	"hearth/internal/tenantstore"
	transporthttp "hearth/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	key, err := masterkey.LoadOrGenerate(cfg.MasterKeyPath)
	if err != nil {
		log.Error("master key unavailable", "error", err)
		os.Exit(1)
	}
	fieldKey, err := key.FieldEncryptionKey()
	if err != nil {
		log.Error("field key derivation failed", "error", err)
		os.Exit(1)
	}
	cipher, err := fieldcipher.New(fieldKey, log, m)
	if err != nil {
		log.Error("field cipher init failed", "error", err)
		os.Exit(1)
	}
	gw := gateway.New(cipher)

	tenantDB, err := sql.Open("postgres", cfg.TenantDSN)
	if err != nil {
		log.Error("tenant database open failed", "error", err)
		os.Exit(1)
	}
	defer tenantDB.Close()
	if err := tenantDB.PingContext(ctx); err != nil {
		log.Error("tenant database unreachable", "error", err)
		os.Exit(1)
	}
	registry := tenantstore.NewRegistry(tenantDB, log, m)

	dirClient, err := directory.NewPostgres(ctx, cfg.DirectoryDSN)
	if err != nil {
		log.Error("directory connection failed", "error", err)
		os.Exit(1)
	}
	defer dirClient.Close()

	var dir directory.Directory = dirClient
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		dir = directory.NewCached(dirClient, redisClient, config.DirectoryCacheTTL, log)
		log.Info("directory cache enabled", "ttl", config.DirectoryCacheTTL.String())
	}

	var exporter service.Exporter
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := export.NewPublisher(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("audit export init failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := publisher.Close(flushCtx); err != nil {
				log.Warn("audit export shutdown incomplete", "error", err)
			}
		}()
		exporter = publisher
		log.Info("audit export enabled", "topic", cfg.AuditTopic)
	}

	svc := service.New(service.NewPostgresResolver(registry, gw, m), exporter, log, m)
	tokens := jwtauth.New(cfg.JWTSigningKey, "hearth")

	router := transporthttp.NewRouter(transporthttp.RouterDeps{
		Logger:    log,
		Metrics:   m,
		Validator: tokens,
		Directory: dir,
		Service:   svc,
	})
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting hearth", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
