package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Skotchmaster/inventory/internal/config"
	"github.com/Skotchmaster/inventory/internal/db"
	"github.com/Skotchmaster/inventory/internal/events"
	"github.com/Skotchmaster/inventory/internal/httpserver"
	"github.com/Skotchmaster/inventory/internal/logging"
	"github.com/Skotchmaster/inventory/internal/repo"
	"github.com/Skotchmaster/inventory/internal/search"
	"github.com/Skotchmaster/inventory/internal/service"
	"github.com/Skotchmaster/inventory/internal/tokens"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(logging.Options{Service: cfg.ServiceName, Level: cfg.LogLevel, Format: cfg.LogFormat})

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DBDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewProducer(cfg.KafkaBrokers)
	} else {
		logger.Warn("kafka disabled", "reason", "KAFKA_BROKERS is empty")
	}

	var index search.Indexer = search.Nop{}
	if cfg.ESURL != "" {
		esClient, err := search.NewClient(search.Config{
			URL:      cfg.ESURL,
			Username: cfg.ESUser,
			Password: cfg.ESPassword,
			Index:    cfg.ESIndex,
		})
		if err != nil {
			log.Fatalf("elasticsearch: %v", err)
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := esClient.Ping(pingCtx); err != nil {
			logger.Warn("elasticsearch not reachable", "url", cfg.ESURL, "error", err)
		}
		cancel()
		index = esClient
	} else {
		logger.Warn("search disabled", "reason", "ES_URL is empty")
	}

	r := &repo.GormRepo{DB: gdb}
	issuer := &tokens.Issuer{Secret: cfg.JWTSecret, TTL: cfg.TokenTTL}

	e := httpserver.New(&httpserver.Deps{
		DB:       gdb,
		Tokens:   issuer,
		Users:    &httpserver.UserHTTP{Svc: service.NewUserService(r, publisher, issuer)},
		Products: &httpserver.ProductHTTP{Svc: service.NewProductService(r, index, publisher)},
		Catalog:  &httpserver.CatalogHTTP{Svc: service.NewCatalogService(r)},
	}, logger)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db close error", "error", err)
	}

	logger.Info("shutdown complete")
}
