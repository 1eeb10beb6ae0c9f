package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"assetra.org/internal/config"
	"assetra.org/internal/httpapi"
	"assetra.org/internal/obs"
	"assetra.org/internal/registry"
	"assetra.org/internal/store/pg"
	"assetra.org/internal/stream"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("ASSETRA_COMMIT"))

	cfg, err := config.Load(os.Getenv("ASSETRA_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	auctionCap := time.Duration(cfg.AuctionCapDays) * 24 * time.Hour

	// The registry runs on PostgreSQL when a DSN is configured and falls
	// back to the in-memory backend otherwise.
	var (
		svc registry.Service
		db  *sql.DB
	)
	if cfg.PGDSN != "" {
		store, err := pg.Open(cfg.PGDSN, pg.WithAuctionCap(auctionCap))
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		svc = store
		db = store.DB()
	} else {
		svc = registry.NewInMemory(registry.WithAuctionCap(auctionCap))
	}

	events := stream.New()

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, svc, events)
	api.SetRateLimit(cfg.RateBurst, cfg.RatePerSec)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting assetra-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
