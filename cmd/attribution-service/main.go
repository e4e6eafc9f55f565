package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roamsim/attribution-service/internal/api"
	"github.com/roamsim/attribution-service/internal/api/middleware"
	"github.com/roamsim/attribution-service/internal/attribution"
	"github.com/roamsim/attribution-service/internal/config"
	"github.com/roamsim/attribution-service/internal/referral"
	"github.com/roamsim/attribution-service/internal/repository"
	"github.com/roamsim/attribution-service/internal/storage"
	"github.com/roamsim/attribution-service/internal/tracker"
	"github.com/roamsim/attribution-service/pkg/db"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// load DB config from env
	dbCfg, _ := db.LoadPostgresConfig()

	conn, err := db.NewPostgresConnection(dbCfg)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer conn.Close()

	// per-visitor attribution state: redis, or in-process memory when no
	// redis is configured (state then dies with the process)
	var stores storage.Provider
	if cfg.RedisURL != "" {
		client, err := storage.Connect(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connect: %v", err)
		}
		defer client.Close()
		stores = storage.NewRedisProvider(client)
	} else {
		log.Println("no REDIS_URL set, using in-memory attribution state")
		stores = storage.NewMemoryProvider()
	}

	clicks := repository.NewClickRepo(conn)

	dispatcher := tracker.NewDispatcher(clicks, cfg.TrackerWorkers, cfg.TrackerQueueSize)
	defer dispatcher.Close()

	engine := attribution.NewEngine(attribution.EngineConfig{
		AttributionWindowDays: cfg.AttributionWindowDays,
		Tracker:               dispatcher,
		Referrals:             referral.NewClient(cfg.ReferralAPIURL),
	})

	handler := api.NewRouter(api.Deps{
		Engine: engine,
		Stores: stores,
		Clicks: clicks,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Auth([]byte(cfg.JWTSecret)))
	r.Mount("/", handler)

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		// we received an interrupt signal, shut down.
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	log.Printf("starting attribution-service on :%d", cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("listen: %s\n", err)
	}

	<-idleConnsClosed
	log.Println("server stopped")
}
