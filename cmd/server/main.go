package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"commwatch/internal/credentials"
	"commwatch/internal/diff"
	"commwatch/internal/domain"
	"commwatch/internal/merge"
	"commwatch/internal/notify"
	"commwatch/internal/platform/config"
	"commwatch/internal/platform/httpserver"
	"commwatch/internal/platform/logger"
	platformredis "commwatch/internal/platform/redis"
	"commwatch/internal/provider"
	"commwatch/internal/scheduler"
	"commwatch/internal/scheduler/metrics"
	"commwatch/internal/snapshot"
	httptransport "commwatch/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Tracking logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.ProviderBaseURL == "" {
		log.Fatal("PROVIDER_BASE_URL is required")
	}
	creds := parseCredentials(cfg.Credentials)
	if len(creds) == 0 {
		log.Fatal("CREDENTIALS is required (comma-separated id:token pairs)")
	}

	m := metrics.New()

	var store snapshot.Store = snapshot.NewMemoryStore()
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatalf("postgres ping failed: %v", err)
		}
		store = snapshot.NewPostgres(db)
	} else {
		log.Printf("POSTGRES_URL not set: snapshots are in-memory and lost on restart")
	}

	var lock credentials.Lock = credentials.NewMemoryLock()
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		lock = credentials.NewRedisLock(redisClient.Client, time.Minute)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, "commwatch")
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		defer kafka.Close()
		notifier = kafka
	}

	merger := merge.New(cfg.AcceptanceFloor, cfg.DuplicateThreshold, log)
	merger.Ambiguities = m.MergeAmbiguities

	worker := &scheduler.Worker{
		Provider: provider.NewHTTP(provider.HTTPConfig{
			BaseURL:      cfg.ProviderBaseURL,
			FetchTimeout: cfg.FetchTimeout,
		}, log),
		Pool:              credentials.NewStaticPool(creds),
		Lock:              lock,
		Store:             store,
		Merger:            merger,
		Differ:            diff.New(cfg.AbsenceThreshold),
		Notifier:          notifier,
		Metrics:           m,
		Log:               log,
		RotationThreshold: cfg.RotationThreshold,
	}
	registry := scheduler.NewRegistry(worker, scheduler.Config{
		BaseBackoff:   cfg.BaseBackoff,
		MaxBackoff:    cfg.MaxBackoff,
		MaxConcurrent: cfg.MaxConcurrent,
	})

	handler := httptransport.NewHandler(registry, store, log)
	router := httptransport.NewRouter(handler, httptransport.AuthConfig{
		JWTSecret:  []byte(cfg.JWTSecret),
		APIKeyHash: []byte(cfg.APIKeyHash),
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Printf("starting commwatch on %s", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := registry.Shutdown(ctx); err != nil {
		log.Printf("scheduler shutdown: %v", err)
	}
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
}

// parseCredentials turns id:token pairs into credentials, skipping malformed
// entries.
func parseCredentials(pairs []string) []domain.Credential {
	out := make([]domain.Credential, 0, len(pairs))
	for _, p := range pairs {
		id, token, ok := strings.Cut(p, ":")
		if !ok || id == "" || token == "" {
			continue
		}
		out = append(out, domain.Credential{ID: id, Token: token})
	}
	return out
}
