// cmd/historian/main.go pops journaled game events from the Redis queue and persists them to Postgres.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/rolecast/internal/cache"
	"github.com/jason-s-yu/rolecast/internal/config"
	"github.com/jason-s-yu/rolecast/internal/database"
	"github.com/jason-s-yu/rolecast/internal/historian"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatal(err)
	}
	defer rdb.Close()

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal(err)
	}
	defer pool.Close()
	store := database.NewPostgres(pool)
	if err := store.Migrate(ctx); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	hcfg := historian.DefaultConfig()
	hcfg.BatchSize = cfg.BatchSize
	hcfg.FlushInterval = cfg.FlushDelay
	hcfg.Inactivity = cfg.Inactivity

	svc := historian.New(historian.NewRedisQueue(rdb, cfg.QueueName), store, hcfg, logger)
	svc.OnStall = func(gameID uuid.UUID, idle time.Duration) {
		logger.WithField("game_id", gameID).Warnf("no game events for %s", idle.Round(time.Second))
	}

	logger.Infof("historian consuming %s", cfg.QueueName)
	svc.Run(ctx)
}
