// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/rolecast/internal/auth"
	"github.com/jason-s-yu/rolecast/internal/cache"
	"github.com/jason-s-yu/rolecast/internal/config"
	"github.com/jason-s-yu/rolecast/internal/database"
	"github.com/jason-s-yu/rolecast/internal/game"
	"github.com/jason-s-yu/rolecast/internal/handlers"
	"github.com/jason-s-yu/rolecast/internal/lobby"
	"github.com/jason-s-yu/rolecast/internal/notify"
	"github.com/jason-s-yu/rolecast/internal/voting"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	hashKey := flag.String("hash-operator-key", "", "print the OPERATOR_KEY_HASH for a key and exit")
	flag.Parse()

	if *hashKey != "" {
		encoded, err := auth.HashOperatorKey(*hashKey, auth.Params)
		if err != nil {
			log.Fatalf("hash operator key: %v", err)
		}
		fmt.Println(encoded)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if n, err := database.SeedCharacters(ctx, store, database.DefaultCharacters); err != nil {
		return fmt.Errorf("seed characters: %w", err)
	} else if n > 0 {
		logger.Infof("seeded %d characters", n)
	}

	var events game.EventPublisher
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		events = cache.NewEventPublisher(rdb, cfg.QueueName)
		logger.Infof("journaling game events to redis queue %s", cfg.QueueName)
	} else {
		logger.Warn("REDIS_ADDR not set; game events are not journaled")
	}

	sessions, err := newSessions(cfg)
	if err != nil {
		return err
	}
	operator, err := auth.ParseOperatorKey(cfg.OperatorKeyHash)
	if err != nil {
		return fmt.Errorf("OPERATOR_KEY_HASH: %w", err)
	}
	if !operator.Enabled() {
		logger.Warn("OPERATOR_KEY_HASH not set; operator endpoints are disabled")
	}

	gateway := handlers.NewGateway(logger)
	sender := notify.NewSender(gateway, notify.Options{
		Attempts: cfg.DeliveryRetries,
		Backoff:  cfg.DeliveryBackoff,
		Rate:     cfg.DeliveryRate,
		Burst:    cfg.DeliveryBurst,
	}, logger)

	games := game.NewServer(game.Config{
		TeamSize:    cfg.TeamSize,
		Rounds:      cfg.NumRounds,
		Candidates:  cfg.Candidates,
		RoundWindow: cfg.RoundTime,
		Retry:       game.DefaultRetryPolicy,
	}, store, voting.NewCoordinator(store), sender, events, logger)
	defer games.Close()

	lobbies := lobby.NewManager(lobby.Config{
		MinPlayers:    cfg.MinPlayers,
		MaxPlayers:    cfg.MaxPlayers,
		TeamSize:      cfg.TeamSize,
		Window:        cfg.LobbyTimeout,
		MinCharacters: cfg.MinCharacters(),
	}, store, sender, games.StartFromLobby, logger)
	defer lobbies.Wait()

	if n, err := games.Resume(ctx); err != nil {
		return fmt.Errorf("resume games: %w", err)
	} else if n > 0 {
		logger.Infof("resumed %d games", n)
	}
	if err := lobbies.Restore(ctx); err != nil {
		return fmt.Errorf("restore lobby: %w", err)
	}

	api := &handlers.APIServer{
		Logger:   logger,
		Sessions: sessions,
		Operator: operator,
		Lobby:    lobbies,
		Games:    games,
		Store:    store,
		Gateway:  gateway,
	}
	server := &http.Server{
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	l, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	logger.Infof("listening on %s", l.Addr())

	errc := make(chan error, 1)
	go func() {
		errc <- server.Serve(l)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
	case <-ctx.Done():
		logger.Info("terminating")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore picks the entity store backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (database.EntityStore, func(), error) {
	if cfg.StoreBackend == "memory" {
		logger.Warn("using in-memory store; nothing survives a restart")
		return database.NewMemoryStore(), func() {}, nil
	}
	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	store := database.NewPostgres(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return store, pool.Close, nil
}

func newSessions(cfg *config.Config) (*auth.Sessions, error) {
	ttl, err := auth.ParseTTL(cfg.TokenExpireTime)
	if err != nil {
		return nil, err
	}
	if cfg.PrivateKeyPath != "" {
		return auth.NewSessionsFromPath(cfg.PrivateKeyPath, cfg.PublicKeyPath, ttl)
	}
	return auth.NewSessions(ttl)
}
