// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config is the service configuration read from the environment.
type Config struct {
	Port         string
	DatabaseURL  string
	StoreBackend string // postgres | memory

	RedisAddr  string // journal disabled when empty
	RedisDB    int
	QueueName  string
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration

	MinPlayers   int
	MaxPlayers   int
	TeamSize     int
	LobbyTimeout time.Duration
	RoundTime    time.Duration
	NumRounds    int
	Candidates   int

	DeliveryRetries int
	DeliveryBackoff time.Duration
	DeliveryRate    float64
	DeliveryBurst   int

	OperatorKeyHash string
	TokenExpireTime string
	PrivateKeyPath  string // ed25519 keys are generated per process when unset
	PublicKeyPath   string
	LogLevel        logrus.Level
}

// Load reads the configuration. Malformed numbers and durations are errors rather than
// silently falling back to defaults.
func Load() (*Config, error) {
	var errs []error
	c := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StoreBackend:    getEnv("STORE_BACKEND", "postgres"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisDB:         getEnvInt("REDIS_DB", 0, &errs),
		QueueName:       getEnv("HISTORIAN_QUEUE_NAME", "rolecast_events"),
		BatchSize:       getEnvInt("HISTORIAN_BATCH_SIZE", 20, &errs),
		FlushDelay:      getEnvDuration("HISTORIAN_FLUSH_INTERVAL", 500*time.Millisecond, &errs),
		Inactivity:      getEnvDuration("GAME_INACTIVITY_TIMEOUT", 10*time.Minute, &errs),
		MinPlayers:      getEnvInt("LOBBY_MIN_PLAYERS", 6, &errs),
		MaxPlayers:      getEnvInt("LOBBY_MAX_PLAYERS", 15, &errs),
		TeamSize:        getEnvInt("TEAM_SIZE", 3, &errs),
		LobbyTimeout:    getEnvDuration("LOBBY_TIMEOUT", 120*time.Second, &errs),
		RoundTime:       getEnvDuration("ROUND_TIME", 60*time.Second, &errs),
		NumRounds:       getEnvInt("NUM_ROUNDS", 5, &errs),
		Candidates:      getEnvInt("CHARACTERS_PER_VOTING", 4, &errs),
		DeliveryRetries: getEnvInt("DELIVERY_RETRIES", 3, &errs),
		DeliveryBackoff: getEnvDuration("DELIVERY_BACKOFF", 2*time.Second, &errs),
		DeliveryRate:    getEnvFloat("DELIVERY_RATE", 15, &errs),
		DeliveryBurst:   getEnvInt("DELIVERY_BURST", 20, &errs),
		OperatorKeyHash: os.Getenv("OPERATOR_KEY_HASH"),
		TokenExpireTime: getEnv("TOKEN_EXPIRE_TIME", "never"),
		PrivateKeyPath:  os.Getenv("JWT_PRIVATE_KEY_PATH"),
		PublicKeyPath:   os.Getenv("JWT_PUBLIC_KEY_PATH"),
	}
	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	c.LogLevel = level

	if c.DatabaseURL == "" {
		c.DatabaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
			getEnv("POSTGRES_USER", "postgres"),
			getEnv("POSTGRES_PASSWORD", "postgres"),
			getEnv("PG_HOST", "localhost"),
			getEnv("PG_PORT", "5432"),
			getEnv("PG_DATABASE", "rolecast"),
		)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, c.Validate()
}

// MaxRounds is the number of roles a theme defines.
const MaxRounds = 5

// Validate checks the game-shaping settings against each other.
func (c *Config) Validate() error {
	switch {
	case c.StoreBackend != "postgres" && c.StoreBackend != "memory":
		return fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", c.StoreBackend)
	case c.TeamSize < 1:
		return fmt.Errorf("TEAM_SIZE must be at least 1, got %d", c.TeamSize)
	case c.MinPlayers < c.TeamSize:
		return fmt.Errorf("LOBBY_MIN_PLAYERS (%d) must be at least TEAM_SIZE (%d)", c.MinPlayers, c.TeamSize)
	case c.MaxPlayers < c.MinPlayers:
		return fmt.Errorf("LOBBY_MAX_PLAYERS (%d) must be at least LOBBY_MIN_PLAYERS (%d)", c.MaxPlayers, c.MinPlayers)
	case c.NumRounds < 1 || c.NumRounds > MaxRounds:
		return fmt.Errorf("NUM_ROUNDS must be between 1 and %d, got %d", MaxRounds, c.NumRounds)
	case c.Candidates < 1:
		return fmt.Errorf("CHARACTERS_PER_VOTING must be at least 1, got %d", c.Candidates)
	case c.LobbyTimeout <= 0 || c.RoundTime <= 0:
		return errors.New("LOBBY_TIMEOUT and ROUND_TIME must be positive")
	case c.DeliveryRetries < 1 || c.DeliveryRate <= 0 || c.DeliveryBurst < 1:
		return errors.New("DELIVERY_RETRIES, DELIVERY_RATE and DELIVERY_BURST must be positive")
	case (c.PrivateKeyPath == "") != (c.PublicKeyPath == ""):
		return errors.New("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together")
	}
	return nil
}

// MinCharacters is the pool size required before a lobby may open.
func (c *Config) MinCharacters() int {
	return 3 * c.Candidates
}

// NewLogger builds the process logger at the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int, errs *[]error) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func getEnvFloat(key string, def float64, errs *[]error) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
