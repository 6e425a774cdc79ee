package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendSQL   = "sql"
	BackendRedis = "redis"
)

const (
	defaultPort       = 3318
	defaultRoomTTL    = 7 * 24 * time.Hour
	defaultOracleURL  = "https://api.duckduckgo.com/"
	defaultPublicBase = "http://localhost:3318"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	StoreBackend  string
	RedisURL      string
	RoomTTL       time.Duration
	OracleURL     string
	OracleSuffix  string
	PublicBaseURL string
	CreditQueue   bool
}

// LoadDotEnv reads KEY=VALUE pairs from path into the environment.
// Variables that are already set win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var roomTTL string
	var creditQueue string

	fs := flag.NewFlagSet("predictroom", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.PublicBaseURL, "base-url", "", "Public base URL used in share links")

	// Storage
	fs.StringVar(&cfg.StoreBackend, "store", "", "Store backend (sql or redis)")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.StringVar(&cfg.RedisURL, "redis", "", "Redis URL")
	fs.StringVar(&roomTTL, "room-ttl", "", "Room retention after last write (e.g. 168h)")

	// Integrations
	fs.StringVar(&cfg.OracleURL, "oracle", "", "Instant answer endpoint")
	fs.StringVar(&cfg.OracleSuffix, "oracle-suffix", "", "Words appended to every oracle query (e.g. \"result winner\")")
	fs.StringVar(&creditQueue, "credit-queue", "", "Retry failed credits through Redis (true or false)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = defaultPort
		}
	}

	cfg.StoreBackend = firstNonEmpty(cfg.StoreBackend, os.Getenv("STORE_BACKEND"), BackendSQL)
	if cfg.StoreBackend != BackendSQL && cfg.StoreBackend != BackendRedis {
		return Config{}, fmt.Errorf("unknown store backend %q (use sql or redis)", cfg.StoreBackend)
	}

	cfg.DatabaseURL = firstNonEmpty(cfg.DatabaseURL, os.Getenv("DATABASE_URL"))
	cfg.DatabaseType = firstNonEmpty(cfg.DatabaseType, os.Getenv("DATABASE_TYPE"), "sqlite")
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unknown database type %q (use sqlite or postgres)", cfg.DatabaseType)
	}
	cfg.RedisURL = firstNonEmpty(cfg.RedisURL, os.Getenv("REDIS_URL"))

	ttl, err := parseDuration(firstNonEmpty(roomTTL, os.Getenv("ROOM_TTL")), defaultRoomTTL)
	if err != nil {
		return Config{}, fmt.Errorf("invalid room TTL: %w", err)
	}
	cfg.RoomTTL = ttl

	cfg.OracleURL = firstNonEmpty(cfg.OracleURL, os.Getenv("ORACLE_URL"), defaultOracleURL)
	cfg.OracleSuffix = firstNonEmpty(cfg.OracleSuffix, os.Getenv("ORACLE_QUERY_SUFFIX"))
	cfg.PublicBaseURL = firstNonEmpty(cfg.PublicBaseURL, os.Getenv("PUBLIC_BASE_URL"), defaultPublicBase)

	if raw := firstNonEmpty(creditQueue, os.Getenv("CREDIT_QUEUE")); raw != "" {
		cfg.CreditQueue, err = strconv.ParseBool(raw)
		if err != nil {
			return Config{}, errors.New("invalid credit queue setting (use true or false)")
		}
	}

	// Required settings per backend
	if cfg.StoreBackend == BackendSQL && cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if (cfg.StoreBackend == BackendRedis || cfg.CreditQueue) && cfg.RedisURL == "" {
		return Config{}, errors.New("redis URL required (use -redis or REDIS_URL env)")
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseDuration(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.New("must be positive")
	}
	return d, nil
}
