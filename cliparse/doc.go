// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	_ = cliparse.LoadDotEnv(".env")
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - StoreBackend: "sql" or "redis" (default: sql)
  - DatabaseURL: SQL connection string (required for sql)
  - DatabaseType: "sqlite" or "postgres" (default: sqlite)
  - RedisURL: redis:// URL (required for redis or the credit queue)
  - RoomTTL: How long a room lives after its last write (default: 168h)
  - OracleURL: Instant answer endpoint (default: DuckDuckGo)
  - OracleSuffix: Words appended to every oracle query (default: none)
  - PublicBaseURL: Prefix for share links (default: http://localhost:3318)
  - CreditQueue: Retry failed leaderboard credits through asynq

# CLI Flags

	-p              Server port
	-store          Store backend
	-d              Database URL
	-t              Database type
	-redis          Redis URL
	-room-ttl       Room TTL
	-oracle         Oracle URL
	-oracle-suffix  Oracle query suffix
	-base-url       Public base URL
	-credit-queue   Enable the credit retry queue

# Environment Variables

Flags fall back to environment variables:

	PORT            → -p
	STORE_BACKEND   → -store
	DATABASE_URL    → -d
	DATABASE_TYPE   → -t
	REDIS_URL       → -redis
	ROOM_TTL        → -room-ttl
	ORACLE_URL      → -oracle
	ORACLE_QUERY_SUFFIX → -oracle-suffix
	PUBLIC_BASE_URL → -base-url
	CREDIT_QUEUE    → -credit-queue

CLI flags take precedence over environment variables. LoadDotEnv fills
the environment from a .env file without overriding variables that are
already set.

# Validation

ParseFlags returns an error if:

  - the sql backend has no DATABASE_URL
  - the redis backend or the credit queue has no REDIS_URL
  - the backend, database type, TTL or queue flag is not recognized
*/
package cliparse
