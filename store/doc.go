// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store defines the storage contracts for rooms, the leaderboard and the
credit ledger.

# Implementations

  - sqlstore: PostgreSQL (lib/pq) or SQLite (modernc.org/sqlite)
  - redisstore: Redis (go-redis/v8), room:{id} documents with native expiry

# Concurrency

Rooms use optimistic concurrency. Every document carries a version; SwapRoom
only succeeds when the stored version matches the one the caller read, so a
writer working from a stale copy gets ErrConflict instead of overwriting a
sibling's change.

Leaderboard credits are atomic increments in the store itself, never
read-modify-write from the caller.

The ledger is an insert-if-absent set; the first Claim wins.

# Errors

	ErrNotFound     room absent or expired
	ErrConflict     version mismatch or id collision
	ErrUnavailable  network or database failure, safe to retry
*/
package store
