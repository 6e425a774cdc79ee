// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the predictroom API server.

predictroom hosts prediction rooms: a creator publishes a room of
questions, shares the link, friends answer before each deadline, the
creator resolves the correct answer and everyone's points feed a global
leaderboard.

# Starting the Server

With SQLite (the default):

	DATABASE_URL=file:predictroom.db go run .

With Postgres:

	go run . -t postgres -d "postgres://..."

With Redis as the store and the credit retry queue:

	go run . -store redis -redis redis://localhost:6379/0 -credit-queue true

A .env file in the working directory is read first.

# Configuration

Required settings:

  - DATABASE_URL (-d): for the sql backend
  - REDIS_URL (-redis): for the redis backend or the credit queue

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - ROOM_TTL (-room-ttl): Room lifetime after its last write (default: 168h)
  - ORACLE_URL (-oracle), PUBLIC_BASE_URL (-base-url)

# Architecture

  - room: pure state machine for rooms and predictions
  - scoring: point table, winner rule, ledger events
  - coordinator: compare-and-swap mutations and credit fan-out
  - store: storage contracts, with sqlstore and redisstore backends
  - db: SQL connection and schema
  - worker: asynq retry queue for failed credits
  - oracle: instant-answer lookup for suggested resolutions
  - handlers, router, middleware: HTTP surface
  - models: domain, request and response types
  - ids: room, prediction and comment identifiers
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
