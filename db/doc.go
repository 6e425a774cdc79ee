// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the SQL database and creates the schema.

# Drivers

Open picks the driver from the configured type:

	conn, err := db.Open(db.TypePostgres, "postgres://...") // lib/pq
	conn, err := db.Open(db.TypeSQLite, "file:rooms.db")     // modernc.org/sqlite

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The SQL is portable between PostgreSQL and SQLite; timestamps are stored as
unix milliseconds.

# Tables

  - room_document: one JSON room per id, with CAS version and expiry
  - leaderboard_entry: running totals per username
  - credit_ledger: one row per (username, room_id, event) already credited

# Indexes

  - room_document.creator
  - room_document.expires_at (sweeping)
  - leaderboard_entry.(points DESC, username)
*/
package db
