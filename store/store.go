// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/danielhkuo/predictroom/models"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("version conflict")
	ErrUnavailable = errors.New("store unavailable")
)

// DefaultRoomTTL is how long a room survives after its last write.
const DefaultRoomTTL = 7 * 24 * time.Hour

// RoomStore holds one room document per id with a sliding TTL.
type RoomStore interface {
	// GetRoom returns the live room or ErrNotFound.
	GetRoom(ctx context.Context, id string) (models.Room, error)

	// CreateRoom stores a new room at version 1. ErrConflict if the id is
	// already taken by a live room.
	CreateRoom(ctx context.Context, room models.Room) (models.Room, error)

	// SwapRoom writes room only if the stored version still equals
	// room.Version, and returns it with the bumped version. ErrConflict on
	// mismatch, ErrNotFound if the room is gone.
	SwapRoom(ctx context.Context, room models.Room) (models.Room, error)

	// ListRoomsByCreator returns live rooms, newest first.
	ListRoomsByCreator(ctx context.Context, creator string) ([]models.Room, error)
}

// LeaderboardStore accumulates credits per username. Credit must be safe
// under concurrent credits to the same username.
type LeaderboardStore interface {
	Credit(ctx context.Context, c models.Credit) (models.LeaderboardEntry, error)

	// Top orders by points descending, ties by username ascending.
	Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Ledger records one-time events per (username, room, event).
type Ledger interface {
	// Claim returns true exactly once per key, for the first caller.
	Claim(ctx context.Context, username, roomID, event string) (bool, error)
}

// Backend bundles the three stores a coordinator needs.
type Backend struct {
	Rooms       RoomStore
	Leaderboard LeaderboardStore
	Ledger      Ledger
}
