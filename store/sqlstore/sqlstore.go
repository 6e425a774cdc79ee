// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/danielhkuo/predictroom/db"
	"github.com/danielhkuo/predictroom/models"
	"github.com/danielhkuo/predictroom/store"
)

// Store implements store.RoomStore, store.LeaderboardStore and store.Ledger
// on database/sql. Queries are written with $N placeholders and rebound
// to ? for SQLite.
type Store struct {
	db     *sql.DB
	dbType string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now, used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTTL sets the room retention window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func New(conn *sql.DB, dbType string, opts ...Option) *Store {
	s := &Store{
		db:     conn,
		dbType: dbType,
		ttl:    store.DefaultRoomTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns s as all three stores.
func (s *Store) Backend() store.Backend {
	return store.Backend{Rooms: s, Leaderboard: s, Ledger: s}
}

var placeholder = regexp.MustCompile(`\$\d+`)

// rebind turns $1..$N into ? for SQLite. Every query here uses each
// placeholder once and in order.
func (s *Store) rebind(query string) string {
	if s.dbType != db.TypeSQLite {
		return query
	}
	return placeholder.ReplaceAllString(query, "?")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", store.ErrUnavailable, op, err)
}

// GetRoom implements store.RoomStore.
func (s *Store) GetRoom(ctx context.Context, id string) (models.Room, error) {
	var body string
	var version int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT body, version FROM room_document
		WHERE id = $1 AND expires_at > $2
	`), id, toMillis(s.now())).Scan(&body, &version)

	if err == sql.ErrNoRows {
		return models.Room{}, store.ErrNotFound
	}
	if err != nil {
		return models.Room{}, unavailable("get room", err)
	}

	return decodeRoom(body, version)
}

func decodeRoom(body string, version int64) (models.Room, error) {
	var r models.Room
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return models.Room{}, fmt.Errorf("failed to decode room: %w", err)
	}
	r.Version = version
	return r, nil
}

// CreateRoom implements store.RoomStore. An expired row with the same id
// is replaced.
func (s *Store) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	room.Version = 1
	body, err := json.Marshal(room)
	if err != nil {
		return models.Room{}, fmt.Errorf("failed to encode room: %w", err)
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO room_document (id, creator, version, body, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			creator = excluded.creator,
			version = excluded.version,
			body = excluded.body,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
		WHERE room_document.expires_at <= excluded.updated_at
	`), room.ID, room.Creator, room.Version, string(body), toMillis(room.CreatedAt), toMillis(now), toMillis(now.Add(s.ttl)))

	if err != nil {
		return models.Room{}, unavailable("create room", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Room{}, unavailable("create room", err)
	}
	if n == 0 {
		return models.Room{}, store.ErrConflict
	}

	return room, nil
}

// SwapRoom implements store.RoomStore.
func (s *Store) SwapRoom(ctx context.Context, room models.Room) (models.Room, error) {
	expected := room.Version
	room.Version = expected + 1
	body, err := json.Marshal(room)
	if err != nil {
		return models.Room{}, fmt.Errorf("failed to encode room: %w", err)
	}

	now := s.now()
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE room_document
		SET version = $1, body = $2, updated_at = $3, expires_at = $4
		WHERE id = $5 AND version = $6 AND expires_at > $7
	`), room.Version, string(body), toMillis(now), toMillis(now.Add(s.ttl)), room.ID, expected, toMillis(now))

	if err != nil {
		return models.Room{}, unavailable("swap room", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Room{}, unavailable("swap room", err)
	}
	if n == 1 {
		return room, nil
	}

	// Distinguish a lost race from a room that is gone.
	if _, err := s.GetRoom(ctx, room.ID); err != nil {
		return models.Room{}, err
	}
	return models.Room{}, store.ErrConflict
}

// ListRoomsByCreator implements store.RoomStore.
func (s *Store) ListRoomsByCreator(ctx context.Context, creator string) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT body, version FROM room_document
		WHERE creator = $1 AND expires_at > $2
		ORDER BY created_at DESC, id
	`), creator, toMillis(s.now()))
	if err != nil {
		return nil, unavailable("list rooms", err)
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		var body string
		var version int64
		if err := rows.Scan(&body, &version); err != nil {
			return nil, unavailable("scan room", err)
		}
		r, err := decodeRoom(body, version)
		if err != nil {
			slog.Warn("skipping undecodable room", "creator", creator, "error", err)
			continue
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list rooms", err)
	}

	return rooms, nil
}

// SweepExpired deletes room documents past their TTL and returns how many
// were removed.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		DELETE FROM room_document WHERE expires_at <= $1
	`), toMillis(s.now()))
	if err != nil {
		return 0, unavailable("sweep rooms", err)
	}
	return res.RowsAffected()
}

// RunJanitor sweeps expired rooms every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				slog.Error("room sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired rooms swept", "count", n)
			}
		}
	}
}

// Credit implements store.LeaderboardStore as a single upsert, so
// concurrent credits to the same username accumulate in the database.
func (s *Store) Credit(ctx context.Context, c models.Credit) (models.LeaderboardEntry, error) {
	var e models.LeaderboardEntry
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO leaderboard_entry (username, points, correct, total, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO UPDATE SET
			points = leaderboard_entry.points + excluded.points,
			correct = leaderboard_entry.correct + excluded.correct,
			total = leaderboard_entry.total + excluded.total,
			updated_at = excluded.updated_at
		RETURNING username, points, correct, total
	`), c.Username, c.Points, c.Correct, c.Total, toMillis(s.now())).Scan(&e.Username, &e.Points, &e.Correct, &e.Total)

	if err != nil {
		return models.LeaderboardEntry{}, unavailable("credit leaderboard", err)
	}

	return e.Decorate(), nil
}

// Top implements store.LeaderboardStore.
func (s *Store) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT username, points, correct, total FROM leaderboard_entry
		ORDER BY points DESC, username ASC
		LIMIT $1
	`), limit)
	if err != nil {
		return nil, unavailable("query leaderboard", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.Username, &e.Points, &e.Correct, &e.Total); err != nil {
			return nil, unavailable("scan leaderboard", err)
		}
		entries = append(entries, e.Decorate())
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query leaderboard", err)
	}

	return entries, nil
}

// Claim implements store.Ledger.
func (s *Store) Claim(ctx context.Context, username, roomID, event string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO credit_ledger (username, room_id, event, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username, room_id, event) DO NOTHING
	`), username, roomID, event, toMillis(s.now()))
	if err != nil {
		return false, unavailable("claim ledger", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("claim ledger", err)
	}
	return n == 1, nil
}

var (
	_ store.RoomStore        = (*Store)(nil)
	_ store.LeaderboardStore = (*Store)(nil)
	_ store.Ledger           = (*Store)(nil)
)
