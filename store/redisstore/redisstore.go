// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/danielhkuo/predictroom/models"
	"github.com/danielhkuo/predictroom/store"
)

// Store implements the three store contracts on Redis.
//
// Layout:
//
//	room:{id}                       room JSON (includes version), EX ttl
//	rooms:creator:{creator}         zset of room ids scored by created_at millis
//	leaderboard                     zset username -> points
//	leaderboard:user:{username}     hash points/correct/total
//	ledger:{username}:{room}:{event} one-time event marker
type Store struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Store)

// WithTTL sets the room retention window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces every key.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

func New(client *redis.Client, opts ...Option) *Store {
	if client == nil {
		panic("redis client cannot be nil")
	}
	s := &Store{
		client: client,
		ttl:    store.DefaultRoomTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Backend returns s as all three stores.
func (s *Store) Backend() store.Backend {
	return store.Backend{Rooms: s, Leaderboard: s, Ledger: s}
}

func (s *Store) roomKey(id string) string {
	return s.keyPrefix + "room:" + id
}

func (s *Store) creatorKey(creator string) string {
	return s.keyPrefix + "rooms:creator:" + creator
}

func (s *Store) boardKey() string {
	return s.keyPrefix + "leaderboard"
}

func (s *Store) userKey(username string) string {
	return s.keyPrefix + "leaderboard:user:" + username
}

func (s *Store) ledgerKey(username, roomID, event string) string {
	return fmt.Sprintf("%sledger:%s:%s:%s", s.keyPrefix, username, roomID, event)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", store.ErrUnavailable, op, err)
}

// GetRoom implements store.RoomStore.
func (s *Store) GetRoom(ctx context.Context, id string) (models.Room, error) {
	raw, err := s.client.Get(ctx, s.roomKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Room{}, store.ErrNotFound
	}
	if err != nil {
		return models.Room{}, unavailable("get room", err)
	}
	return decodeRoom(raw)
}

func decodeRoom(raw []byte) (models.Room, error) {
	var r models.Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.Room{}, fmt.Errorf("failed to decode room: %w", err)
	}
	return r, nil
}

// CreateRoom implements store.RoomStore with SET NX.
func (s *Store) CreateRoom(ctx context.Context, room models.Room) (models.Room, error) {
	room.Version = 1
	raw, err := json.Marshal(room)
	if err != nil {
		return models.Room{}, fmt.Errorf("failed to encode room: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.roomKey(room.ID), raw, s.ttl).Result()
	if err != nil {
		return models.Room{}, unavailable("create room", err)
	}
	if !ok {
		return models.Room{}, store.ErrConflict
	}

	if room.Creator != "" {
		_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			key := s.creatorKey(room.Creator)
			pipe.ZAdd(ctx, key, &redis.Z{Score: float64(room.CreatedAt.UnixMilli()), Member: room.ID})
			pipe.Expire(ctx, key, s.ttl)
			return nil
		})
		if err != nil {
			// The room exists; only the creator listing is stale.
			slog.Warn("failed to index room by creator", "room_id", room.ID, "error", err)
		}
	}

	return room, nil
}

// SwapRoom implements store.RoomStore with WATCH/MULTI.
func (s *Store) SwapRoom(ctx context.Context, room models.Room) (models.Room, error) {
	key := s.roomKey(room.ID)
	expected := room.Version
	room.Version = expected + 1
	raw, err := json.Marshal(room)
	if err != nil {
		return models.Room{}, fmt.Errorf("failed to encode room: %w", err)
	}

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return store.ErrNotFound
		}
		if err != nil {
			return unavailable("swap room", err)
		}
		stored, err := decodeRoom(cur)
		if err != nil {
			return err
		}
		if stored.Version != expected {
			return store.ErrConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			if room.Creator != "" {
				pipe.Expire(ctx, s.creatorKey(room.Creator), s.ttl)
			}
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return room, nil
	case errors.Is(err, redis.TxFailedErr):
		return models.Room{}, store.ErrConflict
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrUnavailable):
		return models.Room{}, err
	default:
		return models.Room{}, unavailable("swap room", err)
	}
}

// ListRoomsByCreator implements store.RoomStore. Ids whose room has
// expired are pruned from the index as a side effect.
func (s *Store) ListRoomsByCreator(ctx context.Context, creator string) ([]models.Room, error) {
	idxKey := s.creatorKey(creator)
	ids, err := s.client.ZRevRange(ctx, idxKey, 0, -1).Result()
	if err != nil {
		return nil, unavailable("list rooms", err)
	}
	rooms := []models.Room{}
	if len(ids) == 0 {
		return rooms, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.roomKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("list rooms", err)
	}

	var gone []interface{}
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			gone = append(gone, ids[i])
			continue
		}
		r, err := decodeRoom([]byte(str))
		if err != nil {
			slog.Warn("skipping undecodable room", "room_id", ids[i], "error", err)
			continue
		}
		rooms = append(rooms, r)
	}
	if len(gone) > 0 {
		if err := s.client.ZRem(ctx, idxKey, gone...).Err(); err != nil {
			slog.Warn("failed to prune creator index", "creator", creator, "error", err)
		}
	}

	return rooms, nil
}

// Credit implements store.LeaderboardStore. All increments run in one
// MULTI so concurrent credits to a username commute.
func (s *Store) Credit(ctx context.Context, c models.Credit) (models.LeaderboardEntry, error) {
	var points, correct, total *redis.IntCmd
	userKey := s.userKey(c.Username)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		points = pipe.HIncrBy(ctx, userKey, "points", c.Points)
		correct = pipe.HIncrBy(ctx, userKey, "correct", c.Correct)
		total = pipe.HIncrBy(ctx, userKey, "total", c.Total)
		pipe.ZIncrBy(ctx, s.boardKey(), float64(c.Points), c.Username)
		return nil
	})
	if err != nil {
		return models.LeaderboardEntry{}, unavailable("credit leaderboard", err)
	}

	e := models.LeaderboardEntry{
		Username: c.Username,
		Points:   points.Val(),
		Correct:  correct.Val(),
		Total:    total.Val(),
	}
	return e.Decorate(), nil
}

// Top implements store.LeaderboardStore. Sorted sets break ties in
// reverse lexical order, so members tied with the last slot are fetched
// and the final order is settled here.
func (s *Store) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	if limit <= 0 {
		return entries, nil
	}

	top, err := s.client.ZRevRangeWithScores(ctx, s.boardKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, unavailable("query leaderboard", err)
	}
	if len(top) == 0 {
		return entries, nil
	}

	names := make(map[string]bool, len(top))
	for _, z := range top {
		names[fmt.Sprint(z.Member)] = true
	}
	if len(top) == limit {
		edge := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
		tied, err := s.client.ZRangeByScore(ctx, s.boardKey(), &redis.ZRangeBy{Min: edge, Max: edge}).Result()
		if err != nil {
			return nil, unavailable("query leaderboard", err)
		}
		for _, name := range tied {
			names[name] = true
		}
	}

	cmds := make(map[string]*redis.StringStringMapCmd, len(names))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for name := range names {
			cmds[name] = pipe.HGetAll(ctx, s.userKey(name))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("query leaderboard", err)
	}

	for name, cmd := range cmds {
		fields := cmd.Val()
		e := models.LeaderboardEntry{Username: name}
		e.Points, _ = strconv.ParseInt(fields["points"], 10, 64)
		e.Correct, _ = strconv.ParseInt(fields["correct"], 10, 64)
		e.Total, _ = strconv.ParseInt(fields["total"], 10, 64)
		entries = append(entries, e.Decorate())
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Username < entries[j].Username
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Claim implements store.Ledger with SET NX.
func (s *Store) Claim(ctx context.Context, username, roomID, event string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.ledgerKey(username, roomID, event), s.now().UTC().Format(time.RFC3339), 0).Result()
	if err != nil {
		return false, unavailable("claim ledger", err)
	}
	return ok, nil
}

var (
	_ store.RoomStore        = (*Store)(nil)
	_ store.LeaderboardStore = (*Store)(nil)
	_ store.Ledger           = (*Store)(nil)
)
