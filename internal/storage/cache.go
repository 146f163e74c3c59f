package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chesstrack/internal/core"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "chess:game:"

// ErrStaleSnapshot is returned by Save when the cache already holds a
// snapshot with the same or a later revision.
var ErrStaleSnapshot = errors.New("cached snapshot is newer")

// Concurrent saves of one game retry this many times before giving up.
const saveRetries = 3

// MatchSnapshot is everything needed to rebuild a live match by replay.
type MatchSnapshot struct {
	GameID     string       `json:"gameId"`
	InitialFEN string       `json:"initialFen"`
	Moves      []string     `json:"moves"`
	State      string       `json:"state"`
	White      *core.Player `json:"white"`
	Black      *core.Player `json:"black"`
	Revision   int64        `json:"revision"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Cache keeps match snapshots in Redis so a restarted server can resume
// games it did not create.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// DialCache connects to a redis:// URL and checks the connection.
func DialCache(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewCache(rdb, ttl), nil
}

func (c *Cache) key(gameID string) string { return keyPrefix + strings.TrimSpace(gameID) }

// Save stores snap unless the cache already has the same or a later
// revision of the game, in which case it returns ErrStaleSnapshot. The
// compare and the write run in one WATCH transaction.
func (c *Cache) Save(ctx context.Context, snap *MatchSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	key := c.key(snap.GameID)

	for attempt := 0; attempt < saveRetries; attempt++ {
		err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
			cur, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				// an unreadable entry is overwritten
				var stored MatchSnapshot
				if json.Unmarshal(cur, &stored) == nil && stored.Revision >= snap.Revision {
					return ErrStaleSnapshot
				}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, raw, c.ttl)
				return nil
			})
			return err
		}, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// Load returns nil, nil when the game is not cached.
func (c *Cache) Load(ctx context.Context, gameID string) (*MatchSnapshot, error) {
	raw, err := c.rdb.Get(ctx, c.key(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap MatchSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", gameID, err)
	}
	return &snap, nil
}

func (c *Cache) Delete(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, c.key(gameID)).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
