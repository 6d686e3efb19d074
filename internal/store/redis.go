package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "coc:"
	activeSetKey = keyPrefix + "active"
	// ActiveTTL bounds how long an abandoned snapshot survives.
	ActiveTTL = 24 * time.Hour
)

func activeKey(code string) string  { return keyPrefix + "game:" + code }
func actionsKey(code string) string { return keyPrefix + "actions:" + code }

// Redis keeps live matches in Redis: one JSON value per game, a set of
// active codes and a list per game for the action log.
type Redis struct {
	rdb *redis.Client
}

// ConnectRedis parses url, connects and pings.
func ConnectRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client) *Redis { return &Redis{rdb: rdb} }

func (r *Redis) Close() error { return r.rdb.Close() }

func (r *Redis) SaveActive(ctx context.Context, code string, g ActiveGame) error {
	b, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal game %s: %w", code, err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, activeKey(code), b, ActiveTTL)
		p.SAdd(ctx, activeSetKey, code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save game %s: %w", code, err)
	}
	return nil
}

func (r *Redis) LoadActive(ctx context.Context, code string) (ActiveGame, error) {
	var g ActiveGame
	b, err := r.rdb.Get(ctx, activeKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return g, ErrNotFound
	}
	if err != nil {
		return g, fmt.Errorf("load game %s: %w", code, err)
	}
	if err := json.Unmarshal(b, &g); err != nil {
		return g, fmt.Errorf("decode game %s: %w", code, err)
	}
	return g, nil
}

func (r *Redis) DeleteActive(ctx context.Context, code string) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, activeKey(code), actionsKey(code))
		p.SRem(ctx, activeSetKey, code)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete game %s: %w", code, err)
	}
	return nil
}

// ListActive returns the codes in the active set. Codes whose snapshot has
// expired are pruned from the set.
func (r *Redis) ListActive(ctx context.Context) ([]string, error) {
	codes, err := r.rdb.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list active games: %w", err)
	}
	live := codes[:0]
	for _, c := range codes {
		n, err := r.rdb.Exists(ctx, activeKey(c)).Result()
		if err != nil {
			return nil, fmt.Errorf("check game %s: %w", c, err)
		}
		if n == 0 {
			r.rdb.SRem(ctx, activeSetKey, c)
			continue
		}
		live = append(live, c)
	}
	return live, nil
}

func (r *Redis) AppendAction(ctx context.Context, code string, rec ActionRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, actionsKey(code), b)
		p.Expire(ctx, actionsKey(code), ActiveTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append action for %s: %w", code, err)
	}
	return nil
}

// Actions reads the whole action log for code.
func (r *Redis) Actions(ctx context.Context, code string) ([]ActionRecord, error) {
	raw, err := r.rdb.LRange(ctx, actionsKey(code), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read actions for %s: %w", code, err)
	}
	out := make([]ActionRecord, 0, len(raw))
	for _, s := range raw {
		var rec ActionRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("decode action for %s: %w", code, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
