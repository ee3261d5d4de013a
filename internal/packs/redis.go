package packs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/DoyleJ11/buzzer-backend/internal/common/clock"
)

const (
	// Key prefixes for Redis
	packKeyPrefix = "pack:"
	packIndexKey  = "packs" // sorted set of pack ids scored by creation time
)

// RedisConfig holds configuration for the Redis pack store
type RedisConfig struct {
	RedisClient *redis.Client
	Clock       clock.Clock
}

type redisStore struct {
	client *redis.Client
	clock  clock.Clock
}

// NewRedis creates a new Redis-backed pack store
func NewRedis(cfg *RedisConfig) (Store, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	// Test connection
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	clk := cfg.Clock
	if clk == nil {
		clk = &clock.DefaultClock{}
	}
	return &redisStore{client: cfg.RedisClient, clock: clk}, nil
}

func packKey(id string) string { return packKeyPrefix + id }

func (r *redisStore) Save(ctx context.Context, input *SaveInput) (*Pack, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	p := &Pack{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(input.Name),
		GameData:  input.GameData,
		CreatedAt: r.clock.Now().UTC(),
	}

	packJSON, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pack: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, packKey(p.ID), packJSON, 0)
	pipe.ZAdd(ctx, packIndexKey, redis.Z{
		Score:  float64(p.CreatedAt.UnixNano()),
		Member: p.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to save pack: %w", err)
	}
	return p, nil
}

func (r *redisStore) Get(ctx context.Context, input *GetInput) (*Pack, error) {
	if input == nil || input.ID == "" {
		return nil, errors.New("input and pack ID cannot be empty")
	}

	packJSON, err := r.client.Get(ctx, packKey(input.ID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPackNotFound
		}
		return nil, fmt.Errorf("failed to get pack: %w", err)
	}

	var p Pack
	if err := json.Unmarshal([]byte(packJSON), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pack: %w", err)
	}
	return &p, nil
}

func (r *redisStore) List(ctx context.Context, input *ListInput) (*ListOutput, error) {
	ids, err := r.client.ZRevRange(ctx, packIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list packs: %w", err)
	}
	if len(ids) == 0 {
		return &ListOutput{Packs: []Summary{}}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = packKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load packs: %w", err)
	}

	out := make([]Summary, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// index entry without a document; skip it
			continue
		}
		var p Pack
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal pack %s: %w", ids[i], err)
		}
		out = append(out, p.Summary())
	}
	return &ListOutput{Packs: out}, nil
}

func (r *redisStore) Delete(ctx context.Context, input *DeleteInput) error {
	if input == nil || input.ID == "" {
		return errors.New("input and pack ID cannot be empty")
	}

	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, packKey(input.ID))
	pipe.ZRem(ctx, packIndexKey, input.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete pack: %w", err)
	}
	if del.Val() == 0 {
		return ErrPackNotFound
	}
	return nil
}
