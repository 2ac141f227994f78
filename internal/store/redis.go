package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/smokyabdulrahman/athan/internal/alarm"
)

// DefaultRedisPrefix namespaces the trigger hash.
const DefaultRedisPrefix = "athan"

// RedisOptions configures the Redis store.
type RedisOptions struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// Redis stores triggers as JSON values in one hash keyed by owner.
type Redis struct {
	client *redis.Client
	key    string
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return NewRedis(client, opts.Prefix), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, key: prefix + ":triggers"}
}

// Save stores the owner's trigger.
func (r *Redis) Save(ctx context.Context, t alarm.Trigger) error {
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trigger: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, t.OwnerID, b).Err(); err != nil {
		return fmt.Errorf("save trigger for %s: %w", t.OwnerID, err)
	}
	return nil
}

// Delete removes the owner's trigger.
func (r *Redis) Delete(ctx context.Context, ownerID string) error {
	if err := r.client.HDel(ctx, r.key, ownerID).Err(); err != nil {
		return fmt.Errorf("delete trigger for %s: %w", ownerID, err)
	}
	return nil
}

// Load returns every stored trigger ordered by fire time.
func (r *Redis) Load(ctx context.Context) ([]alarm.Trigger, error) {
	all, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load triggers: %w", err)
	}

	out := make([]alarm.Trigger, 0, len(all))
	for owner, raw := range all {
		var t alarm.Trigger
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("decode trigger for %s: %w", owner, err)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}
