// Package redisunit implements the Redis Unit (component F): a blocking
// client with 5s connect/op timeouts, typed GET, SCAN capped at 200, and
// the captcha-extract-to-global helper the pre-Redis pipeline stage uses.
//
// Client construction follows jobs.JobManager's own go-redis/v8 usage.
package redisunit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/apitest-engine/apitestd/entity"
	"github.com/apitest-engine/apitestd/varstore"
)

// OpTimeout bounds connect and per-operation calls per §4.F.
const OpTimeout = 5 * time.Second

// MaxScanKeys caps the number of keys SCAN returns per call.
const MaxScanKeys = 200

// NewClient builds a *redis.Client for cfg.
func NewClient(cfg entity.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  OpTimeout,
		ReadTimeout:  OpTimeout,
		WriteTimeout: OpTimeout,
	})
}

// TestConnection pings cfg's Redis target.
func TestConnection(ctx context.Context, cfg entity.RedisConfig) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, OpTimeout)
	defer cancel()
	client := NewClient(cfg)
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		return false, err.Error()
	}
	return true, "connected"
}

// GetResult is the typed GET outcome §4.F describes: value, a type tag, and
// the key's remaining TTL.
type GetResult struct {
	Value string
	Type  string // string|hash|list|set|zset|none
	TTL   time.Duration
}

// Get returns the typed value and TTL for key, classifying its Redis type.
func Get(ctx context.Context, client *redis.Client, key string) (GetResult, error) {
	ctx, cancel := context.WithTimeout(ctx, OpTimeout)
	defer cancel()

	typ, err := client.Type(ctx, key).Result()
	if err != nil {
		return GetResult{}, fmt.Errorf("redisunit: type: %w", err)
	}
	if typ == "none" {
		return GetResult{Type: "none"}, fmt.Errorf("redisunit: get: key %q does not exist", key)
	}

	var value string
	switch typ {
	case "string":
		value, err = client.Get(ctx, key).Result()
	case "hash":
		m, e := client.HGetAll(ctx, key).Result()
		err = e
		if e == nil {
			b, _ := json.Marshal(m)
			value = string(b)
		}
	case "list":
		l, e := client.LRange(ctx, key, 0, -1).Result()
		err = e
		if e == nil {
			b, _ := json.Marshal(l)
			value = string(b)
		}
	case "set":
		l, e := client.SMembers(ctx, key).Result()
		err = e
		if e == nil {
			b, _ := json.Marshal(l)
			value = string(b)
		}
	case "zset":
		l, e := client.ZRange(ctx, key, 0, -1).Result()
		err = e
		if e == nil {
			b, _ := json.Marshal(l)
			value = string(b)
		}
	default:
		err = fmt.Errorf("unsupported type %q", typ)
	}
	if err != nil {
		return GetResult{}, fmt.Errorf("redisunit: get: %w", err)
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		ttl = -1
	}
	return GetResult{Value: value, Type: typ, TTL: ttl}, nil
}

// Set writes key=value with an optional expiry (0 = no expiry).
func Set(ctx context.Context, client *redis.Client, key, value string, expiry time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, OpTimeout)
	defer cancel()
	return client.Set(ctx, key, value, expiry).Err()
}

// Delete removes key.
func Delete(ctx context.Context, client *redis.Client, key string) error {
	ctx, cancel := context.WithTimeout(ctx, OpTimeout)
	defer cancel()
	return client.Del(ctx, key).Err()
}

// Scan returns up to MaxScanKeys keys matching pattern.
func Scan(ctx context.Context, client *redis.Client, pattern string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, OpTimeout)
	defer cancel()

	var keys []string
	var cursor uint64
	for {
		batch, next, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redisunit: scan: %w", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 || len(keys) >= MaxScanKeys {
			break
		}
	}
	if len(keys) > MaxScanKeys {
		keys = keys[:MaxScanKeys]
	}
	return keys, nil
}

// TTL returns the remaining time-to-live for key.
func TTL(ctx context.Context, client *redis.Client, key string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, OpTimeout)
	defer cancel()
	return client.TTL(ctx, key).Result()
}

// Expire sets key's expiry.
func Expire(ctx context.Context, client *redis.Client, key string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, OpTimeout)
	defer cancel()
	return client.Expire(ctx, key, ttl).Err()
}

// FetchCaptchaToGlobal implements fetch_captcha_to_global: substitute vars
// into keyTpl, read the value, optionally decode it as JSON and pull
// extractField, then write the final value into both the persisted globals
// (via setGlobal) and the runtime store.
func FetchCaptchaToGlobal(
	ctx context.Context,
	client *redis.Client,
	keyTpl, varName, extractField string,
	vars map[string]string,
	store *varstore.Store,
	setGlobal func(name, value string) error,
) error {
	key := varstore.Substitute(keyTpl, vars)
	res, err := Get(ctx, client, key)
	if err != nil {
		return err
	}
	value := res.Value
	if extractField != "" {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(res.Value), &decoded); err == nil {
			if v, ok := decoded[extractField]; ok {
				value = varstore.Stringify(v)
			}
		}
	}
	if setGlobal != nil {
		if err := setGlobal(varName, value); err != nil {
			return err
		}
	}
	store.Set(varName, value)
	return nil
}
