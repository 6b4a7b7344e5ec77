// Package ratelimit throttles login attempts with a Redis fixed-window
// counter. The gate is consulted before credential verification and fails
// open so an unavailable Redis never locks every principal out.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"workshop/config"
	"workshop/internal/domain/entity"
	"workshop/internal/domain/service"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "login_gate"

// NewRedisClient builds the shared Redis client from configuration.
// Returns nil when no Redis is configured; the gate degrades to allow-all.
func NewRedisClient(cfg *config.Config) *redis.Client {
	if cfg.Redis == nil || cfg.Redis.Addr == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

type redisLoginGate struct {
	client      *redis.Client
	logger      *slog.Logger
	prefix      string
	maxAttempts int
	window      time.Duration
	enabled     bool
}

// NewRedisLoginGate is the constructor for the Redis-backed login gate.
func NewRedisLoginGate(cfg *config.Config, client *redis.Client, logger *slog.Logger) service.LoginGate {
	gate := &redisLoginGate{
		client: client,
		logger: logger,
		prefix: defaultPrefix,
	}

	if cfg.LoginGate != nil {
		gate.enabled = cfg.LoginGate.Enabled
		gate.maxAttempts = cfg.LoginGate.MaxAttempts
		gate.window = cfg.LoginGate.Window
		if cfg.LoginGate.Prefix != "" {
			gate.prefix = cfg.LoginGate.Prefix
		}
	}
	if gate.maxAttempts <= 0 {
		gate.maxAttempts = 10
	}
	if gate.window <= 0 {
		gate.window = 15 * time.Minute
	}

	return gate
}

// Allow records one attempt for the identifier+client pair and reports
// whether it may proceed. Counting the attempt before the verdict means
// hammering a locked account keeps the window fresh.
func (g *redisLoginGate) Allow(ctx context.Context, kind entity.Kind, identifier, clientIP string) (bool, error) {
	if !g.enabled || g.client == nil {
		return true, nil
	}

	key := g.buildKey(kind, identifier, clientIP)

	pipe := g.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, g.window)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: a dead counter store must not become a login outage.
		g.logger.WarnContext(ctx, "login gate unavailable, allowing attempt",
			slog.String("key", key),
			slog.Any("error", err))

		return true, nil
	}

	count := incr.Val()
	if count > int64(g.maxAttempts) {
		g.logger.InfoContext(ctx, "login attempt blocked",
			slog.String("kind", kind.String()),
			slog.String("client_ip", clientIP),
			slog.Int64("attempts", count))

		return false, nil
	}

	return true, nil
}

func (g *redisLoginGate) buildKey(kind entity.Kind, identifier, clientIP string) string {
	ident := strings.ToLower(strings.TrimSpace(identifier))
	if ident == "" {
		ident = "unknown"
	}
	if clientIP == "" {
		clientIP = "unknown"
	}

	return fmt.Sprintf("%s:%s:%s:%s", g.prefix, kind, ident, clientIP)
}
