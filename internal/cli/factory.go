// Package cli holds the command implementations behind cmd/helix.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/helix"
	"github.com/aretw0/helix/internal/config"
	"github.com/aretw0/helix/pkg/adapters/file"
	"github.com/aretw0/helix/pkg/adapters/memory"
	"github.com/aretw0/helix/pkg/adapters/redis"
	"github.com/aretw0/helix/pkg/observability"
	"github.com/aretw0/helix/pkg/persistence/middleware"
	"github.com/aretw0/helix/pkg/ports"
)

const redisPingTimeout = 3 * time.Second

// NewCacheStore opens the collection cache selected by cfg.Backend, wrapped with
// field redaction and encryption when configured.
// A redis store is pinged once so a bad address fails at startup.
func NewCacheStore(ctx context.Context, cfg config.CacheConfig) (ports.CacheStore, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		mws = append(mws, middleware.NewPIIMiddleware(cfg.Redact))
	}
	if cfg.EncryptionKey != "" {
		enc, err := encryptionConfig(cfg)
		if err != nil {
			return nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	if len(mws) == 0 {
		return store, nil
	}
	return closer{CacheStore: middleware.Chain(store, mws...), base: store}, nil
}

// closer keeps the base store's Close reachable through middleware.
type closer struct {
	ports.CacheStore
	base ports.CacheStore
}

func (c closer) Close() error {
	if cl, ok := c.base.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func baseStore(s ports.CacheStore) ports.CacheStore {
	if c, ok := s.(closer); ok {
		return c.base
	}
	return s
}

func encryptionConfig(cfg config.CacheConfig) (middleware.EncryptionConfig, error) {
	active, err := middleware.DecodeKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("cache.encryption_key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for _, k := range cfg.FallbackKeys {
		key, err := middleware.DecodeKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("cache.fallback_keys: %w", err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return enc, nil
}

func openStore(ctx context.Context, cfg config.CacheConfig) (ports.CacheStore, error) {
	switch cfg.Backend {
	case "", config.CacheMemory:
		return memory.NewStore(), nil
	case config.CacheFile:
		return file.New(cfg.Dir), nil
	case config.CacheRedis:
		opts := []redis.Option{redis.WithTTL(cfg.TTL)}
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("redis cache at %s: %w", cfg.RedisAddr, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NewOrchestrator builds a Helix instance from loaded configuration.
// Debug mode adds lifecycle logging on top of the built-in metrics.
func NewOrchestrator(ctx context.Context, cfg config.Config, logger *slog.Logger, debug bool, extra ...helix.Option) (*helix.Helix, error) {
	store, err := NewCacheStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	opts := []helix.Option{}
	if base, ok := baseStore(store).(*redis.Store); ok {
		opts = append(opts, helix.WithRefreshLocker(redis.NewLocker(base.Client(), base.Prefix())))
	}
	opts = append(opts,
		helix.WithCoreURL(cfg.CoreURL),
		helix.WithRealtimeURL(cfg.RealtimeURL),
		helix.WithModel(cfg.Model),
		helix.WithVoice(cfg.Voice),
		helix.WithInstructions(cfg.Instructions),
		helix.WithHTTPTimeout(cfg.HTTPTimeout),
		helix.WithHandshakeTimeout(cfg.HandshakeTimeout),
		helix.WithAllowedOrigin(cfg.AllowedOrigin),
		helix.WithLogger(logger),
		helix.WithCacheStore(store),
	)
	if debug {
		opts = append(opts, helix.WithLifecycleHooks(observability.LoggingHooks(logger)))
	}

	h, err := helix.New(append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("error initializing helix: %w", err)
	}
	return h, nil
}
