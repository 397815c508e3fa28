package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/lixenwraith/luckydraw/config"
	"github.com/lixenwraith/luckydraw/snapshot"
)

// openStore builds the configured session store; nil store means persistence is off
// The close function is always non-nil
func openStore(ctx context.Context, cfg config.StoreConfig) (snapshot.Store, func(), error) {
	switch cfg.Driver {
	case config.StoreFile:
		fs, err := snapshot.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, func() {}, err
		}
		return fs, func() {}, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, func() {}, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return snapshot.NewRedisStore(client, cfg.RedisPrefix, cfg.RedisTTL), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		ss, err := snapshot.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, func() {}, err
		}
		if err := ss.Migrate(ctx); err != nil {
			_ = ss.Close()
			return nil, func() {}, err
		}
		return ss, func() { _ = ss.Close() }, nil
	}
	return nil, func() {}, nil
}
