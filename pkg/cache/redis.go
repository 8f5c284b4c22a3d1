package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/gettogather-api/pkg/config"
)

const (
	clientName  = "gettogather-api"
	dialTimeout = 3 * time.Second
	ioTimeout   = time.Second
)

// ErrDisabled reports that Redis caching is switched off in configuration.
var ErrDisabled = errors.New("redis cache disabled")

// NewRedis connects to Redis and verifies the connection within ctx. It returns
// ErrDisabled when caching is switched off, so callers can tell "off" from "down".
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return client, nil
}

// Ping checks the connection. A nil client is reported as ErrDisabled.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return ErrDisabled
	}
	return client.Ping(ctx).Err()
}
