// Package redisbus relays realtime broadcasts between instances over Redis
// pub/sub so a client connected to one instance sees events raised on another.
package redisbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options locates the Redis server. URL takes precedence over Address.
type Options struct {
	URL          string
	Address      string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewClient connects to Redis and verifies the connection with PING.
func NewClient(ctx context.Context, opts Options) (*redis.Client, error) {
	redisOpts, err := clientOptions(opts)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func clientOptions(opts Options) (*redis.Options, error) {
	if opts.URL == "" && opts.Address == "" {
		return nil, errors.New("redis url or address is required")
	}

	var redisOpts *redis.Options
	if opts.URL != "" {
		parsed, err := redis.ParseURL(opts.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		redisOpts = parsed
	} else {
		redisOpts = &redis.Options{
			Addr:     opts.Address,
			Password: opts.Password,
			DB:       opts.DB,
		}
	}
	if redisOpts.DialTimeout == 0 {
		redisOpts.DialTimeout = opts.DialTimeout
	}
	if redisOpts.ReadTimeout == 0 {
		redisOpts.ReadTimeout = opts.ReadTimeout
	}
	if redisOpts.WriteTimeout == 0 {
		redisOpts.WriteTimeout = opts.WriteTimeout
	}
	return redisOpts, nil
}
