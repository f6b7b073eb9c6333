package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/SeaCloudHub/objdetect/pkg/config"
	"github.com/redis/go-redis/v9"
)

const dialTimeout = 3 * time.Second

type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

func ParseFromConfig(c *config.Config) Options {
	return Options{
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		Channel:  c.Redis.Channel,
	}
}

// Enabled reports whether a redis server was configured at all.
func (o Options) Enabled() bool {
	return o.Addr != ""
}

func NewConnection(ctx context.Context, opts Options) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dialTimeout,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()

		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return rdb, nil
}
