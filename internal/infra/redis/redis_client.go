package redis

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"

	"popup-shop/internal/config"
)

// Client wraps the go-redis client with the key namespace every adapter in
// this package writes under.
type Client struct {
	cli    *redis.Client
	prefix string
}

// NewClient accepts either a redis:// URL or a bare host:port. Password and
// DB from cfg only apply to the bare form.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	return &Client{cli: c, prefix: cfg.KeyPrefix}, nil
}

func options(cfg *config.RedisConfig) (*redis.Options, error) {
	if strings.HasPrefix(cfg.URL, "redis://") || strings.HasPrefix(cfg.URL, "rediss://") {
		return redis.ParseURL(cfg.URL)
	}
	return &redis.Options{Addr: cfg.URL, Password: cfg.Password, DB: cfg.DB}, nil
}

// key joins parts under the configured prefix with ':'.
func (c *Client) key(parts ...string) string {
	all := make([]string, 0, len(parts)+1)
	if c.prefix != "" {
		all = append(all, c.prefix)
	}
	return strings.Join(append(all, parts...), ":")
}

func (c *Client) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *Client) Close() error { return c.cli.Close() }
