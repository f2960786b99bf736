package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Client embeds the go-redis client.
type Client struct {
	*goredis.Client
}

// New connects to addr and pings it once.
func New(ctx context.Context, addr, password string) (*Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Client{Client: client}, nil
}
