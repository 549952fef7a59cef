// Package redis remembers which source events were already turned into pushes,
// so a redelivered Kafka record does not notify twice.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
)

const keyPrefix = "push:event:"

// Deduper implements kafka.Deduper with SETNX keys that expire after ttl.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to addr. The connection is verified with PING.
func New(addr, password string, db int, ttl time.Duration) (*Deduper, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &Deduper{client: client, ttl: ttl}, nil
}

// FirstSeen reports whether eventID has not been claimed before, claiming it.
func (d *Deduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.client.WithContext(ctx).SetNX(keyPrefix+eventID, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}

func (d *Deduper) Close() error {
	return d.client.Close()
}
