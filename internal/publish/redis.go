/*
Package publish pushes newly detected announcements to a Redis stream so other
services can consume them without scraping the site themselves.
*/
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shanehull/annwatch/internal/errs"
	"github.com/shanehull/annwatch/internal/types"
)

// Event is one stream entry.
type Event struct {
	RunID      string             `json:"run_id"`
	Source     string             `json:"source"`
	DetectedAt time.Time          `json:"detected_at"`
	Item       types.Announcement `json:"announcement"`
	Matched    bool               `json:"matched"`
}

type RedisPublisher struct {
	client    *redis.Client
	stream    string
	maxLength int64
}

func NewRedisPublisher(addr string, db int, stream string) *RedisPublisher {
	return &RedisPublisher{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   db,
		}),
		stream:    stream,
		maxLength: 1000,
	}
}

// Publish appends one entry per event. It stops at the first failure.
func (p *RedisPublisher) Publish(ctx context.Context, events []Event) error {
	for _, ev := range events {
		values, err := ev.values()
		if err != nil {
			return errs.New(errs.KindNotify, "publish", "failed to encode event", err)
		}

		err = p.client.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLength,
			Approx: true,
			Values: values,
		}).Err()
		if err != nil {
			return errs.Network("publish", fmt.Sprintf("XADD %s failed", p.stream), err)
		}
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func (ev Event) values() (map[string]interface{}, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"title":   ev.Item.Title,
		"link":    ev.Item.Link,
		"matched": fmt.Sprintf("%t", ev.Matched),
		"payload": string(payload),
	}, nil
}
