package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crossbot/internal/order"

	goredis "github.com/go-redis/redis/v8"
)

// RedisConfig 对应 notify.redis 配置段。
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// Event 是发布到 Redis 频道的 JSON 负载。
type Event struct {
	Type    string        `json:"type"`
	Symbol  string        `json:"symbol"`
	Signal  string        `json:"signal"`
	Request order.Request `json:"request"`
	Outcome order.Outcome `json:"outcome"`
	At      time.Time     `json:"at"`
}

// RedisPublisher 把每次派发结果发布到 pub/sub 频道，实现 order.Sink。
type RedisPublisher struct {
	client  publisher
	channel string
	nowFn   func() time.Time
}

// NewRedisPublisher 连接并 ping Redis。
func NewRedisPublisher(ctx context.Context, cfg RedisConfig) (*RedisPublisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisPublisher(client, cfg.Channel), nil
}

func newRedisPublisher(client publisher, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, nowFn: time.Now}
}

func (p *RedisPublisher) Record(ctx context.Context, req order.Request, out order.Outcome) error {
	payload, err := json.Marshal(Event{
		Type:    "order",
		Symbol:  req.Symbol,
		Signal:  req.Direction.String(),
		Request: req,
		Outcome: out,
		At:      p.nowFn().UTC(),
	})
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", p.channel, err)
	}
	return nil
}

// Close 释放底层连接。
func (p *RedisPublisher) Close() error {
	if c, ok := p.client.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
