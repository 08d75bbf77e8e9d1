package mq

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/sankethl27/raya/internal/cache"
)

// RedisBroker 基于 Redis Pub/Sub 的房间投递，多实例部署时保证
// 任一实例入库的消息都能到达所有实例上的订阅连接。
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(c *redis.Client) *RedisBroker { return &RedisBroker{client: c} }

func (b *RedisBroker) Publish(ctx context.Context, roomID string, payload []byte) error {
	return b.client.Publish(ctx, cache.RoomChannel(roomID), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	sub := b.client.Subscribe(ctx, cache.RoomChannel(roomID))
	// 等待订阅建立，避免订阅前发布的消息无声丢失
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	return &redisSub{sub: sub}, nil
}

type redisSub struct{ sub *redis.PubSub }

func (s *redisSub) Receive(ctx context.Context) ([]byte, error) {
	msg, err := s.sub.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (s *redisSub) Close() error { return s.sub.Close() }
