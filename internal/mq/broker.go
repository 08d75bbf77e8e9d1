// Package mq 提供房间消息投递的 Broker 抽象：
// HTTP 发送入库后向房间通道发布事件，WS 网关按房间订阅并写回客户端。
// 单机/测试用 LocalBroker；多实例部署用 RedisBroker（Redis Pub/Sub）。
package mq

import (
	"context"
	"sync"
)

// Broker 房间级发布/订阅。Publish 投递的是完整的下行事件 JSON。
type Broker interface {
	Publish(ctx context.Context, roomID string, payload []byte) error
	Subscribe(ctx context.Context, roomID string) (Subscription, error)
}

// Subscription 单个房间的订阅句柄；Receive 阻塞直到有消息或 ctx 取消。
type Subscription interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// LocalBroker 进程内投递（无外部依赖）。
type LocalBroker struct {
	mu   sync.Mutex
	subs map[string][]*localSub
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string][]*localSub)}
}

type localSub struct {
	broker *LocalBroker
	roomID string
	ch     chan []byte
	once   sync.Once
}

func (b *LocalBroker) Publish(ctx context.Context, roomID string, payload []byte) error {
	b.mu.Lock()
	subs := append([]*localSub(nil), b.subs[roomID]...)
	b.mu.Unlock()
	for _, s := range subs {
		select {
		case s.ch <- payload:
		default:
			// 订阅方积压时丢弃：下一次轮询会补齐
		}
	}
	return nil
}

// Subscribers 返回房间当前的订阅连接数。
func (b *LocalBroker) Subscribers(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[roomID])
}

func (b *LocalBroker) Subscribe(ctx context.Context, roomID string) (Subscription, error) {
	s := &localSub{broker: b, roomID: roomID, ch: make(chan []byte, 64)}
	b.mu.Lock()
	b.subs[roomID] = append(b.subs[roomID], s)
	b.mu.Unlock()
	return s, nil
}

func (s *localSub) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p, ok := <-s.ch:
		if !ok {
			return nil, context.Canceled
		}
		return p, nil
	}
}

func (s *localSub) Close() error {
	s.once.Do(func() {
		b := s.broker
		b.mu.Lock()
		list := b.subs[s.roomID]
		for i, it := range list {
			if it == s {
				b.subs[s.roomID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
	})
	return nil
}
