package chat

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/sankethl27/raya/internal/client"
	"github.com/sankethl27/raya/internal/models"

	"github.com/gorilla/websocket"
)

// Channel 推送适配器：订阅房间的实时通道，收到 new_message 事件
// 就作为单元素批次合并进 Store。断线自动重连并重新 join，
// 断连期间丢失的消息由轮询补齐，这里不做重放。
type Channel struct {
	Client   *client.Client
	Store    *Store
	RoomID   string
	SenderID string

	// RetryDelay 重连间隔，默认 2s
	RetryDelay time.Duration
}

func NewChannel(c *client.Client, store *Store, roomID, senderID string) *Channel {
	return &Channel{Client: c, Store: store, RoomID: roomID, SenderID: senderID, RetryDelay: 2 * time.Second}
}

// Run 阻塞运行直到 ctx 取消；连接失败或断开后按 RetryDelay 重试。
func (ch *Channel) Run(ctx context.Context) {
	delay := ch.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	for {
		if err := ch.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("channel: 连接中断 room=%s err=%v", ch.RoomID, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// runOnce 单次连接生命周期：握手、join、读循环。
func (ch *Channel) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, ch.Client.WSURL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// ctx 取消时主动发 leave_room 并关闭连接，解除 ReadMessage 阻塞
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteJSON(models.ChannelEvent{Event: models.EventLeaveRoom, RoomID: ch.RoomID})
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(models.ChannelEvent{Event: models.EventAuthenticate, SenderID: ch.SenderID}); err != nil {
		return err
	}
	if err := conn.WriteJSON(models.ChannelEvent{Event: models.EventJoinRoom, RoomID: ch.RoomID}); err != nil {
		return err
	}
	log.Printf("channel: 已加入 room=%s", ch.RoomID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev models.ChannelEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("channel: 解包失败 room=%s err=%v", ch.RoomID, err)
			continue
		}
		if ev.Event != models.EventNewMessage || ev.Payload == nil {
			continue
		}
		ch.Store.MergeConfirmed([]*models.Message{ev.Payload})
	}
}
