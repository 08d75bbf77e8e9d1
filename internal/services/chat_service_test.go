package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sankethl27/raya/internal/models"
	"github.com/sankethl27/raya/internal/mq"
	"github.com/sankethl27/raya/internal/store"
)

func newFixture(t *testing.T) (*ChatService, *store.Memory, *mq.LocalBroker) {
	mem := store.NewMemory()
	broker := mq.NewLocalBroker()
	return NewChatService(mem.Rooms, mem.Messages, broker), mem, broker
}

func seedRoom(t *testing.T, mem *store.Memory) *models.Room {
	t.Helper()
	r := &models.Room{ID: "r1", Kind: models.RoomKindVenueArtist, Participant1ID: "a", Participant2ID: "b", CreatedAt: time.Now(), LastMessageAt: time.Now()}
	if err := mem.Rooms.Create(context.Background(), r); err != nil {
		t.Fatalf("seed room: %v", err)
	}
	return r
}

func TestSendMessageValidation(t *testing.T) {
	svc, mem, _ := newFixture(t)
	seedRoom(t, mem)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "r1", "a", ""); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	long := strings.Repeat("x", models.MaxMessageBody+1)
	if _, err := svc.SendMessage(ctx, "r1", "a", long); !errors.Is(err, ErrBodyTooLong) {
		t.Fatalf("expected ErrBodyTooLong, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, "r1", "stranger", "hi"); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
	if _, err := svc.SendMessage(ctx, "missing", "a", "hi"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	svc, mem, broker := newFixture(t)
	seedRoom(t, mem)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, "r1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	m, err := svc.SendMessage(ctx, "r1", "a", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if m.ID == "" || m.CreatedAt.IsZero() {
		t.Fatalf("server fields not assigned: %+v", m)
	}

	// 入库
	msgs, _ := mem.Messages.ListByRoom(ctx, "r1", 0)
	if len(msgs) != 1 || msgs[0].ID != m.ID {
		t.Fatalf("message not persisted: %+v", msgs)
	}
	// 房间时间戳前移
	r, _ := mem.Rooms.GetByID(ctx, "r1")
	if !r.LastMessageAt.Equal(m.CreatedAt) {
		t.Fatalf("last_message_at not touched: %v vs %v", r.LastMessageAt, m.CreatedAt)
	}
	// 通道收到 new_message 事件
	recvCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	data, err := sub.Receive(recvCtx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var ev models.ChannelEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if ev.Event != models.EventNewMessage || ev.Payload == nil || ev.Payload.ID != m.ID {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestListMessagesAuthz(t *testing.T) {
	svc, mem, _ := newFixture(t)
	seedRoom(t, mem)
	ctx := context.Background()

	if _, err := svc.SendMessage(ctx, "r1", "a", "one"); err != nil {
		t.Fatalf("send: %v", err)
	}
	msgs, err := svc.ListMessages(ctx, "r1", "b", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if _, err := svc.ListMessages(ctx, "r1", "stranger", 0); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestCreateRoomDedupe(t *testing.T) {
	svc, _, _ := newFixture(t)
	ctx := context.Background()

	r1, err := svc.CreateRoom(ctx, models.RoomKindVenueArtist, "a", "b")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// 反向参与者也命中同一房间
	r2, err := svc.CreateRoom(ctx, models.RoomKindVenueArtist, "b", "a")
	if err != nil {
		t.Fatalf("create reversed: %v", err)
	}
	if r1.ID != r2.ID {
		t.Fatalf("expected dedupe, got %s and %s", r1.ID, r2.ID)
	}
	// 不能与自己建房
	if _, err := svc.CreateRoom(ctx, models.RoomKindVenueArtist, "a", "a"); err == nil {
		t.Fatal("expected self room rejection")
	}
}
