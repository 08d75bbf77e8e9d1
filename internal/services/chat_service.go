package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"github.com/sankethl27/raya/internal/metrics"
	"github.com/sankethl27/raya/internal/models"
	"github.com/sankethl27/raya/internal/mq"
	"github.com/sankethl27/raya/internal/store"

	"github.com/google/uuid"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrNotMember    = errors.New("not a participant of this room")
	ErrEmptyMessage = errors.New("message body is empty")
	ErrBodyTooLong  = errors.New("message body exceeds limit")
)

// ChatService 聊天域核心服务：
// - SendMessage：校验 + 落库（幂等）+ 房间时间戳 + 推送通道广播
// - ListMessages / ListRooms：轮询与列表的权威读路径
// - CreateRoom：同 kind 同参与者对去重复用既有房间
type ChatService struct {
	Rooms    store.RoomStoreInterface
	Messages store.MessageStoreInterface
	Broker   mq.Broker
}

func NewChatService(rooms store.RoomStoreInterface, messages store.MessageStoreInterface, broker mq.Broker) *ChatService {
	return &ChatService{Rooms: rooms, Messages: messages, Broker: broker}
}

// CanAccess 校验用户是否为房间参与者。
func (s *ChatService) CanAccess(ctx context.Context, roomID, userID string) (*models.Room, error) {
	r, err := s.Rooms.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRoomNotFound
	}
	if r.Participant1ID != userID && r.Participant2ID != userID {
		return nil, ErrNotMember
	}
	return r, nil
}

// SendMessage 服务端签发 id 与 createdAt，写库后向房间通道广播 new_message。
func (s *ChatService) SendMessage(ctx context.Context, roomID, senderID, body string) (*models.Message, error) {
	if body == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > models.MaxMessageBody {
		return nil, ErrBodyTooLong
	}
	if _, err := s.CanAccess(ctx, roomID, senderID); err != nil {
		return nil, err
	}
	m := &models.Message{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	start := time.Now()
	if err := s.Messages.Append(ctx, m); err != nil {
		return nil, err
	}
	if err := s.Rooms.TouchLastMessage(ctx, roomID, m.CreatedAt); err != nil {
		log.Printf("SendMessage: 更新房间时间戳失败 room=%s err=%v", roomID, err)
	}
	s.broadcast(ctx, m)
	metrics.MessagesSentTotal.Inc()
	metrics.MessageSendLatency.Observe(float64(time.Since(start).Milliseconds()))
	return m, nil
}

// broadcast 推送为尽力而为：失败仅记日志，轮询链路兜底。
func (s *ChatService) broadcast(ctx context.Context, m *models.Message) {
	if s.Broker == nil {
		return
	}
	ev := models.ChannelEvent{Event: models.EventNewMessage, RoomID: m.RoomID, Payload: m}
	data, err := json.Marshal(&ev)
	if err != nil {
		log.Printf("broadcast: 序列化失败 msg=%s err=%v", m.ID, err)
		return
	}
	if err := s.Broker.Publish(ctx, m.RoomID, data); err != nil {
		log.Printf("broadcast: 发布失败 room=%s msg=%s err=%v", m.RoomID, m.ID, err)
	}
}

// ListMessages 轮询读路径：参与者校验后按 createdAt 升序返回全量历史。
func (s *ChatService) ListMessages(ctx context.Context, roomID, userID string, limit int) ([]*models.Message, error) {
	if _, err := s.CanAccess(ctx, roomID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.Messages.ListByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, nil
}

func (s *ChatService) ListRooms(ctx context.Context, userID string, limit int) ([]*models.Room, error) {
	rooms, err := s.Rooms.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []*models.Room{}
	}
	return rooms, nil
}

// CreateRoom 创建或复用会话：同 kind 下同一参与者对只存在一个房间。
func (s *ChatService) CreateRoom(ctx context.Context, kind models.RoomKind, creatorID, otherID string) (*models.Room, error) {
	if otherID == "" || otherID == creatorID {
		return nil, errors.New("invalid participant")
	}
	exist, err := s.Rooms.FindByParticipants(ctx, kind, creatorID, otherID)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return exist, nil
	}
	now := time.Now().UTC()
	r := &models.Room{
		ID:             uuid.NewString(),
		Kind:           kind,
		Participant1ID: creatorID,
		Participant2ID: otherID,
		CreatedAt:      now,
		LastMessageAt:  now,
	}
	if err := s.Rooms.Create(ctx, r); err != nil {
		return nil, err
	}
	log.Printf("CreateRoom: 创建房间 room=%s kind=%s", r.ID, kind)
	return r, nil
}
