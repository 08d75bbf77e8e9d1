package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sankethl27/raya/internal/models"
)

// Memory 内存存储，三个子视图分别实现用户/房间/消息接口。
// 用途：
// - 单机演示（message_db=memory，默认）
// - 测试环境无需 MySQL/MongoDB
type Memory struct {
	Users    *MemUserStore
	Rooms    *MemRoomStore
	Messages *MemMessageStore
}

func NewMemory() *Memory {
	st := &memState{
		users:    make(map[string]*models.User),
		byName:   make(map[string]string),
		rooms:    make(map[string]*models.Room),
		messages: make(map[string][]*models.Message),
		msgIDs:   make(map[string]struct{}),
	}
	return &Memory{
		Users:    &MemUserStore{st: st},
		Rooms:    &MemRoomStore{st: st},
		Messages: &MemMessageStore{st: st},
	}
}

type memState struct {
	mu       sync.Mutex
	users    map[string]*models.User // id -> user
	byName   map[string]string       // username -> id
	rooms    map[string]*models.Room
	messages map[string][]*models.Message // roomID -> messages
	msgIDs   map[string]struct{}          // 幂等去重
}

// enrich 补充参与者展示名。调用方须持锁。
func (st *memState) enrich(r *models.Room) *models.Room {
	cp := *r
	if u, ok := st.users[r.Participant1ID]; ok {
		cp.Participant1Name = u.DisplayName
	}
	if u, ok := st.users[r.Participant2ID]; ok {
		cp.Participant2Name = u.DisplayName
	}
	return &cp
}

type MemUserStore struct{ st *memState }

func (s *MemUserStore) CreateUser(ctx context.Context, u *models.User) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if _, ok := s.st.byName[u.Username]; ok {
		return fmt.Errorf("username exists: %s", u.Username)
	}
	cp := *u
	s.st.users[u.ID] = &cp
	s.st.byName[u.Username] = u.ID
	return nil
}

func (s *MemUserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	id, ok := s.st.byName[username]
	if !ok {
		return nil, nil
	}
	cp := *s.st.users[id]
	return &cp, nil
}

func (s *MemUserStore) GetByID(ctx context.Context, userID string) (*models.User, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	u, ok := s.st.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemUserStore) UpdateUser(ctx context.Context, u *models.User) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if cur, ok := s.st.users[u.ID]; ok {
		cur.DisplayName = u.DisplayName
		cur.UpdatedAt = time.Now()
	}
	return nil
}

type MemRoomStore struct{ st *memState }

func (s *MemRoomStore) Create(ctx context.Context, r *models.Room) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	cp := *r
	s.st.rooms[r.ID] = &cp
	return nil
}

func (s *MemRoomStore) GetByID(ctx context.Context, roomID string) (*models.Room, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	r, ok := s.st.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return s.st.enrich(r), nil
}

func (s *MemRoomStore) FindByParticipants(ctx context.Context, kind models.RoomKind, a, b string) (*models.Room, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	for _, r := range s.st.rooms {
		if r.Kind != kind {
			continue
		}
		if (r.Participant1ID == a && r.Participant2ID == b) || (r.Participant1ID == b && r.Participant2ID == a) {
			return s.st.enrich(r), nil
		}
	}
	return nil, nil
}

func (s *MemRoomStore) ListByUser(ctx context.Context, userID string, limit int) ([]*models.Room, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var res []*models.Room
	for _, r := range s.st.rooms {
		if r.Participant1ID == userID || r.Participant2ID == userID {
			res = append(res, s.st.enrich(r))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].LastMessageAt.After(res[j].LastMessageAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *MemRoomStore) TouchLastMessage(ctx context.Context, roomID string, at time.Time) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if r, ok := s.st.rooms[roomID]; ok {
		r.LastMessageAt = at
	}
	return nil
}

type MemMessageStore struct{ st *memState }

// Append 幂等写入：同 id 消息只保留首次。
func (s *MemMessageStore) Append(ctx context.Context, msg *models.Message) error {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if _, ok := s.st.msgIDs[msg.ID]; ok {
		return nil
	}
	s.st.msgIDs[msg.ID] = struct{}{}
	cp := *msg
	s.st.messages[msg.RoomID] = append(s.st.messages[msg.RoomID], &cp)
	return nil
}

func (s *MemMessageStore) ListByRoom(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	src := s.st.messages[roomID]
	res := make([]*models.Message, 0, len(src))
	for _, msg := range src {
		cp := *msg
		res = append(res, &cp)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}
