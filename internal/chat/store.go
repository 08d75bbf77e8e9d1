package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/sankethl27/raya/internal/models"
)

// DefaultResolveWindow Pending 与推送/轮询到达的确认消息按
// 发送者+时近匹配时的窗口上限。窗口外的确认消息视为新消息插入。
const DefaultResolveWindow = 30 * time.Second

// Store 持有单个房间的消息序列，是唯一的变更入口。
// 三个来源（乐观插入、推送事件、轮询快照）都经由它合并，
// 幂等合并使来源间的重叠无害。
type Store struct {
	mu      sync.Mutex
	entries []*Entry
	byID    map[string]*Entry // 含 pending 临时 id 与 confirmed id

	resolveWindow time.Duration
	nextSeq       int64

	// 变更通知：容量 1，多次变更合并为一次唤醒
	watchers []chan struct{}
}

func NewStore() *Store {
	return &Store{
		byID:          make(map[string]*Entry),
		resolveWindow: DefaultResolveWindow,
	}
}

// SetResolveWindow 调整匹配窗口（测试或弱网场景）。
func (s *Store) SetResolveWindow(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.resolveWindow = d
	}
}

// InsertPending 插入一条待确认消息，发送方立即可见。
// 同 id 重复插入为无害操作。
func (s *Store) InsertPending(m *models.Message) {
	s.mu.Lock()
	if _, ok := s.byID[m.ID]; ok {
		s.mu.Unlock()
		return
	}
	e := &Entry{Message: *m, State: StatePending, seq: s.nextSeq}
	s.nextSeq++
	s.byID[e.ID] = e
	s.entries = append(s.entries, e)
	s.resortLocked()
	s.mu.Unlock()
	s.notify()
}

// MergeConfirmed 合并一批服务端确认的消息（来自轮询快照、推送事件
// 或发送响应）。逐条处理：
// - 已存在同 id 条目：跳过（幂等）
// - 存在可归属的 Pending 条目：原位替换并标记 Confirmed
// - 否则：作为新确认消息插入
// 合并后按 createdAt 重排，插入顺序决定同时间戳的相对位置。
func (s *Store) MergeConfirmed(batch []*models.Message) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	changed := false
	for _, m := range batch {
		if m == nil || m.ID == "" {
			continue
		}
		if _, ok := s.byID[m.ID]; ok {
			continue
		}
		if p := s.matchPendingLocked(m); p != nil {
			delete(s.byID, p.ID)
			p.Message = *m
			p.State = StateConfirmed
			s.byID[m.ID] = p
			changed = true
			continue
		}
		e := &Entry{Message: *m, State: StateConfirmed, seq: s.nextSeq}
		s.nextSeq++
		s.byID[e.ID] = e
		s.entries = append(s.entries, e)
		changed = true
	}
	if changed {
		s.resortLocked()
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// matchPendingLocked 推送/轮询路径的发送者+时近启发式：
// 仅当该发送者恰有一条未决 Pending，且确认消息的时间落在
// Pending 时间之后的窗口内时，视为同一次逻辑发送。
// 同发送者存在多条未决 Pending 时放弃匹配（避免错配），
// 由发送响应路径精确收敛。
func (s *Store) matchPendingLocked(m *models.Message) *Entry {
	var candidate *Entry
	for _, e := range s.entries {
		if e.State != StatePending || e.SenderID != m.SenderID {
			continue
		}
		if candidate != nil {
			return nil
		}
		candidate = e
	}
	if candidate == nil {
		return nil
	}
	if m.CreatedAt.Before(candidate.CreatedAt.Add(-time.Second)) {
		return nil
	}
	if m.CreatedAt.After(candidate.CreatedAt.Add(s.resolveWindow)) {
		return nil
	}
	return candidate
}

// ResolveConfirmed 以临时 id 定点收敛发送响应：
// 这是发送管线的可靠收敛路径，不走启发式，因此同发送者多条在途
// Pending 或客户端/服务端时钟偏差都不影响各自响应的精确归属。
//   - 临时 id 仍为 Pending：原位替换为确认消息
//   - 确认 id 已存在（推送/轮询抢先入库）：若 Pending 仍在则移除它，
//     序列不会同时展示 Pending 与其确认版本
//   - Pending 已不在（已被收敛或回滚）：退化为普通插入
func (s *Store) ResolveConfirmed(provisionalID string, m *models.Message) {
	if m == nil || m.ID == "" {
		return
	}
	s.mu.Lock()
	p, hasPending := s.byID[provisionalID]
	if hasPending && p.State != StatePending {
		hasPending = false
	}
	if _, ok := s.byID[m.ID]; ok {
		if !hasPending {
			s.mu.Unlock()
			return
		}
		delete(s.byID, provisionalID)
		for i, it := range s.entries {
			if it == p {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		s.notify()
		return
	}
	if hasPending {
		delete(s.byID, provisionalID)
		p.Message = *m
		p.State = StateConfirmed
		s.byID[m.ID] = p
	} else {
		e := &Entry{Message: *m, State: StateConfirmed, seq: s.nextSeq}
		s.nextSeq++
		s.byID[m.ID] = e
		s.entries = append(s.entries, e)
	}
	s.resortLocked()
	s.mu.Unlock()
	s.notify()
}

// MarkFailed 将 Pending 条目置为 Failed 并从可见序列移除，
// 返回其正文供调用方恢复到输入框。未找到时返回 ("", false)。
func (s *Store) MarkFailed(provisionalID string) (string, bool) {
	s.mu.Lock()
	e, ok := s.byID[provisionalID]
	if !ok || e.State != StatePending {
		s.mu.Unlock()
		return "", false
	}
	delete(s.byID, provisionalID)
	for i, it := range s.entries {
		if it == e {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	e.State = StateFailed
	s.mu.Unlock()
	s.notify()
	return e.Body, true
}

// Snapshot 返回当前序列的有序副本，供渲染层重复读取。
func (s *Store) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = *e
	}
	return out
}

// Subscribe 返回变更通知通道；每次插入/合并/失败回滚后收到一次信号。
// 通道容量为 1，密集变更会被合并。
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify() {
	s.mu.Lock()
	watchers := s.watchers
	s.mu.Unlock()
	for _, ch := range watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// resortLocked 稳定排序：createdAt 升序，相同时按插入顺序。
func (s *Store) resortLocked() {
	sort.SliceStable(s.entries, func(i, j int) bool {
		a, b := s.entries[i], s.entries[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.seq < b.seq
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
