package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sankethl27/raya/internal/client"
	"github.com/sankethl27/raya/internal/models"
)

var (
	ErrEmptyBody   = errors.New("message body is empty")
	ErrBodyTooLong = fmt.Errorf("message body exceeds %d characters", models.MaxMessageBody)
)

// SendError 发送失败时返回：Body 为已回滚的原文，供恢复到输入框。
type SendError struct {
	Err  error
	Body string
}

func (e *SendError) Error() string { return "send failed: " + e.Err.Error() }
func (e *SendError) Unwrap() error { return e.Err }

// SessionOptions 会话参数；零值使用默认轮询间隔与匹配窗口。
type SessionOptions struct {
	PollInterval  time.Duration
	ResolveWindow time.Duration
	// DisableChannel 仅轮询模式（推送通道不可用时退化使用）
	DisableChannel bool
}

// Session 一个房间、一个界面生命周期内的聊天会话。
// 持有 Store 与两个传输适配器；Open 启动、Close 释放，
// 定时器与通道连接都随会话退出而回收。
type Session struct {
	Store *Store

	client   *client.Client
	roomID   string
	senderID string

	cancel context.CancelFunc
	wg     sync.WaitGroup
	seq    atomic.Int64
}

// Open 创建会话并启动轮询与推送两个适配器。
func Open(ctx context.Context, c *client.Client, roomID, senderID string, opts SessionOptions) *Session {
	store := NewStore()
	if opts.ResolveWindow > 0 {
		store.SetResolveWindow(opts.ResolveWindow)
	}
	runCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		Store:    store,
		client:   c,
		roomID:   roomID,
		senderID: senderID,
		cancel:   cancel,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		NewPoller(c, store, roomID, opts.PollInterval).Run(runCtx)
	}()
	if !opts.DisableChannel {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			NewChannel(c, store, roomID, senderID).Run(runCtx)
		}()
	}
	return s
}

// Close 停止轮询与推送通道，等两个适配器退出后返回；
// 返回后不再有新的合并进入 Store。幂等。
func (s *Session) Close() {
	s.cancel()
	s.wg.Wait()
}

// provisionalID 客户端临时 id：与服务端 uuid 可区分，且本会话内单调。
func (s *Session) provisionalID() string {
	return fmt.Sprintf("local-%d-%d", time.Now().UnixMilli(), s.seq.Add(1))
}

// Send 乐观发送：
//  1. 本地校验正文（空/超长直接拒绝，不发起网络请求）
//  2. 以临时 id 先插入 Pending，发送方立即可见
//  3. 请求后端；成功以响应中的确认消息收敛 Pending，
//     失败回滚并通过 SendError 归还原文
//
// 每次调用恰好一次 Pending 插入、恰好一次终态收敛。
func (s *Session) Send(ctx context.Context, body string) (*models.Message, error) {
	if body == "" {
		return nil, ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > models.MaxMessageBody {
		return nil, ErrBodyTooLong
	}

	pid := s.provisionalID()
	s.Store.InsertPending(&models.Message{
		ID:        pid,
		RoomID:    s.roomID,
		SenderID:  s.senderID,
		Body:      body,
		CreatedAt: time.Now(),
	})

	m, err := s.client.SendMessage(ctx, s.roomID, body)
	if err != nil {
		restored, _ := s.Store.MarkFailed(pid)
		if restored == "" {
			// Pending 已被推送/轮询抢先收敛，原文照常归还
			restored = body
		}
		return nil, &SendError{Err: err, Body: restored}
	}
	// 定点收敛：响应归属自己的 Pending，不依赖启发式
	s.Store.ResolveConfirmed(pid, m)
	return m, nil
}
