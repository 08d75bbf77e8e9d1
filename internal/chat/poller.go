package chat

import (
	"context"
	"log"
	"time"

	"github.com/sankethl27/raya/internal/client"
)

// Poller 轮询适配器：固定间隔拉取房间全量历史并整体合并。
// 轮询是权威来源，也是推送通道断连期间的兜底：
// 拉取失败只记日志，下一个周期自愈，不做额外退避。
type Poller struct {
	Client   *client.Client
	Store    *Store
	RoomID   string
	Interval time.Duration
}

func NewPoller(c *client.Client, store *Store, roomID string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Poller{Client: c, Store: store, RoomID: roomID, Interval: interval}
}

// Run 阻塞运行直到 ctx 取消。启动时先拉一次，随后按间隔轮询。
func (p *Poller) Run(ctx context.Context) {
	p.pollOnce(ctx)
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	msgs, err := p.Client.FetchMessages(ctx, p.RoomID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("poll: 拉取失败 room=%s err=%v", p.RoomID, err)
		return
	}
	p.Store.MergeConfirmed(msgs)
}
