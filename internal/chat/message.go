// Package chat 实现客户端侧的消息对账核心：
// 乐观发送、推送通道、轮询三个来源的消息在此合流，
// 输出单一、去重、按时间排序的可见序列。
package chat

import "github.com/sankethl27/raya/internal/models"

// State 消息的对账状态。
type State int

const (
	// StatePending 本地乐观插入，等待服务端确认
	StatePending State = iota
	// StateConfirmed 服务端已确认（权威 id 与时间）
	StateConfirmed
	// StateFailed 发送被拒绝，已从可见序列移除
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Entry 序列中的一条消息。
// - Pending 条目的 ID 为客户端临时 id，确认后原位替换为服务端 id
// - seq 记录插入顺序，作为 createdAt 相同时的稳定排序依据
type Entry struct {
	models.Message
	State State

	seq int64
}
