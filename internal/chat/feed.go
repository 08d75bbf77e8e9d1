package chat

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Feed 展示层：把 Store 的有序快照渲染为文本行。
// 序列只在尾部增长时做追加输出（自动"滚动"到底部），
// 中间发生重排/回滚时整体重绘。
type Feed struct {
	Store *Store
	Out   io.Writer

	// Self 本端用户 id，渲染时标记 "me"
	Self string

	lastLines []string
}

func NewFeed(store *Store, out io.Writer, self string) *Feed {
	return &Feed{Store: store, Out: out, Self: self}
}

// Run 订阅 Store 变更并持续渲染，直到 ctx 取消。
func (f *Feed) Run(ctx context.Context) {
	ch := f.Store.Subscribe()
	f.Render()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ch:
			f.Render()
		}
	}
}

// Render 输出当前序列与上次渲染的增量。
func (f *Feed) Render() {
	lines := f.lines()
	if isPrefix(f.lastLines, lines) {
		for _, l := range lines[len(f.lastLines):] {
			fmt.Fprintln(f.Out, l)
		}
	} else {
		// 非追加变更：整体重绘
		fmt.Fprintln(f.Out, "--- ")
		for _, l := range lines {
			fmt.Fprintln(f.Out, l)
		}
	}
	f.lastLines = lines
}

func (f *Feed) lines() []string {
	snap := f.Store.Snapshot()
	lines := make([]string, 0, len(snap))
	for _, e := range snap {
		var b strings.Builder
		b.WriteString(e.CreatedAt.Format("15:04:05"))
		b.WriteByte(' ')
		if e.SenderID == f.Self {
			b.WriteString("me")
		} else {
			b.WriteString(e.SenderID)
		}
		if e.State == StatePending {
			b.WriteString(" (sending)")
		}
		b.WriteString(": ")
		b.WriteString(e.Body)
		lines = append(lines, b.String())
	}
	return lines
}

func isPrefix(prev, cur []string) bool {
	if len(prev) > len(cur) {
		return false
	}
	for i := range prev {
		if prev[i] != cur[i] {
			return false
		}
	}
	return true
}
