package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sankethl27/raya/internal/client"
	"github.com/sankethl27/raya/internal/models"
)

// fakeBackend 最小化的消息后端：POST /messages 确认发送，
// GET /rooms/:id/messages 返回已确认历史。gate 非 nil 时发送阻塞，
// 用于在网络往返完成前观察 Pending 状态。
type fakeBackend struct {
	t    *testing.T
	mux  *http.ServeMux
	gate chan struct{}

	mu     sync.Mutex
	msgs   []*models.Message
	nextID int
	fail   bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{t: t, mux: http.NewServeMux()}
	b.mux.HandleFunc("POST /messages", func(w http.ResponseWriter, r *http.Request) {
		if b.gate != nil {
			<-b.gate
		}
		if b.fail {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "backend down"})
			return
		}
		var req struct {
			RoomID string `json:"roomId"`
			Body   string `json:"body"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.nextID++
		m := &models.Message{
			ID:        fmt.Sprintf("srv-%03d", b.nextID),
			RoomID:    req.RoomID,
			SenderID:  "A",
			Body:      req.Body,
			CreatedAt: time.Now(),
		}
		b.msgs = append(b.msgs, m)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(m)
	})
	b.mux.HandleFunc("GET /rooms/", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		snapshot := append([]*models.Message(nil), b.msgs...)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(snapshot)
	})
	return b
}

func openTestSession(t *testing.T, b *fakeBackend) (*Session, func()) {
	srv := httptest.NewServer(b.mux)
	c := client.New(srv.URL, "tok")
	sess := Open(context.Background(), c, "r1", "A", SessionOptions{
		PollInterval:   time.Hour, // 测试内不依赖轮询节奏
		DisableChannel: true,
	})
	return sess, func() {
		sess.Close()
		srv.Close()
	}
}

func TestSendOptimisticVisibility(t *testing.T) {
	b := newFakeBackend(t)
	b.gate = make(chan struct{})
	sess, cleanup := openTestSession(t, b)
	defer cleanup()

	done := make(chan error, 1)
	go func() {
		_, err := sess.Send(context.Background(), "hello")
		done <- err
	}()

	// 网络未返回前 Pending 已可见
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := sess.Store.Snapshot()
		if len(snap) == 1 && snap[0].State == StatePending && snap[0].Body == "hello" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pending entry not visible: %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(b.gate)
	if err := <-done; err != nil {
		t.Fatalf("send: %v", err)
	}
	snap := sess.Store.Snapshot()
	if len(snap) != 1 || snap[0].State != StateConfirmed {
		t.Fatalf("pending not resolved: %+v", snap)
	}
	if !strings.HasPrefix(snap[0].ID, "srv-") {
		t.Fatalf("expected server id, got %s", snap[0].ID)
	}
}

func TestSendFailureRollsBack(t *testing.T) {
	b := newFakeBackend(t)
	b.fail = true
	sess, cleanup := openTestSession(t, b)
	defer cleanup()

	_, err := sess.Send(context.Background(), "doomed")
	if err == nil {
		t.Fatal("expected send error")
	}
	se, ok := err.(*SendError)
	if !ok {
		t.Fatalf("expected *SendError, got %T", err)
	}
	if se.Body != "doomed" {
		t.Fatalf("expected original body back, got %q", se.Body)
	}
	if got := len(sess.Store.Snapshot()); got != 0 {
		t.Fatalf("failed entry still visible: %d entries", got)
	}
}

func TestSendValidation(t *testing.T) {
	b := newFakeBackend(t)
	sess, cleanup := openTestSession(t, b)
	defer cleanup()

	if _, err := sess.Send(context.Background(), ""); err != ErrEmptyBody {
		t.Fatalf("expected ErrEmptyBody, got %v", err)
	}
	if _, err := sess.Send(context.Background(), strings.Repeat("x", models.MaxMessageBody+1)); err != ErrBodyTooLong {
		t.Fatalf("expected ErrBodyTooLong, got %v", err)
	}
	// 校验失败不发起网络请求、不留下任何条目
	if got := len(sess.Store.Snapshot()); got != 0 {
		t.Fatalf("validation left entries behind: %d", got)
	}
	if b.nextID != 0 {
		t.Fatal("validation error must not hit the backend")
	}
}

func TestTwoInFlightSendsBothResolve(t *testing.T) {
	// 同发送者两条并发发送：响应各自定点收敛，最终恰好两条
	// Confirmed，不残留 Pending、不产生重复条目。
	b := newFakeBackend(t)
	b.gate = make(chan struct{})
	sess, cleanup := openTestSession(t, b)
	defer cleanup()

	done := make(chan error, 2)
	go func() {
		_, err := sess.Send(context.Background(), "first")
		done <- err
	}()
	go func() {
		_, err := sess.Send(context.Background(), "second")
		done <- err
	}()

	// 两条 Pending 都可见后放行后端
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := sess.Store.Snapshot()
		if len(snap) == 2 && snap[0].State == StatePending && snap[1].State == StatePending {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("two pendings never visible: %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(b.gate)
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	snap := sess.Store.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(snap), snap)
	}
	bodies := map[string]bool{}
	for _, e := range snap {
		if e.State != StateConfirmed {
			t.Fatalf("entry %s still %v", e.ID, e.State)
		}
		if !strings.HasPrefix(e.ID, "srv-") {
			t.Fatalf("provisional id survived: %s", e.ID)
		}
		bodies[e.Body] = true
	}
	if !bodies["first"] || !bodies["second"] {
		t.Fatalf("bodies lost: %+v", snap)
	}
}

func TestCloseWaitsForAdapters(t *testing.T) {
	// Close 返回后适配器已退出，不再有轮询合并进入 Store
	b := newFakeBackend(t)
	srv := httptest.NewServer(b.mux)
	defer srv.Close()
	c := client.New(srv.URL, "tok")
	sess := Open(context.Background(), c, "r1", "A", SessionOptions{
		PollInterval:   10 * time.Millisecond,
		DisableChannel: true,
	})
	if _, err := sess.Send(context.Background(), "before close"); err != nil {
		t.Fatalf("send: %v", err)
	}
	sess.Close()

	size := len(sess.Store.Snapshot())
	b.mu.Lock()
	b.msgs = append(b.msgs, &models.Message{ID: "late", RoomID: "r1", SenderID: "B", Body: "after close", CreatedAt: time.Now()})
	b.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	if got := len(sess.Store.Snapshot()); got != size {
		t.Fatalf("store mutated after Close: %d -> %d", size, got)
	}
}

func TestProvisionalIDsDistinguishable(t *testing.T) {
	b := newFakeBackend(t)
	b.gate = make(chan struct{})
	sess, cleanup := openTestSession(t, b)
	defer cleanup()

	go sess.Send(context.Background(), "one")
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := sess.Store.Snapshot()
		if len(snap) == 1 {
			if !strings.HasPrefix(snap[0].ID, "local-") {
				t.Fatalf("provisional id not client-shaped: %s", snap[0].ID)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("pending entry never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}
	close(b.gate)
}
