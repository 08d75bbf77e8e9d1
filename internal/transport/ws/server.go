// Package ws 提供推送通道网关：处理认证、join_room/leave_room 订阅管理，
// 将 Broker 收到的房间事件实时写回客户端。通道只做"加速"投递，
// 权威数据仍由轮询接口兜底，连接断开不影响正确性。
package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sankethl27/raya/internal/auth"
	"github.com/sankethl27/raya/internal/metrics"
	"github.com/sankethl27/raya/internal/models"
	"github.com/sankethl27/raya/internal/mq"
	"github.com/sankethl27/raya/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Server 是推送通道网关。
// - 注入 ChatSvc 做 join_room 前的参与者校验
// - 注入 Broker 按房间订阅下行事件
// - OnOnline/OnOffline 为可选的在线状态回调（Redis 可用时挂接）
// - 每个连接使用单独的写锁，避免并发写触发 gorilla/websocket 冲突
type Server struct {
	JWTSecret string
	ChatSvc   *services.ChatService
	Broker    mq.Broker

	OnOnline  func(ctx context.Context, userID string)
	OnOffline func(ctx context.Context, userID string)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle 处理 HTTP 升级为 WebSocket 以及该连接的事件循环。
// - 认证：URL 查询参数或 Authorization: Bearer 传递 JWT
// - 上行：authenticate、join_room、leave_room
// - 下行：按已加入房间转发 new_message 事件
func (s *Server) Handle(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	claims, err := auth.ParseJWT(s.JWTSecret, token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	userID := claims.UserID
	log.Printf("WS connected: user=%s", userID)
	if s.OnOnline != nil {
		s.OnOnline(c.Request.Context(), userID)
	}

	// 连接级 ctx：连接退出时取消所有房间订阅
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() {
		if s.OnOffline != nil {
			s.OnOffline(context.Background(), userID)
		}
		log.Printf("WS disconnected: user=%s", userID)
	}()

	// 每个连接的写锁，序列化所有写操作，避免 concurrent write
	writeMu := &sync.Mutex{}

	// roomID -> 取消该房间转发协程
	rooms := make(map[string]context.CancelFunc)
	var roomsMu sync.Mutex
	defer func() {
		roomsMu.Lock()
		for _, cancelRoom := range rooms {
			cancelRoom()
		}
		roomsMu.Unlock()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		var ev models.ChannelEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("WS unmarshal error: user=%s err=%v data=%q", userID, err, string(data))
			continue
		}
		metrics.ChannelEventsTotal.WithLabelValues(ev.Event).Inc()
		switch ev.Event {
		case models.EventAuthenticate:
			// 兼容旧客户端握手：身份以 JWT 为准，senderId 不一致时断开
			if ev.SenderID != "" && ev.SenderID != userID {
				log.Printf("WS authenticate mismatch: user=%s claimed=%s", userID, ev.SenderID)
				return
			}
		case models.EventJoinRoom:
			s.joinRoom(ctx, conn, writeMu, rooms, &roomsMu, userID, ev.RoomID)
		case models.EventLeaveRoom:
			roomsMu.Lock()
			if cancelRoom, ok := rooms[ev.RoomID]; ok {
				cancelRoom()
				delete(rooms, ev.RoomID)
				log.Printf("WS leave_room: user=%s room=%s", userID, ev.RoomID)
			}
			roomsMu.Unlock()
		default:
			log.Printf("WS unknown event: user=%s event=%s", userID, ev.Event)
		}
	}
}

// joinRoom 校验参与者身份后订阅房间通道，并启动转发协程。
// 重复 join 同一房间为无害操作。
func (s *Server) joinRoom(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex, rooms map[string]context.CancelFunc, roomsMu *sync.Mutex, userID, roomID string) {
	if roomID == "" {
		return
	}
	roomsMu.Lock()
	_, joined := rooms[roomID]
	roomsMu.Unlock()
	if joined {
		return
	}
	if _, err := s.ChatSvc.CanAccess(ctx, roomID, userID); err != nil {
		log.Printf("WS join_room denied: user=%s room=%s err=%v", userID, roomID, err)
		writeMu.Lock()
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"error","message":"forbidden"}`))
		writeMu.Unlock()
		return
	}
	sub, err := s.Broker.Subscribe(ctx, roomID)
	if err != nil {
		log.Printf("WS subscribe error: user=%s room=%s err=%v", userID, roomID, err)
		return
	}
	roomCtx, cancelRoom := context.WithCancel(ctx)
	roomsMu.Lock()
	rooms[roomID] = cancelRoom
	roomsMu.Unlock()
	log.Printf("WS join_room: user=%s room=%s", userID, roomID)

	go func() {
		defer sub.Close()
		for {
			payload, err := sub.Receive(roomCtx)
			if err != nil {
				return
			}
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			werr := conn.WriteMessage(websocket.TextMessage, payload)
			writeMu.Unlock()
			if werr != nil {
				log.Printf("WS write error: user=%s room=%s err=%v", userID, roomID, werr)
				return
			}
		}
	}()
}
