// Package httpserver 组装 REST 路由：认证、房间、消息（轮询/发送）与通道升级。
package httpserver

import (
	"errors"
	"strconv"

	"github.com/sankethl27/raya/internal/auth"
	"github.com/sankethl27/raya/internal/models"
	"github.com/sankethl27/raya/internal/ratelimit"
	"github.com/sankethl27/raya/internal/services"
	"github.com/sankethl27/raya/internal/transport/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options 路由装配参数。Limiter 为 nil 时发送接口不限速（单机/测试）。
type Options struct {
	JWTSecret     string
	AuthSvc       *services.AuthService
	ChatSvc       *services.ChatService
	WS            *ws.Server
	Limiter       *ratelimit.TokenBucketLimiter
	SendQPS       int
	SendBurst     int
	EnableMetrics bool
}

// 解析查询参数为整数
func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	value, _ := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(defaultValue)))
	return value
}

// New 构建 gin 引擎并注册全部路由。
func New(opts Options) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })
	if opts.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// 注册
	r.POST("/auth/register", func(c *gin.Context) {
		var req struct {
			Username    string `json:"username"`
			Password    string `json:"password"`
			DisplayName string `json:"displayName"`
			UserType    string `json:"userType"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		u, err := opts.AuthSvc.Register(c, req.Username, req.Password, req.DisplayName, req.UserType)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUserExists):
				c.JSON(409, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrBadUserType), errors.Is(err, services.ErrBadLogin):
				c.JSON(400, gin.H{"error": err.Error()})
			default:
				c.JSON(500, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(200, gin.H{"id": u.ID})
	})

	// 登录
	r.POST("/auth/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		tok, u, err := opts.AuthSvc.Login(c, req.Username, req.Password)
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(200, gin.H{"token": tok, "userId": u.ID, "displayName": u.DisplayName, "userType": u.UserType})
	})

	// 简易认证
	authn := func(c *gin.Context) (string, bool) {
		tok := c.GetHeader("Authorization")
		if len(tok) > 7 && tok[:7] == "Bearer " {
			tok = tok[7:]
		}
		cl, err := auth.ParseJWT(opts.JWTSecret, tok)
		if err != nil {
			c.JSON(401, gin.H{"error": "unauthorized"})
			return "", false
		}
		return cl.UserID, true
	}

	// 用户资料
	r.PUT("/users/me", func(c *gin.Context) {
		uid, ok := authn(c)
		if !ok {
			return
		}
		var req struct {
			DisplayName string `json:"displayName"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		if err := opts.AuthSvc.UpdateProfile(c, uid, req.DisplayName); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.Status(204)
	})

	// 房间列表
	r.GET("/rooms", func(c *gin.Context) {
		uid, ok := authn(c)
		if !ok {
			return
		}
		limit := parseIntQuery(c, "limit", 100)
		rooms, err := opts.ChatSvc.ListRooms(c, uid, limit)
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, rooms)
	})

	// 创建/复用房间
	r.POST("/rooms", func(c *gin.Context) {
		uid, ok := authn(c)
		if !ok {
			return
		}
		var req struct {
			Kind          string `json:"kind"`
			ParticipantID string `json:"participantId"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		room, err := opts.ChatSvc.CreateRoom(c, models.RoomKind(req.Kind), uid, req.ParticipantID)
		if err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		c.JSON(200, room)
	})

	// 历史消息（轮询权威读）
	r.GET("/rooms/:id/messages", func(c *gin.Context) {
		uid, ok := authn(c)
		if !ok {
			return
		}
		limit := parseIntQuery(c, "limit", 1000)
		msgs, err := opts.ChatSvc.ListMessages(c, c.Param("id"), uid, limit)
		if err != nil {
			writeChatError(c, err)
			return
		}
		c.JSON(200, msgs)
	})

	// 发送消息
	r.POST("/messages", func(c *gin.Context) {
		uid, ok := authn(c)
		if !ok {
			return
		}
		if opts.Limiter != nil {
			qps, burst := opts.SendQPS, opts.SendBurst
			if qps <= 0 {
				qps = 10
			}
			if burst <= 0 {
				burst = 20
			}
			// 出错时放行，限流只防滥用不碰正确性
			if allowed, _, _ := opts.Limiter.Allow(c, ratelimit.SendKey(uid), qps, burst); !allowed {
				c.JSON(429, gin.H{"error": "rate limited"})
				return
			}
		}
		var req struct {
			RoomID string `json:"roomId"`
			Body   string `json:"body"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		m, err := opts.ChatSvc.SendMessage(c, req.RoomID, uid, req.Body)
		if err != nil {
			writeChatError(c, err)
			return
		}
		c.JSON(200, m)
	})

	// 推送通道
	if opts.WS != nil {
		r.GET("/ws", opts.WS.Handle)
	}

	return r
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		c.JSON(404, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotMember):
		c.JSON(403, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrBodyTooLong):
		c.JSON(400, gin.H{"error": err.Error()})
	default:
		c.JSON(500, gin.H{"error": err.Error()})
	}
}
