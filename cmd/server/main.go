package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sankethl27/raya/internal/cache"
	"github.com/sankethl27/raya/internal/config"
	"github.com/sankethl27/raya/internal/httpserver"
	"github.com/sankethl27/raya/internal/metrics"
	"github.com/sankethl27/raya/internal/mq"
	"github.com/sankethl27/raya/internal/ratelimit"
	"github.com/sankethl27/raya/internal/services"
	"github.com/sankethl27/raya/internal/store"
	"github.com/sankethl27/raya/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	if cfg.RedisAddr != "" {
		cache.InitRedis(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	}
	if cfg.EnableMetrics {
		metrics.Init()
	}

	// 根据配置选择存储：memory（单机/演示）、mysql 或 mongodb
	var (
		userStore store.UserStoreInterface
		roomStore store.RoomStoreInterface
		msgStore  store.MessageStoreInterface
	)
	switch cfg.MessageDB {
	case "mysql":
		db, err := store.Open(cfg.MySQLDSN)
		if err != nil {
			panic(fmt.Sprintf("MySQL open failed: %v", err))
		}
		userStore = store.NewUserStore(db)
		roomStore = store.NewRoomStore(db)
		msgStore = store.NewMessageStore(db)
	case "mongodb":
		// 用户/房间仍在 MySQL，消息单独走 MongoDB
		db, err := store.Open(cfg.MySQLDSN)
		if err != nil {
			panic(fmt.Sprintf("MySQL open failed: %v", err))
		}
		mongoDB, err := store.Connect(cfg.MongoURI)
		if err != nil {
			panic(fmt.Sprintf("MongoDB connection failed: %v", err))
		}
		userStore = store.NewUserStore(db)
		roomStore = store.NewRoomStore(db)
		msgStore = store.NewMongoMessageStore(mongoDB)
	default: // memory
		mem := store.NewMemory()
		userStore = mem.Users
		roomStore = mem.Rooms
		msgStore = mem.Messages
	}

	// 投递通道：Redis 可用时跨实例投递，否则进程内
	var broker mq.Broker
	if cfg.RedisAddr != "" {
		broker = mq.NewRedisBroker(cache.Client())
	} else {
		broker = mq.NewLocalBroker()
	}

	authSvc := services.NewAuthService(userStore, cfg.JWTSecret)
	chatSvc := services.NewChatService(roomStore, msgStore, broker)

	wsSrv := &ws.Server{
		JWTSecret: cfg.JWTSecret,
		ChatSvc:   chatSvc,
		Broker:    broker,
	}
	if cfg.RedisAddr != "" {
		wsSrv.OnOnline = func(ctx context.Context, uid string) { _ = cache.SetOnline(ctx, uid) }
		wsSrv.OnOffline = func(ctx context.Context, uid string) { _ = cache.SetOffline(ctx, uid) }
	}

	var limiter *ratelimit.TokenBucketLimiter
	if cfg.RedisAddr != "" {
		limiter = ratelimit.NewTokenBucketLimiter(cache.Client())
	}

	r := httpserver.New(httpserver.Options{
		JWTSecret:     cfg.JWTSecret,
		AuthSvc:       authSvc,
		ChatSvc:       chatSvc,
		WS:            wsSrv,
		Limiter:       limiter,
		SendQPS:       cfg.SendQPS,
		SendBurst:     cfg.SendBurst,
		EnableMetrics: cfg.EnableMetrics,
	})

	log.Printf("server: 监听 %s message_db=%s", cfg.ListenAddr, cfg.MessageDB)
	if err := r.Run(cfg.ListenAddr); err != nil {
		panic(err)
	}
}
