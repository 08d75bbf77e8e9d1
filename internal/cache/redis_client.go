package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// 本包封装了 Redis 客户端与常用的在线状态/通道键：
// - 在线集合：raya:presence:online
// - 房间投递通道：raya:deliver:<roomId>
// 推送通道网关用它维护在线状态；RedisBroker 用房间通道做跨实例投递。
var (
	redisClient *redis.Client
)

func InitRedis(addr, pass string, db int) {
	redisClient = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: pass,
		DB:       db,
	})
}

func Client() *redis.Client { return redisClient }

// OnlineUsersKey 返回全局在线集合键；RoomChannel 返回房间投递通道。
func OnlineUsersKey() string           { return "raya:presence:online" }
func RoomChannel(roomID string) string { return fmt.Sprintf("raya:deliver:%s", roomID) }

// SetOnline/SetOffline 维护用户在线状态（通道认证成功后上线，连接退出下线）。
func SetOnline(ctx context.Context, userID string) error {
	return redisClient.SAdd(ctx, OnlineUsersKey(), userID).Err()
}

func SetOffline(ctx context.Context, userID string) error {
	return redisClient.SRem(ctx, OnlineUsersKey(), userID).Err()
}

// IsOnline 查询用户是否在线。
func IsOnline(ctx context.Context, userID string) (bool, error) {
	return redisClient.SIsMember(ctx, OnlineUsersKey(), userID).Result()
}
