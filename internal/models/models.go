package models

import "time"

// User/Room/Message 为 Raya 聊天域的核心模型。
// Message 即接口契约中的线上格式 {id, roomId, senderId, body, createdAt}，
// 轮询、推送通道与发送响应三条链路共用同一结构。

type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Password    string    `json:"-"`
	DisplayName string    `json:"displayName"`
	UserType    string    `json:"userType"` // artist, partner, venue
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoomKind 会话类型：对账引擎不感知，仅用于展示层（对方名称解析等）。
type RoomKind string

const (
	RoomKindVenueArtist    RoomKind = "venue_artist"
	RoomKindVenuePartner   RoomKind = "venue_partner"
	RoomKindArtistArtist   RoomKind = "artist_artist"
	RoomKindPartnerPartner RoomKind = "partner_partner"
	RoomKindCrossType      RoomKind = "cross_type"
)

// Room 会话房间：由后端创建，客户端核心只消费其 id。
// Participant*Name 为查询时联表补充的展示字段（列表接口返回）。
type Room struct {
	ID               string    `json:"id"`
	Kind             RoomKind  `json:"kind"`
	Participant1ID   string    `json:"participant1Id"`
	Participant2ID   string    `json:"participant2Id"`
	Participant1Name string    `json:"participant1Name,omitempty"`
	Participant2Name string    `json:"participant2Name,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	LastMessageAt    time.Time `json:"lastMessageAt"`
}

// Message 会话中的一条消息（服务端确认后的权威形态）。
// - ID 为服务端签发（uuid），会话内唯一
// - CreatedAt 为服务端时间，可见序列按它升序排列
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	SenderID  string    `json:"senderId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// MaxMessageBody 消息正文长度上限（按字符数计）。
const MaxMessageBody = 500

// ChannelEvent 推送通道的事件封包。
// 上行：authenticate{senderId}、join_room{roomId}、leave_room{roomId}
// 下行：new_message{payload}
type ChannelEvent struct {
	Event    string   `json:"event"`
	SenderID string   `json:"senderId,omitempty"`
	RoomID   string   `json:"roomId,omitempty"`
	Payload  *Message `json:"payload,omitempty"`
}

const (
	EventAuthenticate = "authenticate"
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventNewMessage   = "new_message"
)
