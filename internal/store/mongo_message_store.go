package store

import (
	"context"
	"time"

	"github.com/sankethl27/raya/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMessageStore 基于 MongoDB 的消息存储实现。
// - 通过 msg_id 唯一索引保障幂等（upsert + $setOnInsert）
// - ListByRoom 按 created_at 升序返回
type MongoMessageStore struct {
	DB *mongo.Database
}

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	ms := &MongoMessageStore{DB: db}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = ms.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "msg_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_msg_id"),
	})
	_, _ = ms.collection().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("idx_room_created"),
	})
	return ms
}

// mongoMessage 为存储层内部结构，与 models.Message 字段一一映射。
type mongoMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	MsgID     string             `bson:"msg_id"`
	RoomID    string             `bson:"room_id"`
	SenderID  string             `bson:"sender_id"`
	Body      string             `bson:"body"`
	CreatedAt time.Time          `bson:"created_at"`
}

func (s *MongoMessageStore) collection() *mongo.Collection {
	return s.DB.Collection("messages")
}

// Append 幂等写入消息（upsert + $setOnInsert）。
func (s *MongoMessageStore) Append(ctx context.Context, m *models.Message) error {
	doc := &mongoMessage{
		MsgID:     m.ID,
		RoomID:    m.RoomID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
	}
	filter := bson.D{{Key: "msg_id", Value: m.ID}}
	update := bson.D{{Key: "$setOnInsert", Value: doc}}
	opts := options.Update().SetUpsert(true)
	_, err := s.collection().UpdateOne(ctx, filter, update, opts)
	return err
}

// ListByRoom 按房间时间序拉取历史。
func (s *MongoMessageStore) ListByRoom(ctx context.Context, roomID string, limit int) ([]*models.Message, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	filter := bson.D{{Key: "room_id", Value: roomID}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}).SetLimit(int64(limit))
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var res []*models.Message
	for cursor.Next(ctx) {
		var doc mongoMessage
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		res = append(res, &models.Message{
			ID:        doc.MsgID,
			RoomID:    doc.RoomID,
			SenderID:  doc.SenderID,
			Body:      doc.Body,
			CreatedAt: doc.CreatedAt,
		})
	}
	return res, cursor.Err()
}

// Connect 建立 MongoDB 连接并返回 URI 中指定的数据库。
func Connect(uri string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client.Database(databaseFromURI(uri)), nil
}

// databaseFromURI URI 末段作为库名；为空时退回 raya。
func databaseFromURI(uri string) string {
	name := "raya"
	if i := lastSlash(uri); i >= 0 && i+1 < len(uri) {
		rest := uri[i+1:]
		for j := 0; j < len(rest); j++ {
			if rest[j] == '?' {
				rest = rest[:j]
				break
			}
		}
		if rest != "" {
			name = rest
		}
	}
	return name
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}
