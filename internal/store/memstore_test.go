package store

import (
	"context"
	"testing"
	"time"

	"github.com/sankethl27/raya/internal/models"
)

func TestMemoryAppendIdempotent(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	m := &models.Message{ID: "c1", RoomID: "r1", SenderID: "A", Body: "hi", CreatedAt: time.Now()}
	if err := mem.Messages.Append(ctx, m); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := mem.Messages.Append(ctx, m); err != nil {
		t.Fatalf("append twice: %v", err)
	}
	msgs, err := mem.Messages.ListByRoom(ctx, "r1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
}

func TestMemoryListByRoomOrdered(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	_ = mem.Messages.Append(ctx, &models.Message{ID: "c2", RoomID: "r1", SenderID: "A", Body: "two", CreatedAt: time.UnixMilli(200)})
	_ = mem.Messages.Append(ctx, &models.Message{ID: "c1", RoomID: "r1", SenderID: "B", Body: "one", CreatedAt: time.UnixMilli(100)})
	msgs, _ := mem.Messages.ListByRoom(ctx, "r1", 0)
	if len(msgs) != 2 || msgs[0].ID != "c1" || msgs[1].ID != "c2" {
		t.Fatalf("wrong order: %+v", msgs)
	}
}

func TestMemoryUserUniqueUsername(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	u := &models.User{ID: "u1", Username: "ada", DisplayName: "Ada", UserType: "artist"}
	if err := mem.Users.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &models.User{ID: "u2", Username: "ada"}
	if err := mem.Users.CreateUser(ctx, dup); err == nil {
		t.Fatal("expected duplicate username error")
	}
	got, _ := mem.Users.GetByUsername(ctx, "ada")
	if got == nil || got.ID != "u1" {
		t.Fatalf("lookup failed: %+v", got)
	}
	if missing, _ := mem.Users.GetByID(ctx, "nope"); missing != nil {
		t.Fatal("expected nil for unknown id")
	}
}

func TestMemoryFindByParticipantsBothDirections(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	r := &models.Room{ID: "r1", Kind: models.RoomKindVenueArtist, Participant1ID: "a", Participant2ID: "b", CreatedAt: time.Now(), LastMessageAt: time.Now()}
	_ = mem.Rooms.Create(ctx, r)

	got, _ := mem.Rooms.FindByParticipants(ctx, models.RoomKindVenueArtist, "b", "a")
	if got == nil || got.ID != "r1" {
		t.Fatalf("reversed lookup failed: %+v", got)
	}
	other, _ := mem.Rooms.FindByParticipants(ctx, models.RoomKindCrossType, "a", "b")
	if other != nil {
		t.Fatal("kind mismatch should not match")
	}
}

func TestMemoryListByUserEnrichedAndSorted(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	_ = mem.Users.CreateUser(ctx, &models.User{ID: "a", Username: "a", DisplayName: "Alice", UserType: "venue"})
	_ = mem.Users.CreateUser(ctx, &models.User{ID: "b", Username: "b", DisplayName: "Bob", UserType: "artist"})
	_ = mem.Rooms.Create(ctx, &models.Room{ID: "old", Kind: models.RoomKindVenueArtist, Participant1ID: "a", Participant2ID: "b", LastMessageAt: time.UnixMilli(100)})
	_ = mem.Rooms.Create(ctx, &models.Room{ID: "new", Kind: models.RoomKindCrossType, Participant1ID: "b", Participant2ID: "a", LastMessageAt: time.UnixMilli(200)})

	rooms, _ := mem.Rooms.ListByUser(ctx, "a", 0)
	if len(rooms) != 2 || rooms[0].ID != "new" {
		t.Fatalf("wrong order: %+v", rooms)
	}
	if rooms[0].Participant1Name != "Bob" || rooms[0].Participant2Name != "Alice" {
		t.Fatalf("names not enriched: %+v", rooms[0])
	}
}

func TestMemoryTouchLastMessage(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()
	_ = mem.Rooms.Create(ctx, &models.Room{ID: "r1", Participant1ID: "a", Participant2ID: "b"})
	at := time.UnixMilli(12345)
	_ = mem.Rooms.TouchLastMessage(ctx, "r1", at)
	r, _ := mem.Rooms.GetByID(ctx, "r1")
	if !r.LastMessageAt.Equal(at) {
		t.Fatalf("last_message_at not updated: %v", r.LastMessageAt)
	}
}
