package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sankethl27/raya/internal/models"
)

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]*models.Message{})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token")
	if _, err := c.FetchMessages(context.Background(), "r1"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("missing bearer header, got %q", gotAuth)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "not a participant of this room"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	_, err := c.FetchMessages(context.Background(), "r1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.Status != 403 || apiErr.Message != "not a participant of this room" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestSendMessageRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req struct {
			RoomID string `json:"roomId"`
			Body   string `json:"body"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(&models.Message{
			ID: "c1", RoomID: req.RoomID, SenderID: "A", Body: req.Body, CreatedAt: time.Now(),
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	m, err := c.SendMessage(context.Background(), "r1", "hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if m.ID != "c1" || m.Body != "hello" || m.RoomID != "r1" {
		t.Fatalf("unexpected message: %+v", m)
	}
}

func TestWSURL(t *testing.T) {
	c := New("http://example.com:8080", "tok en")
	got := c.WSURL()
	want := "ws://example.com:8080/ws?token=tok+en"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	c = New("https://example.com", "t")
	if got := c.WSURL(); got != "wss://example.com/ws?token=t" {
		t.Fatalf("got %q", got)
	}
}
