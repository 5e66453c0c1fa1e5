package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"echoquiz-backend/internal/models"
)

type stubTokens struct {
	id uuid.UUID
}

func (s stubTokens) ParseSessionToken(tokenStr string) (uuid.UUID, error) {
	if tokenStr != "good" {
		return uuid.Nil, errors.New("bad token")
	}
	return s.id, nil
}

func TestHub_RejectsMissingOrBadToken(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	hub := NewHub(nil, stubTokens{id: uuid.New()}, log)

	for _, query := range []string{"", "?token=bad"} {
		rr := httptest.NewRecorder()
		hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/ws"+query, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401, got %d", query, rr.Code)
		}
	}
}

func TestHub_DeliversLocalUpdates(t *testing.T) {
	log, _ := logtest.NewNullLogger()
	sessionID := uuid.New()
	hub := NewHub(nil, stubTokens{id: sessionID}, log)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=good"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Watchers(sessionID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.PublishUpdate(context.Background(), sessionID, models.WSMessage{
		Type:    "completed",
		Payload: models.CompletedEvent{SessionID: sessionID, Attempt: 1, QuestionCount: 10},
	})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type    string                `json:"type"`
		Payload models.CompletedEvent `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "completed" || msg.Payload.QuestionCount != 10 {
		t.Fatalf("unexpected message %s", data)
	}

	// Other sessions see nothing.
	if hub.Watchers(uuid.New()) != 0 {
		t.Fatal("expected no watchers for another session")
	}
}
