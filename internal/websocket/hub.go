package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"echoquiz-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type tokenParser interface {
	ParseSessionToken(tokenStr string) (uuid.UUID, error)
}

// Hub fans session events out to the WebSocket clients watching that session.
// With a Redis client it follows the session's pub/sub channel so events
// published by any replica arrive; without one, PublishUpdate delivers
// in-process only.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	tokens      tokenParser
	cancelFuncs map[uuid.UUID]context.CancelFunc
	log         logrus.FieldLogger
}

func NewHub(redisClient *redis.Client, tokens tokenParser, log logrus.FieldLogger) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		redisClient: redisClient,
		tokens:      tokens,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
		log:         log,
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via token query param
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sessionID, err := h.tokens.ParseSessionToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	h.registerConnection(sessionID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[sessionID] = append(h.connections[sessionID], conn)

	// Start pub/sub subscription if this is the first watcher of the session
	if len(h.connections[sessionID]) == 1 && h.redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[sessionID] = cancel
		go h.subscribeToPubSub(ctx, sessionID)
	}

	h.log.WithFields(logrus.Fields{"session_id": sessionID, "connections": len(h.connections[sessionID])}).
		Debug("WebSocket connected")
}

func (h *Hub) unregisterConnection(sessionID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[sessionID]
	for i, c := range conns {
		if c == conn {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
		if cancel, ok := h.cancelFuncs[sessionID]; ok {
			cancel()
			delete(h.cancelFuncs, sessionID)
		}
	}

	h.log.WithField("session_id", sessionID).Debug("WebSocket disconnected")
}

func (h *Hub) subscribeToPubSub(ctx context.Context, sessionID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, models.UpdatesChannel(sessionID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

// broadcast takes the write lock: gorilla connections allow one concurrent writer.
func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, conn := range h.connections[sessionID] {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.WithError(err).WithField("session_id", sessionID).Debug("WebSocket write failed")
		}
	}
}

// PublishUpdate delivers msg to this process's watchers of the session. It
// lets the hub stand in for the Redis publisher on a single instance.
func (h *Hub) PublishUpdate(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcast(sessionID, data)
}

// Watchers reports how many clients are connected to the session.
func (h *Hub) Watchers(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}
