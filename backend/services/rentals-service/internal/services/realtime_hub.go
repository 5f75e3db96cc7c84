package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/constants"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

// Publisher pushes an event to every live connection of the given users.
type Publisher interface {
	Publish(userIDs []uuid.UUID, event any)
}

// Hub tracks websocket connections per user. Delivery is best effort: a
// connection whose buffer is full is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*wsClient]struct{}
}

type wsClient struct {
	hub    *Hub
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*wsClient]struct{})}
}

// Serve registers conn for userID and blocks until the connection closes.
func (h *Hub) Serve(userID uuid.UUID, conn *websocket.Conn) {
	c := &wsClient{
		hub:    h,
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, constants.WSSendBuffer),
	}
	h.add(c)
	utils.Logger.WithField("user_id", userID).Debug("Websocket connected")

	go c.writePump()
	c.readPump()
}

func (h *Hub) Publish(userIDs []uuid.UUID, event any) {
	raw, err := json.Marshal(event)
	if err != nil {
		utils.Logger.WithError(err).Error("Failed to encode realtime event")
		return
	}
	h.mu.RLock()
	var slow []*wsClient
	for _, id := range userIDs {
		for c := range h.clients[id] {
			select {
			case c.send <- raw:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		utils.Logger.WithField("user_id", c.userID).Warn("Dropping slow websocket client")
		c.close()
	}
}

// Connections is the number of live connections for userID.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*wsClient]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		c.hub.remove(c)
		close(c.send)
	})
}

// readPump only services control frames; clients post messages over HTTP.
func (c *wsClient) readPump() {
	defer func() {
		c.close()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WSPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WSPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.Logger.WithError(err).Debug("Websocket closed unexpectedly")
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(constants.WSPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WSWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
