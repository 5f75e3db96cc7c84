package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/dtos"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/services/rentals-service/internal/services"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

type MessagingController struct {
	messaging *services.MessagingService
	hub       *services.Hub
	upgrader  websocket.Upgrader
}

// NewMessagingController accepts websocket upgrades only from
// allowedOrigins; requests without an Origin header (native clients) pass.
func NewMessagingController(messaging *services.MessagingService, hub *services.Hub, allowedOrigins []string) *MessagingController {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return &MessagingController{
		messaging: messaging,
		hub:       hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				_, ok := allowed[u.Scheme+"://"+u.Host]
				return ok
			},
		},
	}
}

// POST /api/v1/threads
func (c *MessagingController) StartThreadHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	var req dtos.StartThreadRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	out, err := c.messaging.StartThread(r.Context(), id, req)
	respond(w, http.StatusCreated, out, err)
}

// GET /api/v1/threads
func (c *MessagingController) ListThreadsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	out, err := c.messaging.ListThreads(r.Context(), id, page)
	respond(w, http.StatusOK, out, err)
}

// GET /api/v1/threads/{id}/messages
func (c *MessagingController) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	threadID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	page, ok := pagination(w, r)
	if !ok {
		return
	}
	out, err := c.messaging.ListMessages(r.Context(), id, threadID, page)
	respond(w, http.StatusOK, out, err)
}

// POST /api/v1/threads/{id}/messages
func (c *MessagingController) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	threadID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.PostMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	out, err := c.messaging.PostMessage(r.Context(), id, threadID, req)
	respond(w, http.StatusCreated, out, err)
}

// WebSocketHandler -> GET /api/v1/ws
// The connection stays open until the client leaves.
func (c *MessagingController) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := caller(w, r)
	if !ok {
		return
	}
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		utils.Logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	c.hub.Serve(id.UserID, conn)
}
