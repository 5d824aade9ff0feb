package server

import (
	"net/http"

	"contrata-chat/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades HTTP requests to websocket sessions. Identity
// is established by the identify frame, not the upgrade; the optional
// token verifier only gates the upgrade itself.
type WebSocketHandler struct {
	router   *Router
	verifier auth.TokenVerifier
	logger   *WebSocketLogger
}

func NewWebSocketHandler(router *Router, verifier auth.TokenVerifier) *WebSocketHandler {
	return &WebSocketHandler{
		router:   router,
		verifier: verifier,
		logger:   NewWebSocketLogger(),
	}
}

func (h *WebSocketHandler) Handle(c *gin.Context) {
	if h.verifier != nil {
		token := auth.ExtractToken(c)
		if _, err := h.verifier.Verify(token); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", 0, "", err)
		return
	}

	session := NewSession(h.router, conn, uuid.New().String())
	go session.writePump()
	go session.readPump()
}
