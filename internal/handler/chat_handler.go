package handler

import (
	"context"
	"net/http"
	"strconv"

	"contrata-chat/internal/domain"
	"contrata-chat/internal/services"
	"contrata-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// ChatQueries is the slice of the chat service the HTTP surface needs.
// The websocket router owns the write path; these endpoints serve pages
// that live independently of any open socket.
type ChatQueries interface {
	History(ctx context.Context, solicitudID int64, kind domain.ChatKind, beforeID int64, limit int) ([]domain.Message, error)
	MarkAllRead(ctx context.Context, solicitudID int64, kind domain.ChatKind, userID int64) (*domain.Chat, []domain.Participant, error)
	UnreadCount(ctx context.Context, solicitudID int64, kind domain.ChatKind, userID int64) (int, error)
	ChatParticipants(ctx context.Context, solicitudID int64, kind domain.ChatKind) ([]services.ParticipantView, error)
}

type ChatHandler struct {
	service ChatQueries
}

func NewChatHandler(service ChatQueries) *ChatHandler {
	return &ChatHandler{service: service}
}

// History handles GET /chat/:requestId/:kind. Messages come back newest
// first; clients re-sort ascending for display. A chat that does not
// exist yet is an empty history, not an error.
func (h *ChatHandler) History(c *gin.Context) {
	solicitudID, kind, ok := h.chatRef(c)
	if !ok {
		return
	}

	var beforeID int64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid before cursor", httpdto.CodeInvalidRequest))
			return
		}
		beforeID = parsed
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid limit", httpdto.CodeInvalidRequest))
			return
		}
		limit = parsed
	}

	var viewerID int64
	if raw := c.Query("userId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid userId", httpdto.CodeInvalidRequest))
			return
		}
		viewerID = parsed
	}

	messages, err := h.service.History(c.Request.Context(), solicitudID, kind, beforeID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), httpdto.CodeRequestFailed))
		return
	}

	views := make([]httpdto.MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, httpdto.NewMessageView(m, viewerID))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": views}))
}

// MarkRead handles POST /chat/:requestId/:kind/mark-read. Safe to call
// before any chat exists: that is a successful no-op.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	solicitudID, kind, ok := h.chatRef(c)
	if !ok {
		return
	}

	var req httpdto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("userId is required", httpdto.CodeInvalidRequest))
		return
	}

	if _, _, err := h.service.MarkAllRead(c.Request.Context(), solicitudID, kind, req.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), httpdto.CodeRequestFailed))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{}))
}

// Unread handles GET /chat/:requestId/:kind/unread, defaulting to 0 when
// no chat or membership exists.
func (h *ChatHandler) Unread(c *gin.Context) {
	solicitudID, kind, ok := h.chatRef(c)
	if !ok {
		return
	}

	userID, err := strconv.ParseInt(c.Query("userId"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid userId", httpdto.CodeInvalidRequest))
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), solicitudID, kind, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), httpdto.CodeRequestFailed))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.UnreadCountResponse{UnreadCount: count}))
}

// Participants handles GET /chat/:requestId/:kind/participants.
func (h *ChatHandler) Participants(c *gin.Context) {
	solicitudID, kind, ok := h.chatRef(c)
	if !ok {
		return
	}

	participants, err := h.service.ChatParticipants(c.Request.Context(), solicitudID, kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), httpdto.CodeRequestFailed))
		return
	}
	if participants == nil {
		participants = []services.ParticipantView{}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"participants": participants}))
}

func (h *ChatHandler) chatRef(c *gin.Context) (int64, domain.ChatKind, bool) {
	solicitudID, err := strconv.ParseInt(c.Param("requestId"), 10, 64)
	if err != nil || solicitudID <= 0 {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request id", httpdto.CodeInvalidRequest))
		return 0, "", false
	}
	kind := domain.ChatKind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid chat kind", httpdto.CodeInvalidRequest))
		return 0, "", false
	}
	return solicitudID, kind, true
}
