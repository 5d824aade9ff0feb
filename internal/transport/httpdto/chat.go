package httpdto

import (
	"time"

	"contrata-chat/internal/domain"
)

// MessageView is one history entry as pages consume it. IsSender is
// computed against the userId the caller supplied.
type MessageView struct {
	ID        int64                 `json:"id"`
	SenderID  int64                 `json:"usuario_id"`
	Content   domain.MessageContent `json:"content"`
	Read      bool                  `json:"leido"`
	CreatedAt time.Time             `json:"created_at"`
	IsSender  bool                  `json:"isSender"`
}

func NewMessageView(m domain.Message, viewerID int64) MessageView {
	return MessageView{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
		IsSender:  m.SenderID == viewerID,
	}
}

type MarkReadRequest struct {
	UserID int64 `json:"userId" binding:"required"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}
