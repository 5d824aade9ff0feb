package server

import (
	"encoding/json"
	"time"

	"contrata-chat/internal/domain"
)

// Frame types on the wire. For compatibility with older clients, an
// inbound frame whose type names a chat kind ("sst", "interventor",
// "soporte") is treated as a message frame of that kind.
const (
	FrameIdentify = "identify"
	FrameMessage  = "message"
	FrameMarkRead = "mark_read"
	FramePing     = "ping"

	FrameIdentifyConfirmation = "identify_confirmation"
	FrameStatusUpdate         = "status_update"
	FramePong                 = "pong"
	FrameError                = "error"
)

// Message delivery statuses reported through status_update frames.
const (
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

// ClientFrame is the decoded shape of every client→server frame. Fields
// not relevant to a given type stay zero.
type ClientFrame struct {
	Type        string                 `json:"type"`
	ChatKind    domain.ChatKind        `json:"chatKind,omitempty"`
	UserID      int64                  `json:"userId,omitempty"`
	Role        string                 `json:"role,omitempty"`
	SolicitudID int64                  `json:"requestId,omitempty"`
	Content     *domain.MessageContent `json:"content,omitempty"`
	TempID      string                 `json:"tempId,omitempty"`
	Timestamp   string                 `json:"timestamp,omitempty"`
	MessageID   int64                  `json:"messageId,omitempty"`
}

// ParseClientFrame decodes a raw frame and normalizes the legacy
// kind-as-type form into (FrameMessage, kind).
func ParseClientFrame(raw []byte) (ClientFrame, error) {
	var f ClientFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return ClientFrame{}, err
	}
	if kind := domain.ChatKind(f.Type); kind.Valid() {
		f.Type = FrameMessage
		if f.ChatKind == "" {
			f.ChatKind = kind
		}
	}
	return f, nil
}

type identifyConfirmationFrame struct {
	Type   string `json:"type"`
	Status string `json:"status"`
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
}

func newIdentifyConfirmation(userID int64, role string) identifyConfirmationFrame {
	return identifyConfirmationFrame{
		Type:   FrameIdentifyConfirmation,
		Status: "success",
		UserID: userID,
		Role:   role,
	}
}

type statusUpdateFrame struct {
	Type        string          `json:"type"`
	TempID      string          `json:"tempId,omitempty"`
	Status      string          `json:"status"`
	MessageID   int64           `json:"messageId,omitempty"`
	SolicitudID int64           `json:"requestId,omitempty"`
	ChatKind    domain.ChatKind `json:"chatKind,omitempty"`
	ReaderID    int64           `json:"readerId,omitempty"`
}

func newDeliveredAck(tempID string, messageID int64) statusUpdateFrame {
	return statusUpdateFrame{
		Type:      FrameStatusUpdate,
		TempID:    tempID,
		Status:    StatusDelivered,
		MessageID: messageID,
	}
}

// newReadReceipt tells a sender's connections that readerID has read the
// whole thread.
func newReadReceipt(solicitudID int64, kind domain.ChatKind, readerID int64) statusUpdateFrame {
	return statusUpdateFrame{
		Type:        FrameStatusUpdate,
		Status:      StatusRead,
		SolicitudID: solicitudID,
		ChatKind:    kind,
		ReaderID:    readerID,
	}
}

type messageFrame struct {
	Type        string                `json:"type"`
	ID          int64                 `json:"id"`
	ChatID      int64                 `json:"chatId"`
	SolicitudID int64                 `json:"requestId"`
	SenderID    int64                 `json:"usuario_id"`
	Username    string                `json:"username"`
	Content     domain.MessageContent `json:"content"`
	CreatedAt   time.Time             `json:"created_at"`
	ChatKind    domain.ChatKind       `json:"chatKind"`
	IsSender    bool                  `json:"isSender"`
}

func newMessageFrame(msg domain.Message, solicitudID int64, kind domain.ChatKind, username string) messageFrame {
	return messageFrame{
		Type:        FrameMessage,
		ID:          msg.ID,
		ChatID:      msg.ChatID,
		SolicitudID: solicitudID,
		SenderID:    msg.SenderID,
		Username:    username,
		Content:     msg.Content,
		CreatedAt:   msg.CreatedAt,
		ChatKind:    kind,
		IsSender:    false,
	}
}

type errorFrame struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	TempID  string `json:"tempId,omitempty"`
}

func newErrorFrame(message, details string) errorFrame {
	return errorFrame{Type: FrameError, Error: message, Details: details}
}

// newMessageError carries the client temp-id back on a failed send so the
// client can flip exactly that message to error state.
func newMessageError(tempID, message, details string) errorFrame {
	return errorFrame{Type: FrameError, Error: message, Details: details, TempID: tempID}
}

type pongFrame struct {
	Type string `json:"type"`
}

func marshalFrame(frame any) []byte {
	payload, err := json.Marshal(frame)
	if err != nil {
		return nil
	}
	return payload
}
