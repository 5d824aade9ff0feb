package domain

import "time"

// ChatKind discriminates which pair of roles a conversation connects.
type ChatKind string

const (
	// KindSST connects the contractor with a safety officer.
	KindSST ChatKind = "sst"
	// KindInterventor connects the contractor with the supervising interventor.
	KindInterventor ChatKind = "interventor"
	// KindSoporte is the global support thread for a request.
	KindSoporte ChatKind = "soporte"
)

func (k ChatKind) Valid() bool {
	switch k {
	case KindSST, KindInterventor, KindSoporte:
		return true
	}
	return false
}

// Chat represents the chats table. At most one chat exists per
// (solicitud_id, kind) pair; rows are created lazily on first message.
type Chat struct {
	ID          int64
	SolicitudID int64
	Kind        ChatKind
	CreatedBy   int64
	CreatedAt   time.Time
}

// Participant represents the chat_participants table. A user appears at
// most once per chat and carries a personal unread counter.
type Participant struct {
	ChatID      int64
	UserID      int64
	RoleLabel   string
	UnreadCount int
	JoinedAt    time.Time
}
