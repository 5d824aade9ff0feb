package repository

import (
	"context"

	"contrata-chat/internal/domain"
)

type ChatRepository interface {
	Find(ctx context.Context, solicitudID int64, kind domain.ChatKind) (domain.Chat, error)
	Create(ctx context.Context, solicitudID int64, kind domain.ChatKind, createdBy int64) (domain.Chat, error)

	AddParticipant(ctx context.Context, chatID, userID int64, roleLabel string) error
	Participants(ctx context.Context, chatID int64) ([]domain.Participant, error)

	IncrementUnread(ctx context.Context, chatID, userID int64) error
	ResetUnread(ctx context.Context, chatID, userID int64) error
	UnreadCount(ctx context.Context, chatID, userID int64) (int, error)
}

type MessageRepository interface {
	Insert(ctx context.Context, chatID, senderID int64, content domain.MessageContent) (domain.Message, error)
	GetByID(ctx context.Context, id int64) (domain.Message, error)

	// ListBefore returns the most recent limit messages with id < beforeID
	// (or the most recent overall when beforeID <= 0), newest first.
	ListBefore(ctx context.Context, chatID, beforeID int64, limit int) ([]domain.Message, error)

	MarkRead(ctx context.Context, messageID int64) error
	// MarkAllRead flips the read flag on every message in the chat not
	// sent by readerID.
	MarkAllRead(ctx context.Context, chatID, readerID int64) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
	// FirstByRole returns the user with the lowest id holding the role.
	FirstByRole(ctx context.Context, role string) (domain.User, error)
}

type SolicitudRepository interface {
	GetByID(ctx context.Context, id int64) (domain.Solicitud, error)
}
