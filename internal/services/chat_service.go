package services

import (
	"context"
	"errors"
	"fmt"

	"contrata-chat/internal/domain"
	"contrata-chat/internal/repository"
	chaterrors "contrata-chat/pkg/errors"
	"contrata-chat/pkg/logger"
)

// ChatService is the single write path for chats, participants, messages
// and unread counters. Both the websocket router and the HTTP handlers go
// through it, so the persistence logic exists exactly once.
type ChatService struct {
	db          repository.DBTX
	chats       repository.ChatRepository
	messages    repository.MessageRepository
	users       repository.UserRepository
	solicitudes repository.SolicitudRepository
	logger      *logger.Logger
}

func NewChatService(db repository.DBTX, l *logger.Logger) *ChatService {
	return &ChatService{
		db:          db,
		chats:       repository.NewChatRepository(db),
		messages:    repository.NewMessageRepository(db),
		users:       repository.NewUserRepository(db),
		solicitudes: repository.NewSolicitudRepository(db),
		logger:      l,
	}
}

// NewChatServiceWithRepos wires explicit repositories. Used by tests and
// by callers that already hold repository instances.
func NewChatServiceWithRepos(
	chats repository.ChatRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	solicitudes repository.SolicitudRepository,
	l *logger.Logger,
) *ChatService {
	return &ChatService{
		chats:       chats,
		messages:    messages,
		users:       users,
		solicitudes: solicitudes,
		logger:      l,
	}
}

// ResolvedParticipant is a (user, role label) pair computed from the
// solicitud's contractor/interventor/safety-officer assignments.
type ResolvedParticipant struct {
	UserID    int64
	RoleLabel string
}

// ParticipantView is a participant joined with the user's display name.
type ParticipantView struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	RoleLabel   string `json:"roleLabel"`
	UnreadCount int    `json:"unreadCount"`
}

func (s *ChatService) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// resolveParticipants computes who belongs in a chat for (solicitudID,
// kind). The contractor who owns the solicitud is always included. For
// interventor chats the assigned interventor is required; for sst and
// soporte chats the lowest-id user holding the role is enrolled once.
func (s *ChatService) resolveParticipants(ctx context.Context, solicitudID int64, kind domain.ChatKind) ([]ResolvedParticipant, error) {
	sol, err := s.solicitudes.GetByID(ctx, solicitudID)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return nil, fmt.Errorf("solicitud %d: %w", solicitudID, chaterrors.ErrNoParticipants)
		}
		return nil, err
	}

	participants := []ResolvedParticipant{
		{UserID: sol.ContratistaID, RoleLabel: domain.RoleContratista},
	}

	switch kind {
	case domain.KindInterventor:
		if !sol.InterventorID.Valid {
			return nil, fmt.Errorf("solicitud %d has no interventor assigned: %w", solicitudID, chaterrors.ErrNoParticipants)
		}
		participants = append(participants, ResolvedParticipant{
			UserID:    sol.InterventorID.Int64,
			RoleLabel: domain.RoleInterventor,
		})
	case domain.KindSST:
		participants = s.appendFirstByRole(ctx, participants, domain.RoleSST)
	case domain.KindSoporte:
		participants = s.appendFirstByRole(ctx, participants, domain.RoleSoporte)
	}

	return participants, nil
}

func (s *ChatService) appendFirstByRole(ctx context.Context, participants []ResolvedParticipant, role string) []ResolvedParticipant {
	u, err := s.users.FirstByRole(ctx, role)
	if err != nil {
		if s.logger != nil {
			s.logger.Warnf("no %s user available for auto-enrollment", role)
		}
		return participants
	}
	for _, p := range participants {
		if p.UserID == u.ID {
			return participants
		}
	}
	return append(participants, ResolvedParticipant{UserID: u.ID, RoleLabel: role})
}

// EnsureChat finds the chat for (solicitudID, kind), creating it lazily on
// first use. Participants are resolved before the chat row is created so a
// failed resolution never leaves a chat without members. A concurrent
// create losing the unique-constraint race falls back to re-fetching.
func (s *ChatService) EnsureChat(ctx context.Context, solicitudID int64, kind domain.ChatKind, creatorID int64) (domain.Chat, error) {
	chat, err := s.chats.Find(ctx, solicitudID, kind)
	if err == nil {
		if err := s.ensureSenderParticipant(ctx, chat, creatorID); err != nil {
			return domain.Chat{}, err
		}
		return chat, nil
	}
	if !errors.Is(err, chaterrors.ErrNotFound) {
		return domain.Chat{}, err
	}

	resolved, err := s.resolveParticipants(ctx, solicitudID, kind)
	if err != nil {
		return domain.Chat{}, err
	}

	chat, err = s.chats.Create(ctx, solicitudID, kind, creatorID)
	if err != nil {
		if errors.Is(err, chaterrors.ErrAlreadyExists) {
			chat, err = s.chats.Find(ctx, solicitudID, kind)
		}
		if err != nil {
			return domain.Chat{}, err
		}
	}

	for _, p := range resolved {
		if err := s.chats.AddParticipant(ctx, chat.ID, p.UserID, p.RoleLabel); err != nil {
			return domain.Chat{}, err
		}
	}
	if err := s.ensureSenderParticipant(ctx, chat, creatorID); err != nil {
		return domain.Chat{}, err
	}
	return chat, nil
}

// ensureSenderParticipant adds the sender to the chat when role resolution
// did not already include them, so a message never lands in a chat its
// sender cannot read back.
func (s *ChatService) ensureSenderParticipant(ctx context.Context, chat domain.Chat, senderID int64) error {
	participants, err := s.chats.Participants(ctx, chat.ID)
	if err != nil {
		return err
	}
	for _, p := range participants {
		if p.UserID == senderID {
			return nil
		}
	}
	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return err
	}
	return s.chats.AddParticipant(ctx, chat.ID, senderID, sender.Role)
}

// SendMessage resolves or creates the chat, persists the message and
// increments the unread counter of every non-sender participant. The
// returned recipients are the participants other than the sender; pushing
// to their live connections is the caller's concern.
func (s *ChatService) SendMessage(ctx context.Context, solicitudID int64, kind domain.ChatKind, senderID int64, content domain.MessageContent) (domain.Message, []domain.Participant, error) {
	if content.IsZero() {
		return domain.Message{}, nil, chaterrors.ErrInvalidInput
	}

	chat, err := s.EnsureChat(ctx, solicitudID, kind, senderID)
	if err != nil {
		return domain.Message{}, nil, err
	}

	msg, err := s.messages.Insert(ctx, chat.ID, senderID, content)
	if err != nil {
		return domain.Message{}, nil, err
	}

	participants, err := s.chats.Participants(ctx, chat.ID)
	if err != nil {
		return domain.Message{}, nil, err
	}

	var recipients []domain.Participant
	for _, p := range participants {
		if p.UserID == senderID {
			continue
		}
		if err := s.chats.IncrementUnread(ctx, chat.ID, p.UserID); err != nil {
			return domain.Message{}, nil, err
		}
		recipients = append(recipients, p)
	}
	return msg, recipients, nil
}

// History returns the most recent messages, newest first, cursoring on
// message id. A missing chat is an empty history, not an error.
func (s *ChatService) History(ctx context.Context, solicitudID int64, kind domain.ChatKind, beforeID int64, limit int) ([]domain.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	chat, err := s.chats.Find(ctx, solicitudID, kind)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.messages.ListBefore(ctx, chat.ID, beforeID, limit)
}

// MarkAllRead resets userID's unread counter and flips the read flag on
// every message in the chat not sent by userID. Calling it before any chat
// exists is a successful no-op; the returned chat is nil in that case.
func (s *ChatService) MarkAllRead(ctx context.Context, solicitudID int64, kind domain.ChatKind, userID int64) (*domain.Chat, []domain.Participant, error) {
	chat, err := s.chats.Find(ctx, solicitudID, kind)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	run := func(chats repository.ChatRepository, messages repository.MessageRepository) error {
		if err := messages.MarkAllRead(ctx, chat.ID, userID); err != nil {
			return err
		}
		return chats.ResetUnread(ctx, chat.ID, userID)
	}

	if s.db != nil {
		err = repository.WithTx(ctx, s.db, func(tx repository.DBTX) error {
			return run(repository.NewChatRepository(tx), repository.NewMessageRepository(tx))
		})
	} else {
		err = run(s.chats, s.messages)
	}
	if err != nil {
		return nil, nil, err
	}

	participants, err := s.chats.Participants(ctx, chat.ID)
	if err != nil {
		return nil, nil, err
	}
	return &chat, participants, nil
}

func (s *ChatService) MarkMessageRead(ctx context.Context, messageID int64) error {
	return s.messages.MarkRead(ctx, messageID)
}

// UnreadCount returns userID's unread counter, defaulting to 0 when no
// chat or membership exists yet.
func (s *ChatService) UnreadCount(ctx context.Context, solicitudID int64, kind domain.ChatKind, userID int64) (int, error) {
	chat, err := s.chats.Find(ctx, solicitudID, kind)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	count, err := s.chats.UnreadCount(ctx, chat.ID, userID)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// ChatParticipants lists the chat's members joined with usernames. A
// missing chat yields an empty list.
func (s *ChatService) ChatParticipants(ctx context.Context, solicitudID int64, kind domain.ChatKind) ([]ParticipantView, error) {
	chat, err := s.chats.Find(ctx, solicitudID, kind)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	participants, err := s.chats.Participants(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	views := make([]ParticipantView, 0, len(participants))
	for _, p := range participants {
		view := ParticipantView{
			UserID:      p.UserID,
			RoleLabel:   p.RoleLabel,
			UnreadCount: p.UnreadCount,
		}
		if u, err := s.users.GetByID(ctx, p.UserID); err == nil {
			view.Username = u.Username
		}
		views = append(views, view)
	}
	return views, nil
}
