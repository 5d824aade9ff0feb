package repository

import (
	"context"
	"errors"

	"contrata-chat/internal/domain"
	chaterrors "contrata-chat/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type PostgresChatRepository struct {
	db DBTX
}

func NewChatRepository(db DBTX) ChatRepository {
	return &PostgresChatRepository{db: db}
}

func (r *PostgresChatRepository) Find(ctx context.Context, solicitudID int64, kind domain.ChatKind) (domain.Chat, error) {
	var c domain.Chat
	err := r.db.QueryRow(ctx,
		`SELECT id, solicitud_id, kind, created_by, created_at
		 FROM chats WHERE solicitud_id = $1 AND kind = $2`,
		solicitudID, string(kind),
	).Scan(&c.ID, &c.SolicitudID, &c.Kind, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Chat{}, chaterrors.ErrNotFound
		}
		return domain.Chat{}, err
	}
	return c, nil
}

// Create inserts a chat row for (solicitudID, kind). The unique constraint
// on that pair is the backstop against concurrent first messages; callers
// translate ErrAlreadyExists into a re-fetch.
func (r *PostgresChatRepository) Create(ctx context.Context, solicitudID int64, kind domain.ChatKind, createdBy int64) (domain.Chat, error) {
	var c domain.Chat
	err := r.db.QueryRow(ctx,
		`INSERT INTO chats (solicitud_id, kind, created_by)
		 VALUES ($1, $2, $3)
		 RETURNING id, solicitud_id, kind, created_by, created_at`,
		solicitudID, string(kind), createdBy,
	).Scan(&c.ID, &c.SolicitudID, &c.Kind, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Chat{}, chaterrors.ErrAlreadyExists
		}
		return domain.Chat{}, err
	}
	return c, nil
}

func (r *PostgresChatRepository) AddParticipant(ctx context.Context, chatID, userID int64, roleLabel string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_participants (chat_id, user_id, role_label)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (chat_id, user_id) DO NOTHING`,
		chatID, userID, roleLabel)
	return err
}

func (r *PostgresChatRepository) Participants(ctx context.Context, chatID int64) ([]domain.Participant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT chat_id, user_id, role_label, unread_count, joined_at
		 FROM chat_participants WHERE chat_id = $1 ORDER BY user_id`,
		chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ChatID, &p.UserID, &p.RoleLabel, &p.UnreadCount, &p.JoinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *PostgresChatRepository) IncrementUnread(ctx context.Context, chatID, userID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE chat_participants SET unread_count = unread_count + 1
		 WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresChatRepository) ResetUnread(ctx context.Context, chatID, userID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE chat_participants SET unread_count = 0
		 WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID)
	return err
}

func (r *PostgresChatRepository) UnreadCount(ctx context.Context, chatID, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT unread_count FROM chat_participants
		 WHERE chat_id = $1 AND user_id = $2`,
		chatID, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, chaterrors.ErrNotFound
		}
		return 0, err
	}
	return count, nil
}
