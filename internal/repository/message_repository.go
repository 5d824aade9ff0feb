package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contrata-chat/internal/domain"
	chaterrors "contrata-chat/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type PostgresMessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) MessageRepository {
	return &PostgresMessageRepository{db: db}
}

func (r *PostgresMessageRepository) Insert(ctx context.Context, chatID, senderID int64, content domain.MessageContent) (domain.Message, error) {
	payload, err := json.Marshal(content)
	if err != nil {
		return domain.Message{}, err
	}

	var (
		m   domain.Message
		raw []byte
	)
	err = r.db.QueryRow(ctx,
		`INSERT INTO messages (chat_id, sender_id, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, chat_id, sender_id, content, leido, created_at`,
		chatID, senderID, payload,
	).Scan(&m.ID, &m.ChatID, &m.SenderID, &raw, &m.Read, &m.CreatedAt)
	if err != nil {
		return domain.Message{}, err
	}
	if err := json.Unmarshal(raw, &m.Content); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id int64) (domain.Message, error) {
	var (
		m   domain.Message
		raw []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT id, chat_id, sender_id, content, leido, created_at
		 FROM messages WHERE id = $1`, id,
	).Scan(&m.ID, &m.ChatID, &m.SenderID, &raw, &m.Read, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, chaterrors.ErrNotFound
		}
		return domain.Message{}, err
	}
	if err := json.Unmarshal(raw, &m.Content); err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// ListBefore pages backwards through a chat's history. The cursor is the
// message id, so repeated calls with the smallest id seen so far cover the
// full history without gaps even while new messages arrive.
func (r *PostgresMessageRepository) ListBefore(ctx context.Context, chatID, beforeID int64, limit int) ([]domain.Message, error) {
	query := `SELECT id, chat_id, sender_id, content, leido, created_at
		 FROM messages WHERE chat_id = $1`
	args := []any{chatID}
	if beforeID > 0 {
		query += ` AND id < $2`
		args = append(args, beforeID)
	}
	query += fmt.Sprintf(` ORDER BY id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			m   domain.Message
			raw []byte
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &raw, &m.Read, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &m.Content); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (r *PostgresMessageRepository) MarkRead(ctx context.Context, messageID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE messages SET leido = TRUE WHERE id = $1`, messageID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return chaterrors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) MarkAllRead(ctx context.Context, chatID, readerID int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE messages SET leido = TRUE
		 WHERE chat_id = $1 AND sender_id <> $2 AND leido = FALSE`,
		chatID, readerID)
	return err
}
