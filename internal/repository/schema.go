package repository

import (
	"context"
	"fmt"
)

// InitSchema creates the chat tables. Statements are idempotent so the
// migrate command can be re-run safely.
func InitSchema(ctx context.Context, db DBTX) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id        BIGSERIAL PRIMARY KEY,
			username  TEXT NOT NULL UNIQUE,
			role      TEXT NOT NULL,
			last_seen TIMESTAMPTZ
		);`,

		`CREATE TABLE IF NOT EXISTS solicitudes (
			id             BIGSERIAL PRIMARY KEY,
			contratista_id BIGINT NOT NULL REFERENCES users(id),
			interventor_id BIGINT REFERENCES users(id),
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,

		// The unique (solicitud_id, kind) pair is the backstop against two
		// first messages racing to create the same chat.
		`CREATE TABLE IF NOT EXISTS chats (
			id           BIGSERIAL PRIMARY KEY,
			solicitud_id BIGINT NOT NULL REFERENCES solicitudes(id),
			kind         TEXT NOT NULL,
			created_by   BIGINT NOT NULL REFERENCES users(id),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT chats_solicitud_kind_key UNIQUE (solicitud_id, kind)
		);`,

		`CREATE TABLE IF NOT EXISTS chat_participants (
			chat_id      BIGINT NOT NULL REFERENCES chats(id),
			user_id      BIGINT NOT NULL REFERENCES users(id),
			role_label   TEXT NOT NULL DEFAULT '',
			unread_count INT NOT NULL DEFAULT 0 CHECK (unread_count >= 0),
			joined_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (chat_id, user_id)
		);`,

		`CREATE TABLE IF NOT EXISTS messages (
			id         BIGSERIAL PRIMARY KEY,
			chat_id    BIGINT NOT NULL REFERENCES chats(id),
			sender_id  BIGINT NOT NULL REFERENCES users(id),
			content    JSONB NOT NULL,
			leido      BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,

		`CREATE INDEX IF NOT EXISTS idx_messages_chat_id_id
			ON messages (chat_id, id DESC);`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema migration failed: %w", err)
		}
	}
	return nil
}
