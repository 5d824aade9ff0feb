package repository

import (
	"context"
	"errors"

	"contrata-chat/internal/domain"
	chaterrors "contrata-chat/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type PostgresUserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id int64) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, role, last_seen FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Role, &u.LastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, chaterrors.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// FirstByRole selects the lowest user id holding the role so that
// auto-enrollment is deterministic when several candidates exist.
func (r *PostgresUserRepository) FirstByRole(ctx context.Context, role string) (domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx,
		`SELECT id, username, role, last_seen FROM users
		 WHERE role = $1 ORDER BY id LIMIT 1`, role,
	).Scan(&u.ID, &u.Username, &u.Role, &u.LastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, chaterrors.ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

type PostgresSolicitudRepository struct {
	db DBTX
}

func NewSolicitudRepository(db DBTX) SolicitudRepository {
	return &PostgresSolicitudRepository{db: db}
}

func (r *PostgresSolicitudRepository) GetByID(ctx context.Context, id int64) (domain.Solicitud, error) {
	var s domain.Solicitud
	err := r.db.QueryRow(ctx,
		`SELECT id, contratista_id, interventor_id, created_at
		 FROM solicitudes WHERE id = $1`, id,
	).Scan(&s.ID, &s.ContratistaID, &s.InterventorID, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Solicitud{}, chaterrors.ErrNotFound
		}
		return domain.Solicitud{}, err
	}
	return s, nil
}
