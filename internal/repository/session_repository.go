package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"patient-portal/internal/model"
)

type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, sessionID uuid.UUID) error
	ListByUser(ctx context.Context, userID int64) ([]model.Session, error)
}

type postgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) SessionRepository {
	return &postgresSessionRepository{db: db}
}

func (r *postgresSessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (session_id, user_id, role, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	return r.db.QueryRowxContext(ctx, query, session.ID, session.UserID, session.Role, session.ExpiresAt).
		Scan(&session.CreatedAt)
}

func (r *postgresSessionRepository) Delete(ctx context.Context, sessionID uuid.UUID) error {
	query := `DELETE FROM sessions WHERE session_id = $1`
	_, err := r.db.ExecContext(ctx, query, sessionID)
	return err
}

func (r *postgresSessionRepository) ListByUser(ctx context.Context, userID int64) ([]model.Session, error) {
	sessions := []model.Session{}
	query := `
		SELECT session_id, user_id, role, expires_at, created_at
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	err := r.db.SelectContext(ctx, &sessions, query, userID)
	return sessions, err
}
