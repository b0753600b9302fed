package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"patient-portal/internal/model"
	repo "patient-portal/internal/repository"
)

func TestPostgresSessionRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	r := repo.NewPostgresSessionRepository(db)

	id := uuid.New()
	expires := time.Now().Add(time.Hour)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sessions (session_id, user_id, role, expires_at)`)).
		WithArgs(id, int64(1), model.RoleAdmin, expires).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	s := &model.Session{ID: id, UserID: 1, Role: model.RoleAdmin, ExpiresAt: expires}
	require.NoError(t, r.Create(context.Background(), s))
	require.Equal(t, now, s.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	r := repo.NewPostgresSessionRepository(db)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE session_id = $1`)).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.Delete(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSessionRepository_ListByUser(t *testing.T) {
	db, mock := newMock(t)
	r := repo.NewPostgresSessionRepository(db)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM sessions`)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "user_id", "role", "expires_at", "created_at"}).
			AddRow(id.String(), int64(4), model.RoleDoctor, now.Add(time.Hour), now))

	sessions, err := r.ListByUser(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.Equal(t, id, sessions[0].ID)
	require.Equal(t, model.RoleDoctor, sessions[0].Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeviceTokenRepository_Register(t *testing.T) {
	db, mock := newMock(t)
	r := repo.NewPostgresDeviceTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO user_device_tokens (user_id, device_token)`)).
		WithArgs(int64(5), "abc").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.Register(context.Background(), 5, "abc"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresProfileRepository_Upsert(t *testing.T) {
	db, mock := newMock(t)
	r := repo.NewPostgresProfileRepository(db)

	age := 30
	addr := "Cebu"
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (user_id) DO UPDATE SET`)).
		WithArgs(int64(5), &age, nil, &addr, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.Upsert(context.Background(), &model.Profile{UserID: 5, Age: &age, Address: &addr}))
	require.NoError(t, mock.ExpectationsWereMet())
}
