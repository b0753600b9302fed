package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"patient-portal/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) (int64, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	List(ctx context.Context) ([]model.UserSummary, error)
	ListByRole(ctx context.Context, role string) ([]model.UserSummary, error)
	ListRecent(ctx context.Context, limit int) ([]model.UserSummary, error)
	Update(ctx context.Context, user *model.User) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
}

type postgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

const userColumns = `user_id, first_name, last_name, email, password, role, created_at, date_modified`

const userSummarySelect = `
	SELECT
		u.user_id, u.first_name, u.last_name, u.email, u.password, u.role, u.created_at, u.date_modified,
		CONCAT(u.first_name, ' ', u.last_name) AS name,
		ui.age, ui.birth_date, ui.address, ui.gender, ui.profile_picture
	FROM users u
	LEFT JOIN user_information ui ON u.user_id = ui.user_id
`

func (r *postgresUserRepository) Create(ctx context.Context, user *model.User) (int64, error) {
	query := `
		INSERT INTO users (first_name, last_name, email, password, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING user_id, created_at, date_modified
	`
	row := r.db.QueryRowxContext(ctx, query, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Role)
	if err := row.Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return 0, err
	}

	return user.ID, nil
}

func (r *postgresUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		return nil, notFound(err)
	}

	return &user, nil
}

func (r *postgresUserRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		return nil, notFound(err)
	}

	return &user, nil
}

func (r *postgresUserRepository) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var taken bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND user_id <> $2)`
	err := r.db.GetContext(ctx, &taken, query, email, exceptID)
	return taken, err
}

func (r *postgresUserRepository) List(ctx context.Context) ([]model.UserSummary, error) {
	users := []model.UserSummary{}
	query := userSummarySelect + ` ORDER BY u.created_at DESC`
	err := r.db.SelectContext(ctx, &users, query)
	return users, err
}

func (r *postgresUserRepository) ListByRole(ctx context.Context, role string) ([]model.UserSummary, error) {
	users := []model.UserSummary{}
	query := userSummarySelect + ` WHERE u.role = $1 ORDER BY u.last_name, u.first_name`
	err := r.db.SelectContext(ctx, &users, query, role)
	return users, err
}

func (r *postgresUserRepository) ListRecent(ctx context.Context, limit int) ([]model.UserSummary, error) {
	users := []model.UserSummary{}
	query := userSummarySelect + ` ORDER BY u.created_at DESC LIMIT $1`
	err := r.db.SelectContext(ctx, &users, query, limit)
	return users, err
}

func (r *postgresUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, role = $4, date_modified = now()
		WHERE user_id = $5
	`
	return expectAffected(r.db.ExecContext(ctx, query, user.FirstName, user.LastName, user.Email, user.Role, user.ID))
}

func (r *postgresUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE users SET password = $1, date_modified = now() WHERE user_id = $2`
	return expectAffected(r.db.ExecContext(ctx, query, passwordHash, id))
}

func (r *postgresUserRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM users WHERE user_id = $1`
	return expectAffected(r.db.ExecContext(ctx, query, id))
}
