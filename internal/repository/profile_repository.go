package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"patient-portal/internal/model"
)

type ProfileRepository interface {
	FindByUserID(ctx context.Context, userID int64) (*model.Profile, error)
	Upsert(ctx context.Context, profile *model.Profile) error
}

type postgresProfileRepository struct {
	db *sqlx.DB
}

func NewPostgresProfileRepository(db *sqlx.DB) ProfileRepository {
	return &postgresProfileRepository{db: db}
}

func (r *postgresProfileRepository) FindByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	var profile model.Profile
	query := `SELECT user_id, age, birth_date, address, gender, profile_picture FROM user_information WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		return nil, notFound(err)
	}

	return &profile, nil
}

// Upsert keeps the stored profile picture when the new profile carries none.
func (r *postgresProfileRepository) Upsert(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO user_information (user_id, age, birth_date, address, gender, profile_picture)
		VALUES (:user_id, :age, :birth_date, :address, :gender, :profile_picture)
		ON CONFLICT (user_id) DO UPDATE SET
			age = EXCLUDED.age,
			birth_date = EXCLUDED.birth_date,
			address = EXCLUDED.address,
			gender = EXCLUDED.gender,
			profile_picture = COALESCE(EXCLUDED.profile_picture, user_information.profile_picture)
	`
	_, err := r.db.NamedExecContext(ctx, query, profile)
	return err
}
