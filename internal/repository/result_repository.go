package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"patient-portal/internal/model"
)

type ResultRepository interface {
	Create(ctx context.Context, result *model.Result) error
	FindByID(ctx context.Context, id int64) (*model.Result, error)
	Details(ctx context.Context, id int64) (*model.ResultDetails, error)
	ListAll(ctx context.Context) ([]model.ResultDetails, error)
	ListByPatient(ctx context.Context, patientID int64) ([]model.ResultDetails, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]model.ResultDetails, error)
	Update(ctx context.Context, id int64, diagnosis, status string) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (*model.Stats, error)
}

type postgresResultRepository struct {
	db *sqlx.DB
}

func NewPostgresResultRepository(db *sqlx.DB) ResultRepository {
	return &postgresResultRepository{db: db}
}

const resultDetailsSelect = `
	SELECT
		r.result_id, r.doctor_id, r.user_id, r.created_at, r.ultrasound_image,
		r.percentage, r.diagnosis, r.status,
		CONCAT(p.first_name, ' ', p.last_name) AS name,
		p.first_name AS user_first_name,
		p.last_name AS user_last_name,
		p.email AS user_email,
		d.first_name AS doctor_first_name,
		d.last_name AS doctor_last_name,
		dp.profile_picture AS doctor_profile_picture
	FROM results r
	JOIN users p ON r.user_id = p.user_id
	JOIN users d ON r.doctor_id = d.user_id
	LEFT JOIN user_information dp ON d.user_id = dp.user_id
`

func (r *postgresResultRepository) Create(ctx context.Context, result *model.Result) error {
	query := `
		INSERT INTO results (doctor_id, user_id, ultrasound_image, percentage, diagnosis, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING result_id, created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		result.DoctorID, result.UserID, result.UltrasoundImage, result.Percentage, result.Diagnosis, result.Status,
	).Scan(&result.ID, &result.CreatedAt)
}

func (r *postgresResultRepository) FindByID(ctx context.Context, id int64) (*model.Result, error) {
	var result model.Result
	query := `
		SELECT result_id, doctor_id, user_id, created_at, ultrasound_image, percentage, diagnosis, status
		FROM results WHERE result_id = $1
	`
	if err := r.db.GetContext(ctx, &result, query, id); err != nil {
		return nil, notFound(err)
	}

	return &result, nil
}

func (r *postgresResultRepository) Details(ctx context.Context, id int64) (*model.ResultDetails, error) {
	var details model.ResultDetails
	query := resultDetailsSelect + ` WHERE r.result_id = $1`
	if err := r.db.GetContext(ctx, &details, query, id); err != nil {
		return nil, notFound(err)
	}

	return &details, nil
}

func (r *postgresResultRepository) ListAll(ctx context.Context) ([]model.ResultDetails, error) {
	results := []model.ResultDetails{}
	err := r.db.SelectContext(ctx, &results, resultDetailsSelect+` ORDER BY r.created_at DESC`)
	return results, err
}

func (r *postgresResultRepository) ListByPatient(ctx context.Context, patientID int64) ([]model.ResultDetails, error) {
	results := []model.ResultDetails{}
	query := resultDetailsSelect + ` WHERE r.user_id = $1 ORDER BY r.created_at DESC`
	err := r.db.SelectContext(ctx, &results, query, patientID)
	return results, err
}

func (r *postgresResultRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]model.ResultDetails, error) {
	results := []model.ResultDetails{}
	query := resultDetailsSelect + ` WHERE r.doctor_id = $1 ORDER BY r.created_at DESC`
	err := r.db.SelectContext(ctx, &results, query, doctorID)
	return results, err
}

func (r *postgresResultRepository) Update(ctx context.Context, id int64, diagnosis, status string) error {
	query := `UPDATE results SET diagnosis = $1, status = $2 WHERE result_id = $3`
	return expectAffected(r.db.ExecContext(ctx, query, diagnosis, status, id))
}

func (r *postgresResultRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM results WHERE result_id = $1`
	return expectAffected(r.db.ExecContext(ctx, query, id))
}

func (r *postgresResultRepository) Stats(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'patient') AS total_patients,
			(SELECT COUNT(*) FROM results WHERE diagnosis = 'Infected') AS infected_patients,
			(SELECT COUNT(*) FROM results WHERE diagnosis = 'Healthy') AS healthy_patients
	`
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, err
	}

	return &stats, nil
}
