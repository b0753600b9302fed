package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateResultsTable, downCreateResultsTable)
}

func upCreateResultsTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE results (
	  result_id BIGSERIAL PRIMARY KEY,
	  doctor_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE RESTRICT,
	  user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  ultrasound_image TEXT NOT NULL,
	  percentage TEXT NOT NULL DEFAULT '',
	  diagnosis TEXT NOT NULL DEFAULT '',
	  status VARCHAR(16) NOT NULL DEFAULT 'to examine'
	);
	CREATE INDEX idx_results_user_id ON results (user_id);
	CREATE INDEX idx_results_doctor_id ON results (doctor_id);
	`

	_, err := tx.ExecContext(ctx, query)

	if err != nil {
		return err
	}

	return nil
}

func downCreateResultsTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS results;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}
	return nil
}
