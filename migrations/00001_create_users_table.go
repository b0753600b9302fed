package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateUsersTable, downCreateUsersTable)
}

func upCreateUsersTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE users (
	  user_id BIGSERIAL PRIMARY KEY,
	  first_name VARCHAR(64) NOT NULL,
	  last_name VARCHAR(64) NOT NULL,
	  email TEXT NOT NULL,
	  password TEXT NOT NULL,
	  role VARCHAR(16) NOT NULL CHECK (role IN ('admin', 'doctor', 'patient')),
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now(),
	  date_modified TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	CREATE UNIQUE INDEX users_email_key ON users (lower(email));
	CREATE INDEX idx_users_role ON users (role);
	`

	_, err := tx.ExecContext(ctx, query)

	if err != nil {
		return err
	}

	return nil
}

func downCreateUsersTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS users;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}
	return nil
}
