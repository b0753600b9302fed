package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateUserInformationTable, downCreateUserInformationTable)
}

func upCreateUserInformationTable(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE user_information (
	  user_id BIGINT PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
	  age INTEGER,
	  birth_date DATE,
	  address TEXT,
	  gender VARCHAR(16),
	  profile_picture TEXT
	);
	`

	_, err := tx.ExecContext(ctx, query)

	if err != nil {
		return err
	}

	return nil
}

func downCreateUserInformationTable(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS user_information;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}
	return nil
}
