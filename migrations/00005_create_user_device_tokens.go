package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateUserDeviceTokens, downCreateUserDeviceTokens)
}

func upCreateUserDeviceTokens(ctx context.Context, tx *sql.Tx) error {
	query := `
	CREATE TABLE user_device_tokens (
	  user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
	  device_token TEXT NOT NULL UNIQUE,
	  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	CREATE INDEX idx_user_device_tokens_user_id ON user_device_tokens (user_id);
	`

	_, err := tx.ExecContext(ctx, query)

	if err != nil {
		return err
	}

	return nil
}

func downCreateUserDeviceTokens(ctx context.Context, tx *sql.Tx) error {
	query := `DROP TABLE IF EXISTS user_device_tokens;`
	_, err := tx.ExecContext(ctx, query)
	if err != nil {
		return err
	}
	return nil
}
