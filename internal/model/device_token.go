package model

import "time"

type DeviceToken struct {
	UserID      int64     `db:"user_id"`
	DeviceToken string    `db:"device_token"`
	CreatedAt   time.Time `db:"created_at"`
}
