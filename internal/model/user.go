package model

import "time"

const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

type User struct {
	ID           int64     `db:"user_id" json:"user_id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"date_modified" json:"date_modified"`
}

// UserSummary is a user row joined with its profile, as listed on the admin pages.
type UserSummary struct {
	User
	Name           string     `db:"name" json:"name"`
	Age            *int       `db:"age" json:"age,omitempty"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Address        *string    `db:"address" json:"address,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	ProfilePicture *string    `db:"profile_picture" json:"profile_picture,omitempty"`
}
