package model

import "time"

type Profile struct {
	UserID         int64      `db:"user_id" json:"user_id"`
	Age            *int       `db:"age" json:"age,omitempty"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Address        *string    `db:"address" json:"address,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	ProfilePicture *string    `db:"profile_picture" json:"profile_picture,omitempty"`
}

func (p *Profile) Empty() bool {
	return p.Age == nil && p.BirthDate == nil && p.Address == nil && p.Gender == nil && p.ProfilePicture == nil
}
