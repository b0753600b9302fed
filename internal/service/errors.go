package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailTaken         = errors.New("email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("old password does not match")
	ErrSelfDelete         = errors.New("cannot delete your own account")
	ErrUserHasResults     = errors.New("user still has results")
	ErrNotPatient         = errors.New("user is not a patient")
	ErrResultNotFound     = errors.New("result not found")
)

// Upload is a file received from a form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
