package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"patient-portal/internal/model"
	"patient-portal/internal/password"
	"patient-portal/internal/repository"
	"patient-portal/internal/storage"
)

type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
	Age       *int
	BirthDate *time.Time
	Gender    *string
	Address   *string
}

type ProfileUpdate struct {
	UserID    int64
	Age       *int
	BirthDate *time.Time
	Gender    *string
	Address   *string
	Picture   *Upload
}

type UserService interface {
	SignUp(ctx context.Context, in NewUser) (*model.User, error)
	Authenticate(ctx context.Context, email, plain string) (*model.User, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
	ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error
	UpdateUser(ctx context.Context, id int64, firstName, lastName, email, role string) error
	UpdateAccount(ctx context.Context, id int64, firstName, lastName, email string) error
	UpdateProfile(ctx context.Context, in ProfileUpdate) (*model.Profile, error)
	DeleteUser(ctx context.Context, actorID, targetID int64) error
}

type userService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	blobs    storage.BlobStore
	now      func() time.Time
}

func NewUserService(users repository.UserRepository, profiles repository.ProfileRepository, blobs storage.BlobStore) UserService {
	return &userService{
		users:    users,
		profiles: profiles,
		blobs:    blobs,
		now:      time.Now,
	}
}

// SignUp creates an account with the default password derived from the
// birth date, or from today when none is given.
func (s *userService) SignUp(ctx context.Context, in NewUser) (*model.User, error) {
	taken, err := s.users.EmailTaken(ctx, in.Email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	date := s.now()
	if in.BirthDate != nil {
		date = *in.BirthDate
	}

	hashed, err := password.Hash(password.Default(in.FirstName, in.LastName, date))
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PasswordHash: hashed,
		Role:         in.Role,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	profile := &model.Profile{
		UserID:    user.ID,
		Age:       in.Age,
		BirthDate: in.BirthDate,
		Gender:    in.Gender,
		Address:   in.Address,
	}
	if !profile.Empty() {
		if err := s.profiles.Upsert(ctx, profile); err != nil {
			return user, fmt.Errorf("save profile: %w", err)
		}
	}

	return user, nil
}

func (s *userService) Authenticate(ctx context.Context, email, plain string) (*model.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !password.Verify(plain, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *userService) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *userService) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	if !password.Verify(oldPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *userService) setPassword(ctx context.Context, userID int64, plain string) error {
	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hashed); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

func (s *userService) UpdateUser(ctx context.Context, id int64, firstName, lastName, email, role string) error {
	taken, err := s.users.EmailTaken(ctx, email, id)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}

	return s.update(ctx, &model.User{ID: id, FirstName: firstName, LastName: lastName, Email: email, Role: role})
}

func (s *userService) UpdateAccount(ctx context.Context, id int64, firstName, lastName, email string) error {
	current, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	taken, err := s.users.EmailTaken(ctx, email, id)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}

	current.FirstName = firstName
	current.LastName = lastName
	current.Email = email
	return s.update(ctx, current)
}

func (s *userService) update(ctx context.Context, user *model.User) error {
	err := s.users.Update(ctx, user)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case repository.IsUniqueViolation(err):
		return ErrEmailTaken
	}
	return err
}

// UpdateProfile stores the profile and, when a new picture is uploaded,
// replaces the previous one.
func (s *userService) UpdateProfile(ctx context.Context, in ProfileUpdate) (*model.Profile, error) {
	previous, err := s.profiles.FindByUserID(ctx, in.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	profile := &model.Profile{
		UserID:    in.UserID,
		Age:       in.Age,
		BirthDate: in.BirthDate,
		Gender:    in.Gender,
		Address:   in.Address,
	}

	var uploadedKey string
	if in.Picture != nil && len(in.Picture.Data) > 0 {
		uploadedKey = storage.NewKey(storage.ProfilePrefix, in.Picture.Filename)
		url, err := s.blobs.Put(ctx, uploadedKey, in.Picture.Data, in.Picture.ContentType)
		if err != nil {
			return nil, fmt.Errorf("upload profile picture: %w", err)
		}
		profile.ProfilePicture = &url
	}

	if err := s.profiles.Upsert(ctx, profile); err != nil {
		if uploadedKey != "" {
			s.deleteBlob(ctx, uploadedKey)
		}
		return nil, err
	}

	if uploadedKey != "" && previous != nil && previous.ProfilePicture != nil {
		if key, ok := s.blobs.KeyFromURL(*previous.ProfilePicture); ok {
			s.deleteBlob(ctx, key)
		}
	}
	if profile.ProfilePicture == nil && previous != nil {
		profile.ProfilePicture = previous.ProfilePicture
	}

	return profile, nil
}

func (s *userService) DeleteUser(ctx context.Context, actorID, targetID int64) error {
	if actorID == targetID {
		return ErrSelfDelete
	}

	err := s.users.Delete(ctx, targetID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrUserNotFound
	case repository.IsForeignKeyViolation(err):
		return ErrUserHasResults
	}
	return err
}

func (s *userService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "Failed to delete blob", slog.String("key", key), slog.String("error", err.Error()))
	}
}
