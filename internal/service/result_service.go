package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"patient-portal/internal/events"
	"patient-portal/internal/model"
	"patient-portal/internal/prediction"
	"patient-portal/internal/repository"
	"patient-portal/internal/storage"
)

type ResultService interface {
	AddPatient(ctx context.Context, doctorID, patientID int64, image Upload) (*model.Result, error)
	UpdateResult(ctx context.Context, id int64, diagnosis, status string) error
	DeleteResult(ctx context.Context, id int64) error
	RegisterDeviceToken(ctx context.Context, userID int64, token string) error
}

type resultService struct {
	users     repository.UserRepository
	results   repository.ResultRepository
	tokens    repository.DeviceTokenRepository
	predictor prediction.Predictor
	blobs     storage.BlobStore
	publisher events.EventPublisher
}

// NewResultService wires the result actions. publisher may be nil, in which
// case no events are sent.
func NewResultService(
	users repository.UserRepository,
	results repository.ResultRepository,
	tokens repository.DeviceTokenRepository,
	predictor prediction.Predictor,
	blobs storage.BlobStore,
	publisher events.EventPublisher,
) ResultService {
	return &resultService{
		users:     users,
		results:   results,
		tokens:    tokens,
		predictor: predictor,
		blobs:     blobs,
		publisher: publisher,
	}
}

// AddPatient records a new ultrasound result for a patient. A failing
// prediction leaves percentage and diagnosis empty instead of aborting.
func (s *resultService) AddPatient(ctx context.Context, doctorID, patientID int64, image Upload) (*model.Result, error) {
	patient, err := s.users.FindByID(ctx, patientID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if patient.Role != model.RolePatient {
		return nil, ErrNotPatient
	}

	result := &model.Result{
		DoctorID: doctorID,
		UserID:   patientID,
		Status:   model.StatusToExamine,
	}

	p, err := s.predictor.Predict(ctx, image.Filename, image.Data)
	if err != nil {
		slog.WarnContext(ctx, "Prediction failed, saving result without diagnosis",
			slog.Int64("patient_id", patientID), slog.String("error", err.Error()))
	} else {
		result.Percentage = p.Percentage
		result.Diagnosis = normalizeDiagnosis(p.Result)
	}

	key := storage.NewKey(storage.UltrasoundPrefix, image.Filename)
	url, err := s.blobs.Put(ctx, key, image.Data, image.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload ultrasound image: %w", err)
	}
	result.UltrasoundImage = url

	if err := s.results.Create(ctx, result); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			slog.ErrorContext(ctx, "Failed to remove orphaned ultrasound image",
				slog.String("key", key), slog.String("error", delErr.Error()))
		}
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishResultCreated(result); err != nil {
			slog.WarnContext(ctx, "Failed to publish result event",
				slog.Int64("result_id", result.ID), slog.String("error", err.Error()))
		}
	}

	return result, nil
}

func normalizeDiagnosis(raw string) string {
	for _, d := range []string{model.DiagnosisHealthy, model.DiagnosisInfected, model.DiagnosisInvalid} {
		if strings.EqualFold(strings.TrimSpace(raw), d) {
			return d
		}
	}
	return strings.TrimSpace(raw)
}

func (s *resultService) UpdateResult(ctx context.Context, id int64, diagnosis, status string) error {
	err := s.results.Update(ctx, id, diagnosis, status)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResultNotFound
	}
	return err
}

// DeleteResult removes the result and then, best effort, its image.
func (s *resultService) DeleteResult(ctx context.Context, id int64) error {
	result, err := s.results.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrResultNotFound
	}
	if err != nil {
		return err
	}

	if err := s.results.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResultNotFound
		}
		return err
	}

	if key, ok := s.blobs.KeyFromURL(result.UltrasoundImage); ok {
		if err := s.blobs.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "Failed to delete ultrasound image",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return nil
}

func (s *resultService) RegisterDeviceToken(ctx context.Context, userID int64, token string) error {
	return s.tokens.Register(ctx, userID, token)
}
