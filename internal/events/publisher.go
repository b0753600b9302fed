package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"patient-portal/internal/model"
)

const SubjectResultCreated = "result.created"

type EventPublisher interface {
	PublishResultCreated(result *model.Result) error
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (*NatsPublisher, error) {
	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, err
	}

	return &NatsPublisher{conn: nc}, nil
}

func (p *NatsPublisher) Close() {
	p.conn.Close()
}

type ResultCreatedEvent struct {
	EventType string    `json:"event_type"`
	ResultID  int64     `json:"result_id"`
	PatientID int64     `json:"patient_id"`
	DoctorID  int64     `json:"doctor_id"`
	Diagnosis string    `json:"diagnosis"`
	CreatedAt time.Time `json:"created_at"`
}

func NewResultCreatedEvent(result *model.Result) ResultCreatedEvent {
	return ResultCreatedEvent{
		EventType: SubjectResultCreated,
		ResultID:  result.ID,
		PatientID: result.UserID,
		DoctorID:  result.DoctorID,
		Diagnosis: result.Diagnosis,
		CreatedAt: result.CreatedAt,
	}
}

func (p *NatsPublisher) PublishResultCreated(result *model.Result) error {
	eventJSON, err := json.Marshal(NewResultCreatedEvent(result))
	if err != nil {
		slog.Error("Error marshalling event JSON", slog.String("error", err.Error()))
		return err
	}

	if err := p.conn.Publish(SubjectResultCreated, eventJSON); err != nil {
		slog.Error("Error publishing to NATS", slog.String("error", err.Error()))
		return err
	}

	slog.Info("Published event to NATS",
		slog.String("subject", SubjectResultCreated), slog.Int64("result_id", result.ID))

	return nil
}
