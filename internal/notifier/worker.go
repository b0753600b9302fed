package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/token"

	"patient-portal/internal/events"
	"patient-portal/internal/repository"
)

// Pusher is the part of the APNs client the worker needs.
type Pusher interface {
	Push(n *apns2.Notification) (*apns2.Response, error)
}

type APNsConfig struct {
	AuthKeyPath string
	KeyID       string
	TeamID      string
	Topic       string
	Production  bool
}

func (c APNsConfig) usable() bool {
	return c.AuthKeyPath != "" && c.AuthKeyPath[0] != '#' && c.KeyID != "" && c.TeamID != ""
}

// NewAPNsClient returns nil when no credentials are configured, which puts
// the worker in mock mode.
func NewAPNsClient(cfg APNsConfig) (*apns2.Client, error) {
	if !cfg.usable() {
		slog.Info("APNs credentials not found or invalid. Worker will run in MOCK mode.")
		return nil, nil
	}

	authKey, err := token.AuthKeyFromFile(cfg.AuthKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read APNs auth key: %w", err)
	}

	authToken := &token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	}

	if cfg.Production {
		return apns2.NewTokenClient(authToken).Production(), nil
	}
	return apns2.NewTokenClient(authToken).Development(), nil
}

type Worker struct {
	pusher Pusher
	tokens repository.DeviceTokenRepository
	topic  string
}

func NewWorker(pusher Pusher, tokens repository.DeviceTokenRepository, topic string) *Worker {
	return &Worker{pusher: pusher, tokens: tokens, topic: topic}
}

func (w *Worker) Subscribe(nc *nats.Conn) (*nats.Subscription, error) {
	return nc.Subscribe(events.SubjectResultCreated, func(msg *nats.Msg) {
		w.HandleResultCreated(context.Background(), msg.Data)
	})
}

// HandleResultCreated notifies every device of the patient a result was
// recorded for. It returns how many notifications were accepted.
func (w *Worker) HandleResultCreated(ctx context.Context, data []byte) int {
	var event events.ResultCreatedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.ErrorContext(ctx, "Error unmarshalling event", slog.String("error", err.Error()))
		return 0
	}

	tokens, err := w.tokens.ListByUser(ctx, event.PatientID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to retrieve device tokens",
			slog.Int64("user_id", event.PatientID), slog.String("error", err.Error()))
		return 0
	}

	if len(tokens) == 0 {
		slog.InfoContext(ctx, "No device tokens found, no notifications sent", slog.Int64("user_id", event.PatientID))
		return 0
	}

	payload := []byte(`{"aps":{"alert":"A new ultrasound result is available.","sound":"default"}}`)

	sent := 0
	for _, deviceToken := range tokens {
		notification := &apns2.Notification{
			DeviceToken: deviceToken,
			Topic:       w.topic,
			Payload:     payload,
		}

		if w.pusher == nil {
			slog.InfoContext(ctx, "Push notification sent (mock)", slog.String("device_token", deviceToken))
			sent++
			continue
		}

		res, err := w.pusher.Push(notification)
		switch {
		case err != nil:
			slog.ErrorContext(ctx, "Failed to send notification", slog.String("error", err.Error()))
		case res.Sent():
			slog.InfoContext(ctx, "Notification sent", slog.String("apns_id", res.ApnsID))
			sent++
		default:
			slog.WarnContext(ctx, "Notification not sent", slog.String("reason", res.Reason))
		}
	}

	return sent
}
