// Package event publishes reservation lifecycle facts for downstream consumers such as notifications.
package event

//go:generate go run go.uber.org/mock/mockgen -source=./event.go -destination=../mocks/event_mock.go -package=mocks

import (
	"context"
	"fmt"
	"time"

	"roombook/config"
	"roombook/infras/kafka"
	"roombook/infras/otel"
	"roombook/internal/domains/reservation/model"
	"roombook/shared/constant"

	"github.com/rs/zerolog/log"
)

type Type string

const (
	TypeRequested Type = "reservation.requested"
	TypeApproved  Type = "reservation.approved"
	TypeRejected  Type = "reservation.rejected"
	TypeCancelled Type = "reservation.cancelled"
	TypeModified  Type = "reservation.modified"
	TypeReminder  Type = "reservation.reminder"
)

// ForStatus maps the status a reservation moved into to its event type.
func ForStatus(status model.Status) Type {
	switch status {
	case model.StatusApproved:
		return TypeApproved
	case model.StatusRejected:
		return TypeRejected
	case model.StatusCancelled:
		return TypeCancelled
	default:
		return TypeRequested
	}
}

type Event struct {
	Type          Type         `json:"type"`
	ReservationID string       `json:"reservation_id"`
	RoomID        string       `json:"room_id"`
	RequesterID   string       `json:"requester_id"`
	Status        model.Status `json:"status"`
	StartAt       time.Time    `json:"start_at"`
	EndAt         time.Time    `json:"end_at"`
	ActorID       string       `json:"actor_id,omitempty"`
	Comment       string       `json:"comment,omitempty"`
	OccurredAt    time.Time    `json:"occurred_at"`
}

func New(t Type, res model.Reservation, actorID string, at time.Time) Event {
	e := Event{
		Type:          t,
		ReservationID: res.ID,
		RoomID:        res.RoomID,
		RequesterID:   res.RequesterID,
		Status:        res.Status,
		StartAt:       res.StartAt,
		EndAt:         res.EndAt,
		ActorID:       actorID,
		OccurredAt:    at,
	}

	if res.DecisionComment != nil {
		e.Comment = *res.DecisionComment
	}

	return e
}

type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

type kafkaPublisher struct {
	client kafka.Client
	cfg    *config.Config
	otel   otel.Otel
}

func NewPublisher(client kafka.Client, cfg *config.Config, otel otel.Otel) Publisher {
	return &kafkaPublisher{
		client: client,
		cfg:    cfg,
		otel:   otel,
	}
}

// Publish keys every message by reservation id so one reservation's events stay ordered within a partition.
func (p *kafkaPublisher) Publish(ctx context.Context, events ...Event) (err error) {
	ctx, scope := p.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Publish")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	byTopic := map[string][]kafka.Message{}

	for _, e := range events {
		topic := p.topic(e.Type)
		byTopic[topic] = append(byTopic[topic], kafka.Message{Key: e.ReservationID, Value: e})
	}

	for topic, messages := range byTopic {
		if err = p.client.SendMessages(ctx, topic, messages...); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("failed to publish reservation events")

			return fmt.Errorf("failed to publish reservation events: %w", err)
		}
	}

	return nil
}

// Provide returns the kafka publisher when brokers are configured and Noop otherwise.
func Provide(client kafka.Client, cfg *config.Config, otel otel.Otel) Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Warn().Msg("No kafka brokers configured, reservation events will be dropped")

		return Noop{}
	}

	return NewPublisher(client, cfg, otel)
}

func (p *kafkaPublisher) topic(t Type) string {
	if t == TypeReminder {
		return p.cfg.Kafka.Topics.Reminder
	}

	return p.cfg.Kafka.Topics.Reservation
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(_ context.Context, events ...Event) error {
	for _, e := range events {
		log.Debug().Str("type", string(e.Type)).Str("reservation_id", e.ReservationID).Msg("event publishing disabled, dropping event")
	}

	return nil
}
