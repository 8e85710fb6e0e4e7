package event_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"roombook/config"
	"roombook/infras/kafka"
	kafkaMocks "roombook/infras/kafka/mocks"
	"roombook/infras/otel/mocks"
	"roombook/internal/domains/reservation/event"
	"roombook/internal/domains/reservation/model"
)

func reservation() model.Reservation {
	comment := "approved for the offsite"

	return model.Reservation{
		ID:              "res-1",
		RoomID:          "room-1",
		RequesterID:     "user-1",
		StartAt:         time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC),
		EndAt:           time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC),
		Status:          model.StatusApproved,
		DecisionComment: &comment,
	}
}

func TestNew(t *testing.T) {
	at := time.Date(2029, 12, 1, 0, 0, 0, 0, time.UTC)

	e := event.New(event.TypeApproved, reservation(), "admin-1", at)

	assert.Equal(t, event.TypeApproved, e.Type)
	assert.Equal(t, "res-1", e.ReservationID)
	assert.Equal(t, "room-1", e.RoomID)
	assert.Equal(t, model.StatusApproved, e.Status)
	assert.Equal(t, "admin-1", e.ActorID)
	assert.Equal(t, "approved for the offsite", e.Comment)
	assert.Equal(t, at, e.OccurredAt)
}

func TestForStatus(t *testing.T) {
	assert.Equal(t, event.TypeApproved, event.ForStatus(model.StatusApproved))
	assert.Equal(t, event.TypeRejected, event.ForStatus(model.StatusRejected))
	assert.Equal(t, event.TypeCancelled, event.ForStatus(model.StatusCancelled))
	assert.Equal(t, event.TypeRequested, event.ForStatus(model.StatusPending))
}

func TestKafkaPublisher_Publish(t *testing.T) {
	cfg := &config.Config{}
	cfg.Kafka.Topics.Reservation = "reservation.lifecycle"
	cfg.Kafka.Topics.Reminder = "reservation.reminder"

	approved := event.New(event.TypeApproved, reservation(), "admin-1", time.Now())
	reminder := event.New(event.TypeReminder, reservation(), "", time.Now())

	tests := []struct {
		name      string
		events    []event.Event
		setupMock func(client *kafkaMocks.MockClient)
		wantErr   bool
	}{
		{
			name:   "lifecycle event goes to the lifecycle topic",
			events: []event.Event{approved},
			setupMock: func(client *kafkaMocks.MockClient) {
				client.EXPECT().
					SendMessages(gomock.Any(), "reservation.lifecycle", kafka.Message{Key: "res-1", Value: approved}).
					Return(nil)
			},
		},
		{
			name:   "reminder event goes to the reminder topic",
			events: []event.Event{reminder},
			setupMock: func(client *kafkaMocks.MockClient) {
				client.EXPECT().
					SendMessages(gomock.Any(), "reservation.reminder", kafka.Message{Key: "res-1", Value: reminder}).
					Return(nil)
			},
		},
		{
			name:   "broker error is returned",
			events: []event.Event{approved},
			setupMock: func(client *kafkaMocks.MockClient) {
				client.EXPECT().
					SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("broker down"))
			},
			wantErr: true,
		},
		{
			name:      "nothing to publish",
			setupMock: func(_ *kafkaMocks.MockClient) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := kafkaMocks.NewMockClient(ctrl)
			tt.setupMock(client)

			publisher := event.NewPublisher(client, cfg, mocks.NewOtel())
			err := publisher.Publish(context.Background(), tt.events...)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNoop(t *testing.T) {
	assert.NoError(t, event.Noop{}.Publish(context.Background(), event.New(event.TypeRequested, reservation(), "", time.Now())))
}

func TestProvide(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := kafkaMocks.NewMockClient(ctrl)

	cfg := &config.Config{}
	assert.IsType(t, event.Noop{}, event.Provide(client, cfg, mocks.NewOtel()))

	cfg.Kafka.Brokers = []string{"localhost:9092"}
	assert.NotEqual(t, event.Noop{}, event.Provide(client, cfg, mocks.NewOtel()))
}
