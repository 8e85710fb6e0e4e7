// Command notifier consumes reservation lifecycle and reminder events and logs one notification per event.
// Delivery channels (mail, chat) plug in behind notify.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"roombook/config"
	"roombook/infras/kafka"
	"roombook/internal/domains/reservation/event"
	"roombook/shared/constant"
	"roombook/shared/logger"
	"roombook/shared/timezone"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

const consumerGroupSuffix = ".notifier"

func main() {
	cfg := config.Get()

	logger.InitLogger(cfg.Server.Env)

	logger.SetLogLevel(cfg)

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal().Msg("KAFKA_BROKERS is required for the notifier")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := kafka.New(cfg)
	group := cfg.Kafka.ConsumerGroup + consumerGroupSuffix

	var wg sync.WaitGroup

	for _, topic := range []string{cfg.Kafka.Topics.Reservation, cfg.Kafka.Topics.Reminder} {
		wg.Add(1)

		go func(topic string) {
			defer wg.Done()

			client.Consume(ctx, group, topic, handle)
		}(topic)
	}

	log.Info().Str("group", group).Msg("Notifier started")

	wg.Wait()

	if err := client.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close kafka client")
	}

	log.Info().Msg("Notifier stopped")
}

func handle(message kafkaGo.Message) {
	e, err := kafka.DecodeKafkaMessage[event.Event](message)
	if err != nil {
		return
	}

	notify(e)
}

func notify(e event.Event) {
	entry := log.Info().
		Str("type", string(e.Type)).
		Str("reservation_id", e.ReservationID).
		Str("room_id", e.RoomID).
		Str("recipient", e.RequesterID).
		Str("start", timezone.Format(e.StartAt, constant.DateFormat)).
		Str("end", timezone.Format(e.EndAt, constant.DateFormat))

	if e.Comment != "" {
		entry = entry.Str("comment", e.Comment)
	}

	switch e.Type {
	case event.TypeRequested:
		entry.Msg("Reservation request received")
	case event.TypeApproved:
		entry.Msg("Reservation approved")
	case event.TypeRejected:
		entry.Msg("Reservation rejected")
	case event.TypeCancelled:
		entry.Msg("Reservation cancelled")
	case event.TypeModified:
		entry.Msg("Reservation rescheduled")
	case event.TypeReminder:
		entry.Msg("Reservation starts soon")
	default:
		entry.Msg("Unknown reservation event")
	}
}
