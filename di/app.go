package di

import (
	"roombook/infras/kafka"
	"roombook/infras/otel"
	"roombook/infras/postgres"
	"roombook/internal/jobs/reminder"
	"roombook/transport/http"
)

// Application is everything cmd/app runs.
type Application struct {
	HTTP     *http.HTTP
	Reminder reminder.Job
	Kafka    kafka.Client
	DB       *postgres.Connection
	Otel     otel.Otel
}
