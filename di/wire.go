//go:build wireinject
// +build wireinject

package di

import (
	"roombook/config"
	"roombook/infras/jwt"
	"roombook/infras/kafka"
	"roombook/infras/otel"
	"roombook/infras/postgres"
	"roombook/infras/redis"
	"roombook/internal/jobs/reminder"
	"roombook/permissions"
	"roombook/shared/cache"
	"roombook/shared/lock"
	"roombook/shared/timezone"
	"roombook/transport/http"
	"roombook/transport/http/middleware"
	"roombook/transport/http/router"

	"github.com/google/wire"

	authService "roombook/internal/domains/auth/service"
	reservationEvent "roombook/internal/domains/reservation/event"
	reservationRepository "roombook/internal/domains/reservation/repository"
	reservationService "roombook/internal/domains/reservation/service"
	roomRepository "roombook/internal/domains/room/repository"
	roomService "roombook/internal/domains/room/service"
	userRepository "roombook/internal/domains/user/repository"
	userService "roombook/internal/domains/user/service"
	authHandler "roombook/internal/handlers/auth"
	reservationHandler "roombook/internal/handlers/reservation"
	roomHandler "roombook/internal/handlers/room"
	userHandler "roombook/internal/handlers/user"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	lock.New,
	timezone.NewClock,
)

var userDomain = wire.NewSet(
	userRepository.New,
	userService.New,
	authService.New,
)

var roomDomain = wire.NewSet(
	roomRepository.New,
	roomService.New,
)

var reservationDomain = wire.NewSet(
	reservationRepository.New,
	reservationEvent.Provide,
	reservationService.New,
)

var domains = wire.NewSet(
	userDomain,
	roomDomain,
	reservationDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	authHandler.New,
	userHandler.New,
	roomHandler.New,
	reservationHandler.New,
	router.New,
)

var jobs = wire.NewSet(
	reminder.New,
)

func InitializeService() *Application {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		jobs,
		http.New,
		wire.Struct(new(Application), "*"),
	)

	return &Application{}
}
