// Package reminder polls for approved reservations that are about to start and publishes a reminder event for each.
// It only reads reservations.
package reminder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"roombook/config"
	"roombook/infras/otel"
	"roombook/internal/domains/reservation/event"
	"roombook/internal/domains/reservation/model"
	"roombook/internal/domains/reservation/repository"
	"roombook/shared"
	"roombook/shared/cache"
	"roombook/shared/constant"
	"roombook/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	cacheKeyReminder       = "reminder:sent"
	defaultIntervalSeconds = 300
)

type Job interface {
	Start(ctx context.Context)
	Stop()
	RunOnce(ctx context.Context) (int, error)
}

type jobImpl struct {
	repo      repository.Reservation
	publisher event.Publisher
	cache     cache.RedisCache
	clock     timezone.Clock
	cfg       *config.Config
	otel      otel.Otel

	cancel context.CancelFunc
	done   chan struct{}
}

func New(
	repo repository.Reservation,
	publisher event.Publisher,
	cache cache.RedisCache,
	clock timezone.Clock,
	cfg *config.Config,
	otel otel.Otel,
) Job {
	return &jobImpl{
		repo:      repo,
		publisher: publisher,
		cache:     cache,
		clock:     clock,
		cfg:       cfg,
		otel:      otel,
	}
}

// Start runs one pass immediately and then one per interval until ctx is done or Stop is called.
func (j *jobImpl) Start(ctx context.Context) {
	settings := j.cfg.Scheduling.Reminder
	if !settings.Enable {
		log.Info().Msg("Reminder job disabled")

		return
	}

	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	seconds := settings.IntervalSeconds
	if seconds <= 0 {
		log.Warn().Int("interval_seconds", seconds).Msg("invalid reminder interval, using default")

		seconds = defaultIntervalSeconds
	}

	interval := time.Duration(seconds) * time.Second

	log.Info().Dur("interval", interval).Int("lead_minutes", settings.LeadMinutes).Msg("Reminder job started")

	go func() {
		defer close(j.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if _, err := j.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("reminder pass failed")
			}

			select {
			case <-ctx.Done():
				log.Info().Msg("Reminder job stopped")

				return
			case <-ticker.C:
			}
		}
	}()
}

func (j *jobImpl) Stop() {
	if j.cancel == nil {
		return
	}

	j.cancel()
	<-j.done
}

// RunOnce publishes reminders for approved reservations starting within the lead window and returns how many were sent.
// A reservation is reminded at most once per start time.
func (j *jobImpl) RunOnce(ctx context.Context) (sent int, err error) {
	ctx, scope := j.otel.NewScope(ctx, constant.OtelJobScopeName, constant.OtelJobScopeName+".reminder.RunOnce")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	now := j.clock.Now()
	lead := time.Duration(j.cfg.Scheduling.Reminder.LeadMinutes) * time.Minute

	upcoming, err := j.repo.FindStartingBetween(ctx, now, now.Add(lead), model.StatusApproved)
	if err != nil {
		log.Error().Err(err).Msg("failed to load upcoming reservations")

		return 0, fmt.Errorf("failed to load upcoming reservations: %w", err)
	}

	events := make([]event.Event, 0, len(upcoming))
	keys := make([]string, 0, len(upcoming))

	for _, res := range upcoming {
		key := shared.BuildCacheKey(cacheKeyReminder, res.ID, strconv.FormatInt(res.StartAt.Unix(), 10))

		first, cacheErr := j.cache.SaveIfAbsent(ctx, key, now, ttlSeconds(res.StartAt, now, lead))
		if cacheErr != nil {
			log.Warn().Err(cacheErr).Str("reservation_id", res.ID).Msg("reminder dedupe unavailable, sending anyway")
		} else if !first {
			continue
		}

		events = append(events, event.New(event.TypeReminder, res, constant.ContextSystem, now))
		keys = append(keys, key)
	}

	if len(events) == 0 {
		return 0, nil
	}

	if err = j.publisher.Publish(ctx, events...); err != nil {
		// Release the markers so the next pass retries.
		for _, key := range keys {
			if delErr := j.cache.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				log.Warn().Err(delErr).Str("key", key).Msg("failed to release reminder marker")
			}
		}

		return 0, fmt.Errorf("failed to publish reminders: %w", err)
	}

	scope.SetAttribute("reminder.sent", len(events))
	log.Info().Int("sent", len(events)).Msg("reminders published")

	return len(events), nil
}

// ttlSeconds keeps the marker until the reservation has started plus one lead window.
func ttlSeconds(start, now time.Time, lead time.Duration) int {
	return int(start.Sub(now).Seconds() + lead.Seconds() + 1)
}
