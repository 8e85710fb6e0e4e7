package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"roombook/config"
	"roombook/infras/otel"
	"roombook/internal/domains/reservation/conflict"
	"roombook/internal/domains/reservation/event"
	"roombook/internal/domains/reservation/lifecycle"
	"roombook/internal/domains/reservation/model"
	"roombook/internal/domains/reservation/model/dto"
	"roombook/internal/domains/reservation/repository"
	"roombook/internal/domains/reservation/validation"
	roomModel "roombook/internal/domains/room/model"
	roomDto "roombook/internal/domains/room/model/dto"
	roomRepo "roombook/internal/domains/room/repository"
	"roombook/shared"
	"roombook/shared/cache"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	"roombook/shared/lock"
	gModel "roombook/shared/model"
	"roombook/shared/timezone"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetReservation    = "reservation:get"
	cacheGetAllReservation = "reservation:gets"
	cacheCountReservation  = "reservation:count"

	lockKindRoom      = "room"
	lockKindRequester = "requester"

	copySuffix = " (copy)"
)

type Scheduling interface {
	RequestReservation(ctx context.Context, req validation.Request) (model.Reservation, error)
	Decide(ctx context.Context, id string, actor model.Actor, approve bool, comment string) (model.Reservation, error)
	Cancel(ctx context.Context, id string, actor model.Actor) (model.Reservation, error)
	Modify(ctx context.Context, id string, actor model.Actor, start, end time.Time, description string) (model.Reservation, error)
	Duplicate(ctx context.Context, id string, actor model.Actor, start time.Time) (model.Reservation, error)
	Availability(ctx context.Context, roomID string, interval model.Interval) (dto.AvailabilityResponse, error)
	SuggestRooms(ctx context.Context, query SuggestQuery) (dto.SuggestRoomsResponse, error)
	Stats(ctx context.Context, requesterID string) (dto.StatsResponse, error)
	Get(ctx context.Context, id string, actor model.Actor) (dto.ReservationResponse, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetReservationsResponse, error)
	Count(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (int, error)
}

// SuggestQuery describes what a free room must offer.
type SuggestQuery struct {
	Interval  model.Interval
	Attendees int
	Equipment []string
}

type page struct {
	Reservations []model.Reservation `json:"reservations"`
	Total        int                 `json:"total"`
}

type serviceImpl struct {
	repo      repository.Reservation
	roomRepo  roomRepo.Room
	locker    lock.Locker
	publisher event.Publisher
	cache     cache.RedisCache
	clock     timezone.Clock
	rules     validation.Rules
	cfg       *config.Config
	otel      otel.Otel
}

func New(
	repo repository.Reservation,
	roomRepo roomRepo.Room,
	locker lock.Locker,
	publisher event.Publisher,
	cache cache.RedisCache,
	clock timezone.Clock,
	cfg *config.Config,
	otel otel.Otel,
) Scheduling {
	return &serviceImpl{
		repo:      repo,
		roomRepo:  roomRepo,
		locker:    locker,
		publisher: publisher,
		cache:     cache,
		clock:     clock,
		rules:     validation.RulesFromConfig(cfg),
		cfg:       cfg,
		otel:      otel,
	}
}

// RequestReservation admits a new PENDING reservation. The requester lock keeps concurrent requests from overrunning the daily quota.
func (s *serviceImpl) RequestReservation(ctx context.Context, req validation.Request) (res model.Reservation, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.RequestReservation")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	req.Description = strings.TrimSpace(req.Description)

	// Every rule except the quota can be decided without I/O.
	if result := s.rules.Validate(req, s.clock.Now(), 0); !result.OK() {
		logRejection(result.Err(), "reservation request rejected")

		return res, result.Err()
	}

	unlock, err := s.locker.Lock(ctx, lock.Key(lockKindRequester, req.RequesterID))
	if err != nil {
		log.Error().Err(err).Str("requester_id", req.RequesterID).Msg("failed to acquire requester lock")

		return res, fmt.Errorf("failed to acquire requester lock: %w", err)
	}
	defer unlock()

	now := s.clock.Now()

	count, err := s.dailyCount(ctx, req.RequesterID, req.Start, constant.Empty)
	if err != nil {
		return res, err
	}

	if result := s.rules.Validate(req, now, count); !result.OK() {
		logRejection(result.Err(), "reservation request rejected")

		return res, result.Err()
	}

	if err = s.ensureRoomBookable(ctx, req.RoomID); err != nil {
		return res, err
	}

	candidate := model.Reservation{
		RoomID:      req.RoomID,
		RequesterID: req.RequesterID,
		StartAt:     req.Start,
		EndAt:       req.End,
	}

	if err = s.checkUserConflict(ctx, candidate); err != nil {
		return res, err
	}

	if err = ctx.Err(); err != nil {
		return res, fmt.Errorf("reservation request aborted: %w", err)
	}

	res = model.Reservation{
		ID:          uuid.NewString(),
		RoomID:      req.RoomID,
		RequesterID: req.RequesterID,
		StartAt:     req.Start,
		EndAt:       req.End,
		Description: req.Description,
		Status:      model.StatusPending,
		Metadata: gModel.Metadata{
			CreatedAt:  now,
			ModifiedAt: now,
			CreatedBy:  req.RequesterID,
			ModifiedBy: req.RequesterID,
		},
	}

	if err = s.repo.Create(ctx, res); err != nil {
		log.Error().Err(err).Msg("failed to create reservation")

		return model.Reservation{}, fmt.Errorf("failed to create reservation: %w", err)
	}

	log.Info().Str("reservation_id", res.ID).Str("room_id", res.RoomID).Str("requester_id", res.RequesterID).Msg("reservation requested")

	s.afterChange(ctx, res, event.TypeRequested, req.RequesterID, now)

	return res, nil
}

// Decide approves or rejects a PENDING reservation. The approval conflict check and the write happen under the room lock.
func (s *serviceImpl) Decide(ctx context.Context, id string, actor model.Actor, approve bool, comment string) (res model.Reservation, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Decide")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !actor.IsAdmin() {
		return res, model.Reject(model.ReasonForbidden, "only admins can decide reservations")
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return res, err
	}

	unlock, err := s.locker.Lock(ctx, lock.Key(lockKindRoom, current.RoomID))
	if err != nil {
		log.Error().Err(err).Str("room_id", current.RoomID).Msg("failed to acquire room lock")

		return res, fmt.Errorf("failed to acquire room lock: %w", err)
	}
	defer unlock()

	if current, err = s.load(ctx, id); err != nil {
		return res, err
	}

	target := model.StatusRejected
	if approve {
		target = model.StatusApproved
	}

	if !lifecycle.CanTransition(current.Status, target) {
		err = model.Reject(model.ReasonInvalidTransition, fmt.Sprintf("cannot move reservation from %s to %s", current.Status, target))
		logRejection(err, "decision rejected")

		return res, err
	}

	if approve {
		if err = s.checkRoomConflict(ctx, current); err != nil {
			return res, err
		}
	}

	now := s.clock.Now()

	next, err := lifecycle.Apply(current, target, lifecycle.Decision{Actor: actor, Comment: comment, At: now})
	if err != nil {
		logRejection(err, "decision rejected")

		return res, err //nolint:wrapcheck
	}

	next.ModifiedAt = now
	next.ModifiedBy = actor.ID

	if err = s.persistStatus(ctx, current.Status, next); err != nil {
		return res, err
	}

	log.Info().Str("reservation_id", next.ID).Str("status", string(next.Status)).Str("admin_id", actor.ID).Msg("reservation decided")

	s.afterChange(ctx, next, event.ForStatus(next.Status), actor.ID, now)

	return next, nil
}

// Cancel is open to the requester and to admins. With strict cancel the requester cannot cancel an approved reservation once it started.
func (s *serviceImpl) Cancel(ctx context.Context, id string, actor model.Actor) (res model.Reservation, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Cancel")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	current, err := s.load(ctx, id)
	if err != nil {
		return res, err
	}

	if err = authorize(current, actor); err != nil {
		return res, err
	}

	now := s.clock.Now()

	if !actor.IsAdmin() && s.cfg.Scheduling.StrictCancel && current.Status == model.StatusApproved && !now.Before(current.StartAt) {
		err = model.Reject(model.ReasonInvalidTransition, "an approved reservation cannot be cancelled after it started")
		logRejection(err, "cancel rejected")

		return res, err
	}

	next, err := lifecycle.Apply(current, model.StatusCancelled, lifecycle.Decision{Actor: actor, At: now})
	if err != nil {
		logRejection(err, "cancel rejected")

		return res, err //nolint:wrapcheck
	}

	next.ModifiedAt = now
	next.ModifiedBy = actor.ID

	if err = s.persistStatus(ctx, current.Status, next); err != nil {
		return res, err
	}

	log.Info().Str("reservation_id", next.ID).Str("actor_id", actor.ID).Msg("reservation cancelled")

	s.afterChange(ctx, next, event.TypeCancelled, actor.ID, now)

	return next, nil
}

// Modify moves a PENDING or not yet started APPROVED reservation to a new interval, re-running every admission check against
// the new slot as if the reservation were cancelled and requested again.
func (s *serviceImpl) Modify(ctx context.Context, id string, actor model.Actor, start, end time.Time, description string) (res model.Reservation, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Modify")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	current, err := s.load(ctx, id)
	if err != nil {
		return res, err
	}

	if err = authorize(current, actor); err != nil {
		return res, err
	}

	// Requester before room, the same order everywhere both are held.
	unlockRequester, err := s.locker.Lock(ctx, lock.Key(lockKindRequester, current.RequesterID))
	if err != nil {
		return res, fmt.Errorf("failed to acquire requester lock: %w", err)
	}
	defer unlockRequester()

	unlockRoom, err := s.locker.Lock(ctx, lock.Key(lockKindRoom, current.RoomID))
	if err != nil {
		return res, fmt.Errorf("failed to acquire room lock: %w", err)
	}
	defer unlockRoom()

	if current, err = s.load(ctx, id); err != nil {
		return res, err
	}

	now := s.clock.Now()

	if !modifiable(current, now) {
		err = model.Reject(model.ReasonInvalidTransition, fmt.Sprintf("a %s reservation cannot be modified", strings.ToLower(string(current.Status))))
		logRejection(err, "modify rejected")

		return res, err
	}

	if description = strings.TrimSpace(description); description == constant.Empty {
		description = current.Description
	}

	req := validation.Request{
		RoomID:      current.RoomID,
		RequesterID: current.RequesterID,
		Start:       start,
		End:         end,
		Description: description,
	}

	count, err := s.dailyCount(ctx, current.RequesterID, start, current.ID)
	if err != nil {
		return res, err
	}

	if result := s.rules.Validate(req, now, count); !result.OK() {
		logRejection(result.Err(), "modify rejected")

		return res, result.Err()
	}

	next := current
	next.StartAt = start
	next.EndAt = end
	next.Description = description
	next.ModifiedAt = now
	next.ModifiedBy = actor.ID

	if err = s.checkRoomConflict(ctx, next); err != nil {
		return res, err
	}

	if err = s.checkUserConflict(ctx, next); err != nil {
		return res, err
	}

	if err = ctx.Err(); err != nil {
		return res, fmt.Errorf("modify aborted: %w", err)
	}

	update := repository.IntervalUpdate{
		ID:          next.ID,
		From:        current.Status,
		Start:       next.StartAt,
		End:         next.EndAt,
		Description: next.Description,
		ModifiedBy:  actor.ID,
		ModifiedAt:  now,
	}

	if err = s.repo.UpdateInterval(ctx, update); err != nil {
		if model.ReasonOf(err) != constant.Empty {
			logRejection(err, "modify rejected")

			return res, err //nolint:wrapcheck
		}

		log.Error().Err(err).Msg("failed to modify reservation")

		return res, fmt.Errorf("failed to modify reservation: %w", err)
	}

	log.Info().Str("reservation_id", next.ID).Str("actor_id", actor.ID).Msg("reservation modified")

	s.afterChange(ctx, next, event.TypeModified, actor.ID, now)

	return next, nil
}

// Duplicate requests a copy of an existing reservation at a new start, keeping room and duration.
func (s *serviceImpl) Duplicate(ctx context.Context, id string, actor model.Actor, start time.Time) (res model.Reservation, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Duplicate")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	source, err := s.load(ctx, id)
	if err != nil {
		return res, err
	}

	if err = authorize(source, actor); err != nil {
		return res, err
	}

	description := source.Description
	if !strings.HasSuffix(description, copySuffix) {
		description += copySuffix
	}

	return s.RequestReservation(ctx, validation.Request{
		RoomID:      source.RoomID,
		RequesterID: source.RequesterID,
		Start:       start,
		End:         start.Add(source.Interval().Duration()),
		Description: description,
	})
}

func (s *serviceImpl) Availability(ctx context.Context, roomID string, interval model.Interval) (res dto.AvailabilityResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Availability")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !interval.End.After(interval.Start) {
		return res, model.Reject(model.ReasonEndBeforeStart, "end must be after start")
	}

	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return res, err
	}

	existing, err := s.repo.FindOverlapping(ctx, repository.OverlapQuery{
		RoomID:   roomID,
		Start:    interval.Start,
		End:      interval.End,
		Statuses: conflict.Blocking,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to load room reservations")

		return res, fmt.Errorf("failed to load room reservations: %w", err)
	}

	blocking := conflict.All(interval, existing, conflict.SameRoom(roomID))
	now := s.clock.Now()

	res.RoomID = roomID
	res.Start = timezone.Format(interval.Start, constant.DateFormat)
	res.End = timezone.Format(interval.End, constant.DateFormat)
	res.Available = room.Available && len(blocking) == 0
	res.Blocking = make([]dto.ReservationResponse, len(blocking))

	for i, r := range blocking {
		res.Blocking[i].FromModel(r, now)
	}

	return res, nil
}

// SuggestRooms lists available rooms that seat the attendees, carry the equipment and have no approved overlap.
func (s *serviceImpl) SuggestRooms(ctx context.Context, query SuggestQuery) (res dto.SuggestRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.SuggestRooms")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !query.Interval.End.After(query.Interval.Start) {
		return res, model.Reject(model.ReasonEndBeforeStart, "end must be after start")
	}

	equipment := roomDto.NormalizeEquipment(query.Equipment)

	rooms, err := s.roomRepo.FindCandidates(ctx, query.Attendees, equipment)
	if err != nil {
		log.Error().Err(err).Msg("failed to find candidate rooms")

		return res, fmt.Errorf("failed to find candidate rooms: %w", err)
	}

	res.Rooms = []roomDto.RoomResponse{}

	for _, room := range rooms {
		if !room.Available || room.Capacity < query.Attendees || !room.HasEquipment(equipment...) {
			continue
		}

		existing, err := s.repo.FindOverlapping(ctx, repository.OverlapQuery{
			RoomID:   room.ID,
			Start:    query.Interval.Start,
			End:      query.Interval.End,
			Statuses: conflict.Blocking,
		})
		if err != nil {
			log.Error().Err(err).Str("room_id", room.ID).Msg("failed to load room reservations")

			return res, fmt.Errorf("failed to load room reservations: %w", err)
		}

		if conflict.Conflicts(query.Interval, existing, conflict.SameRoom(room.ID)) {
			continue
		}

		var r roomDto.RoomResponse
		r.FromModel(room)
		res.Rooms = append(res.Rooms, r)
	}

	return res, nil
}

// Stats summarises every reservation of a requester. Temporal buckets only count approved reservations.
func (s *serviceImpl) Stats(ctx context.Context, requesterID string) (res dto.StatsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Stats")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	reservations, err := s.repo.FindByRequester(ctx, requesterID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load requester reservations")

		return res, fmt.Errorf("failed to load requester reservations: %w", err)
	}

	now := s.clock.Now()

	var hours float64

	for _, r := range reservations {
		res.Total++

		switch r.Status {
		case model.StatusPending:
			res.Pending++
		case model.StatusApproved:
			res.Approved++
			hours += r.Interval().Duration().Hours()
		case model.StatusRejected:
			res.Rejected++
		case model.StatusCancelled:
			res.Cancelled++
		}

		switch r.Temporal(now) {
		case model.TemporalUpcoming:
			res.Upcoming++
		case model.TemporalActive:
			res.Active++
		case model.TemporalFinished:
			res.Completed++
		}
	}

	res.Hours = math.Round(hours*100) / 100

	return res, nil
}

// Get hides other requesters' reservations from members behind NOT_FOUND.
func (s *serviceImpl) Get(ctx context.Context, id string, actor model.Actor) (res dto.ReservationResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKey(cacheGetReservation, id)

	var reservation model.Reservation

	if err = s.cache.Get(ctx, cacheKey, &reservation); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservation")
	} else {
		if reservation, err = s.load(ctx, id); err != nil {
			return res, err
		}

		s.store(ctx, cacheKey, reservation)
	}

	if !actor.IsAdmin() && reservation.RequesterID != actor.ID {
		return res, model.Reject(model.ReasonNotFound, "reservation not found")
	}

	res.FromModel(reservation, s.clock.Now())

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetReservationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllReservation, params, filter)

	var cached page

	if err = s.cache.Get(ctx, cacheKey, &cached); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservations")
	} else {
		if cached.Total, err = s.Count(ctx, params, filter); err != nil {
			return res, err
		}

		if cached.Reservations, err = s.repo.GetAll(ctx, params, filter); err != nil {
			log.Error().Err(err).Msg("failed to get reservations")

			return res, fmt.Errorf("failed to get reservations: %w", err)
		}

		s.store(ctx, cacheKey, cached)
	}

	res.FromModels(cached.Reservations, cached.Total, params.Limit, s.clock.Now())

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reservation.Count")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountReservation, params, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for reservation count")

		return res, nil
	}

	if res, err = s.repo.Count(ctx, filter); err != nil {
		log.Error().Err(err).Msg("failed to count reservations")

		return res, fmt.Errorf("failed to count reservations: %w", err)
	}

	s.store(ctx, cacheKey, res)

	return res, nil
}

// load reports ids that are not uuids as absent.
func (s *serviceImpl) load(ctx context.Context, id string) (model.Reservation, error) {
	if uuid.Validate(id) != nil {
		return model.Reservation{}, model.Reject(model.ReasonNotFound, "reservation not found")
	}

	res, err := s.repo.FindByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("reservation_id", id).Msg("failed to load reservation")

		return res, fmt.Errorf("failed to load reservation: %w", err)
	}

	if !res.Exists() {
		return res, model.Reject(model.ReasonNotFound, "reservation not found")
	}

	return res, nil
}

func (s *serviceImpl) getRoom(ctx context.Context, roomID string) (roomModel.Room, error) {
	if uuid.Validate(roomID) != nil {
		return roomModel.Room{}, model.Reject(model.ReasonNotFound, "room not found")
	}

	room, err := s.roomRepo.Get(ctx, shared.FilterByID(roomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to load room")

		return room, fmt.Errorf("failed to load room: %w", err)
	}

	if !room.Exists() {
		return room, model.Reject(model.ReasonNotFound, "room not found")
	}

	return room, nil
}

func (s *serviceImpl) ensureRoomBookable(ctx context.Context, roomID string) error {
	room, err := s.getRoom(ctx, roomID)
	if err != nil {
		return err
	}

	if !room.Available {
		err = model.Reject(model.ReasonRoomUnavailable, fmt.Sprintf("room %s is not available for booking", room.Name))
		logRejection(err, "reservation request rejected")

		return err
	}

	return nil
}

// dailyCount counts the requester's non-rejected reservations starting on the same app-timezone day as start.
func (s *serviceImpl) dailyCount(ctx context.Context, requesterID string, start time.Time, excludeID string) (int, error) {
	dayStart, dayEnd := timezone.DayBounds(start)

	reservations, err := s.repo.FindByRequesterAndDay(ctx, requesterID, dayStart, dayEnd)
	if err != nil {
		log.Error().Err(err).Str("requester_id", requesterID).Msg("failed to count daily reservations")

		return 0, fmt.Errorf("failed to count daily reservations: %w", err)
	}

	count := 0

	for _, r := range reservations {
		if r.Status == model.StatusRejected || r.ID == excludeID {
			continue
		}

		count++
	}

	return count, nil
}

func (s *serviceImpl) checkRoomConflict(ctx context.Context, candidate model.Reservation) error {
	existing, err := s.repo.FindOverlapping(ctx, repository.OverlapQuery{
		RoomID:    candidate.RoomID,
		Start:     candidate.StartAt,
		End:       candidate.EndAt,
		Statuses:  conflict.Blocking,
		ExcludeID: candidate.ID,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to load room reservations")

		return fmt.Errorf("failed to load room reservations: %w", err)
	}

	if blocker, found := conflict.Room(candidate, existing); found {
		err = model.Reject(model.ReasonRoomConflict, fmt.Sprintf("room is already booked from %s to %s",
			timezone.Format(blocker.StartAt, constant.DateFormat), timezone.Format(blocker.EndAt, constant.DateFormat)))
		logRejection(err, "room conflict")

		return err
	}

	return nil
}

func (s *serviceImpl) checkUserConflict(ctx context.Context, candidate model.Reservation) error {
	existing, err := s.repo.FindOverlapping(ctx, repository.OverlapQuery{
		RequesterID: candidate.RequesterID,
		Start:       candidate.StartAt,
		End:         candidate.EndAt,
		Statuses:    conflict.Blocking,
		ExcludeID:   candidate.ID,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to load requester reservations")

		return fmt.Errorf("failed to load requester reservations: %w", err)
	}

	if blocker, found := conflict.User(candidate, existing); found {
		err = model.Reject(model.ReasonUserConflict, fmt.Sprintf("you already have an approved reservation from %s to %s",
			timezone.Format(blocker.StartAt, constant.DateFormat), timezone.Format(blocker.EndAt, constant.DateFormat)))
		logRejection(err, "user conflict")

		return err
	}

	return nil
}

// persistStatus writes next only if the stored status is still from.
func (s *serviceImpl) persistStatus(ctx context.Context, from model.Status, next model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("status change aborted: %w", err)
	}

	err := s.repo.UpdateStatus(ctx, repository.StatusUpdate{
		ID:              next.ID,
		From:            from,
		To:              next.Status,
		DecidedAt:       next.DecidedAt,
		DecidedBy:       next.DecidedBy,
		DecisionComment: next.DecisionComment,
		ModifiedBy:      next.ModifiedBy,
		ModifiedAt:      next.ModifiedAt,
	})
	if err == nil {
		return nil
	}

	if model.ReasonOf(err) != constant.Empty {
		logRejection(err, "status change rejected")

		return err //nolint:wrapcheck
	}

	log.Error().Err(err).Str("reservation_id", next.ID).Msg("failed to update reservation status")

	return fmt.Errorf("failed to update reservation status: %w", err)
}

func (s *serviceImpl) store(ctx context.Context, key string, value any) {
	ttl := s.readTTL()

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, key, value, ttl); err != nil {
			log.Error().Err(err).Str("cacheKey", key).Msg("failed to save reservation cache")
		}
	}()
}

// readTTL bounds how long a read that raced a change can stay cached.
func (s *serviceImpl) readTTL() int {
	ttl := s.cfg.Cache.TTL
	if limit := s.cfg.Scheduling.ReadCacheTTL; limit > 0 && (ttl <= 0 || ttl > limit) {
		ttl = limit
	}

	return ttl
}

// afterChange drops stale reads before the change is returned and announces it in the background.
func (s *serviceImpl) afterChange(ctx context.Context, res model.Reservation, t event.Type, actorID string, at time.Time) {
	c := context.WithoutCancel(ctx)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetReservation, res.ID)); err != nil {
		log.Error().Err(err).Msg("failed to delete reservation cache")
	}

	shared.InvalidateCaches(c, s.cache, cacheGetAllReservation)
	shared.InvalidateCaches(c, s.cache, cacheCountReservation)

	go func() {
		if err := s.publisher.Publish(c, event.New(t, res, actorID, at)); err != nil {
			log.Error().Err(err).Str("reservation_id", res.ID).Str("type", string(t)).Msg("failed to publish reservation event")
		}
	}()
}

func authorize(res model.Reservation, actor model.Actor) error {
	if actor.IsAdmin() || res.RequesterID == actor.ID {
		return nil
	}

	return model.Reject(model.ReasonForbidden, "only the requester or an admin can change this reservation")
}

func modifiable(res model.Reservation, now time.Time) bool {
	switch res.Status {
	case model.StatusPending:
		return true
	case model.StatusApproved:
		return now.Before(res.StartAt)
	default:
		return false
	}
}

// logRejection records business outcomes below error level so they never read as faults.
func logRejection(err error, msg string) {
	log.Info().Str("reason", string(model.ReasonOf(err))).Str("detail", err.Error()).Msg(msg)
}
