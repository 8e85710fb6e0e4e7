package reservation

import (
	"context"
	"net/http"

	"roombook/infras/otel"
	"roombook/internal/domains/reservation/model"
	"roombook/internal/domains/reservation/model/dto"
	"roombook/internal/domains/reservation/service"
	"roombook/internal/domains/reservation/validation"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	"roombook/shared/failure"
	"roombook/shared/timezone"
	"roombook/shared/validator"
	"roombook/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	queryParamRoomID      = "room_id"
	queryParamRequesterID = "requester_id"
	queryParamStatus      = "status"
	queryParamFrom        = "from"
	queryParamTo          = "to"
)

var sortableFields = []string{
	constant.FieldCreatedAt,
	model.FieldStartAt,
	model.FieldEndAt,
	model.FieldStatus,
}

type Handler struct {
	service service.Scheduling
	clock   timezone.Clock
	otel    otel.Otel
}

func New(service service.Scheduling, clock timezone.Clock, otel otel.Otel) Handler {
	return Handler{
		service: service,
		clock:   clock,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/reservations", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateReservation)
		routerGroup.Get("/", handler.GetReservations)
		routerGroup.Get("/stats", handler.GetStats)
		routerGroup.Get("/{id}", handler.GetReservationByID)
		routerGroup.Patch("/{id}", handler.ModifyReservation)
		routerGroup.Post("/{id}/decision", handler.DecideReservation)
		routerGroup.Post("/{id}/cancel", handler.CancelReservation)
		routerGroup.Post("/{id}/duplicate", handler.DuplicateReservation)
	})
}

// ActorFromContext reads the authenticated caller placed in the context by the auth middleware.
func ActorFromContext(ctx context.Context) model.Actor {
	id, _ := ctx.Value(constant.ContextKeyUserID).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	return model.Actor{ID: id, Role: role}
}

// CreateReservation submits a reservation request.
// @Summary Request a reservation
// @Description Submit a PENDING reservation for a room.
// @Tags Reservation
// @Accept json
// @Produce json
// @Param request body dto.CreateReservationRequest true "Create Reservation Request"
// @Success 201 {object} response.Data[dto.ReservationResponse]
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations [post]
// @Security BearerAuth
func (handler *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateReservation")
	defer scope.End()

	req := dto.CreateReservationRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	interval, err := req.Interval()
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	actor := ActorFromContext(ctx)

	res, err := handler.service.RequestReservation(ctx, validation.Request{
		RoomID:      req.RoomID,
		RequesterID: actor.ID,
		Start:       interval.Start,
		End:         interval.End,
		Description: req.Description,
	})
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("room_id", req.RoomID).Msg("reservation request not accepted")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Reservation requested by user " + actor.ID)

	response.WithJSON(w, http.StatusCreated, handler.render(res))
}

// GetReservations lists reservations. Members only see their own.
// @Summary List reservations
// @Tags Reservation
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param room_id query string false "Filter by room"
// @Param requester_id query string false "Filter by requester (admin only)"
// @Param status query string false "Filter by status"
// @Param from query string false "Start at or after (RFC3339)"
// @Param to query string false "Start before (RFC3339)"
// @Success 200 {object} response.Data[dto.GetReservationsResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations [get]
// @Security BearerAuth
func (handler *Handler) GetReservations(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetReservations")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)
	queryParams.RestrictSort(model.TableName, model.FieldStartAt, sortableFields...)

	filterGroup, err := buildListFilter(r, ActorFromContext(ctx))
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	reservations, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get reservations")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Reservations retrieved successfully")

	response.WithJSON(w, http.StatusOK, reservations)
}

// GetReservationByID returns one reservation visible to the caller.
// @Summary Get a reservation
// @Tags Reservation
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Data[dto.ReservationResponse]
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/reservations/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetReservationByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetReservationByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.Get(ctx, id, ActorFromContext(ctx))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get reservation by ID")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, res)
}

// DecideReservation approves or rejects a PENDING reservation.
// @Summary Decide a reservation
// @Tags Reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body dto.DecideRequest true "Decision"
// @Success 200 {object} response.Data[dto.ReservationResponse]
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 422 {object} response.Error
// @Router /v1/reservations/{id}/decision [post]
// @Security BearerAuth
func (handler *Handler) DecideReservation(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DecideReservation")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	req := dto.DecideRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	actor := ActorFromContext(ctx)

	res, err := handler.service.Decide(ctx, id, actor, req.Approve(), req.Comment)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("reservation_id", id).Msg("decision not applied")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Reservation " + req.Decision + " by user " + actor.ID)

	response.WithJSON(w, http.StatusOK, handler.render(res))
}

// CancelReservation cancels a PENDING or APPROVED reservation.
// @Summary Cancel a reservation
// @Tags Reservation
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Data[dto.ReservationResponse]
// @Failure 403 {object} response.Error
// @Failure 422 {object} response.Error
// @Router /v1/reservations/{id}/cancel [post]
// @Security BearerAuth
func (handler *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelReservation")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.Cancel(ctx, id, ActorFromContext(ctx))
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("reservation_id", id).Msg("cancellation not applied")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, handler.render(res))
}

// ModifyReservation moves a reservation to a new interval.
// @Summary Modify a reservation
// @Tags Reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body dto.ModifyReservationRequest true "New interval"
// @Success 200 {object} response.Data[dto.ReservationResponse]
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 422 {object} response.Error
// @Router /v1/reservations/{id} [patch]
// @Security BearerAuth
func (handler *Handler) ModifyReservation(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ModifyReservation")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	req := dto.ModifyReservationRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	interval, err := req.Interval()
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	res, err := handler.service.Modify(ctx, id, ActorFromContext(ctx), interval.Start, interval.End, req.Description)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("reservation_id", id).Msg("modification not applied")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, handler.render(res))
}

// DuplicateReservation requests a copy of a reservation at another start time.
// @Summary Duplicate a reservation
// @Tags Reservation
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param request body dto.DuplicateReservationRequest true "New start"
// @Success 201 {object} response.Data[dto.ReservationResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/reservations/{id}/duplicate [post]
// @Security BearerAuth
func (handler *Handler) DuplicateReservation(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DuplicateReservation")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	req := dto.DuplicateReservationRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	start, err := timezone.Parse(constant.DateFormat, req.Start)
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, failure.BadRequestFromString("start must be an RFC3339 timestamp"))

		return
	}

	res, err := handler.service.Duplicate(ctx, id, ActorFromContext(ctx), start)
	if err != nil {
		scope.TraceError(err)
		log.Warn().Err(err).Str("reservation_id", id).Msg("duplicate not accepted")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusCreated, handler.render(res))
}

// GetStats summarizes reservations of the caller, or of requester_id for admins.
// @Summary Reservation statistics
// @Tags Reservation
// @Produce json
// @Param requester_id query string false "Requester (admin only)"
// @Success 200 {object} response.Data[dto.StatsResponse]
// @Failure 500 {object} response.Error
// @Router /v1/reservations/stats [get]
// @Security BearerAuth
func (handler *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetStats")
	defer scope.End()

	actor := ActorFromContext(ctx)

	requesterID := actor.ID
	if other := r.URL.Query().Get(queryParamRequesterID); other != "" && actor.IsAdmin() {
		requesterID = other
	}

	stats, err := handler.service.Stats(ctx, requesterID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to compute reservation stats")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, stats)
}

func (handler *Handler) render(res model.Reservation) dto.ReservationResponse {
	out := dto.ReservationResponse{}
	out.FromModel(res, handler.clock.Now())

	return out
}

func buildListFilter(r *http.Request, actor model.Actor) (gDto.FilterGroup, error) {
	query := r.URL.Query()
	filters := []any{}

	requesterID := query.Get(queryParamRequesterID)
	if !actor.IsAdmin() {
		requesterID = actor.ID
	}

	if requesterID != "" {
		filters = append(filters, eq(model.FieldRequesterID, requesterID))
	}

	if roomID := query.Get(queryParamRoomID); roomID != "" {
		filters = append(filters, eq(model.FieldRoomID, roomID))
	}

	if status := query.Get(queryParamStatus); status != "" {
		if !model.Status(status).Valid() {
			return gDto.FilterGroup{}, failure.BadRequestFromString("unknown status " + status) // nolint:wrapcheck
		}

		filters = append(filters, eq(model.FieldStatus, status))
	}

	bounds := []struct{ param, operator string }{
		{queryParamFrom, gDto.FilterOperatorGreaterEq},
		{queryParamTo, gDto.FilterOperatorLess},
	}

	for _, bound := range bounds {
		param, operator := bound.param, bound.operator

		value := query.Get(param)
		if value == "" {
			continue
		}

		at, err := timezone.Parse(constant.DateFormat, value)
		if err != nil {
			return gDto.FilterGroup{}, failure.BadRequestFromString(param + " must be an RFC3339 timestamp") // nolint:wrapcheck
		}

		filters = append(filters, gDto.Filter{
			ArgName:  param,
			Field:    model.FieldStartAt,
			Operator: operator,
			Value:    at,
			Table:    model.TableName,
		})
	}

	return gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}, nil
}

func eq(field string, value any) gDto.Filter {
	return gDto.Filter{Field: field, Operator: gDto.FilterOperatorEq, Value: value, Table: model.TableName}
}
