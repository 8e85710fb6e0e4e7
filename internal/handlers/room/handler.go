package room

import (
	"net/http"
	"strings"

	"roombook/infras/otel"
	reservationDto "roombook/internal/domains/reservation/model/dto"
	reservationService "roombook/internal/domains/reservation/service"
	"roombook/internal/domains/room/model"
	"roombook/internal/domains/room/model/dto"
	"roombook/internal/domains/room/service"
	"roombook/shared"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	"roombook/shared/validator"
	"roombook/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	queryParamMinCapacity = "min_capacity"
	queryParamStart       = "start"
	queryParamEnd         = "end"
)

var sortableFields = []string{
	constant.FieldCreatedAt,
	model.FieldName,
	model.FieldCapacity,
}

type Handler struct {
	service    service.Room
	scheduling reservationService.Scheduling
	otel       otel.Otel
}

func New(service service.Room, scheduling reservationService.Scheduling, otel otel.Otel) Handler {
	return Handler{
		service:    service,
		scheduling: scheduling,
		otel:       otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rooms", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateRoom)
		routerGroup.Get("/", handler.GetRooms)
		routerGroup.Post("/suggestions", handler.SuggestRooms)
		routerGroup.Get("/{id}", handler.GetRoomByID)
		routerGroup.Patch("/{id}", handler.UpdateRoom)
		routerGroup.Delete("/{id}", handler.DeleteRoom)
		routerGroup.Patch("/{id}/availability", handler.SetAvailability)
		routerGroup.Get("/{id}/availability", handler.GetAvailability)
	})
}

// CreateRoom handles the creation of a new room.
// @Summary Create a new room
// @Description Create a new room with the provided details.
// @Tags Room
// @Accept json
// @Produce json
// @Param request body dto.CreateRoomRequest true "Create Room Request"
// @Success 201 {object} response.Data[dto.RoomResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [post]
// @Security BearerAuth
func (handler *Handler) CreateRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateRoom")
	defer scope.End()

	req := dto.CreateRoomRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	room, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create room")

		response.WithError(writer, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room created successfully by user " + user)

	response.WithJSON(writer, http.StatusCreated, room)
}

// GetRooms retrieves rooms based on query parameters.
// @Summary Get all rooms
// @Tags Room
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param name query string false "Filter by name"
// @Param room_type query string false "Filter by room type"
// @Param available query boolean false "Filter by availability"
// @Param min_capacity query integer false "Minimum capacity"
// @Param equipment query string false "Comma separated equipment tags"
// @Success 200 {object} response.Data[dto.GetRoomsResponse]
// @Failure 500 {object} response.Error
// @Router /v1/rooms [get]
// @Security BearerAuth
func (handler *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRooms")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)
	queryParams.RestrictSort(model.TableName, model.FieldName, sortableFields...)

	rooms, err := handler.service.GetAll(ctx, queryParams, buildListFilter(r))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get rooms")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Rooms retrieved successfully")

	response.WithJSON(w, http.StatusOK, rooms)
}

// GetRoomByID retrieves a room by its ID.
// @Summary Get a room by ID
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Data[dto.RoomResponse]
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetRoomByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	room, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get room by ID")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Room retrieved successfully")

	response.WithJSON(w, http.StatusOK, room)
}

// UpdateRoom updates an existing room by its ID.
// @Summary Update a room by ID
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param request body dto.UpdateRoomRequest true "Update Room Request"
// @Success 200 {object} response.Message "Room updated successfully"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateRoom")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	req := dto.UpdateRoomRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.Update(ctx, req, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room updated successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Room updated successfully")
}

// SetAvailability enables or disables a room for new reservations.
// @Summary Toggle room availability
// @Tags Room
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param request body dto.SetAvailabilityRequest true "Availability"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Router /v1/rooms/{id}/availability [patch]
// @Security BearerAuth
func (handler *Handler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SetAvailability")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	req := dto.SetAvailabilityRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	if err := handler.service.SetAvailability(ctx, id, *req.Available); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to set room availability")

		response.WithError(w, err)

		return
	}

	response.WithMessage(w, http.StatusOK, "Room availability updated successfully")
}

// DeleteRoom deletes a room that has no reservations.
// @Summary Delete a room by ID
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Message "Room deleted successfully"
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Router /v1/rooms/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteRoom")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to delete room")

		response.WithError(w, err)

		return
	}

	user, _ := ctx.Value(constant.ContextKeyUserID).(string)
	scope.AddEvent("Room deleted successfully by user " + user)

	response.WithMessage(w, http.StatusOK, "Room deleted successfully")
}

// GetAvailability reports whether the room is free over [start, end).
// @Summary Room availability
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Param start query string true "Interval start (RFC3339)"
// @Param end query string true "Interval end (RFC3339)"
// @Success 200 {object} response.Data[reservationDto.AvailabilityResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Router /v1/rooms/{id}/availability [get]
// @Security BearerAuth
func (handler *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAvailability")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	interval, err := reservationDto.ParseInterval(r.URL.Query().Get(queryParamStart), r.URL.Query().Get(queryParamEnd))
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	availability, err := handler.scheduling.Availability(ctx, id, interval)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to check room availability")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, availability)
}

// SuggestRooms lists rooms free over an interval that fit the group.
// @Summary Suggest rooms
// @Tags Room
// @Accept json
// @Produce json
// @Param request body dto.SuggestRoomsRequest true "Suggestion criteria"
// @Success 200 {object} response.Data[reservationDto.SuggestRoomsResponse]
// @Failure 400 {object} response.Error
// @Router /v1/rooms/suggestions [post]
// @Security BearerAuth
func (handler *Handler) SuggestRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".SuggestRooms")
	defer scope.End()

	req := dto.SuggestRoomsRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	interval, err := reservationDto.ParseInterval(req.Start, req.End)
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	suggestions, err := handler.scheduling.SuggestRooms(ctx, reservationService.SuggestQuery{
		Interval:  interval,
		Attendees: req.Attendees,
		Equipment: dto.NormalizeEquipment(req.Equipment),
	})
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to suggest rooms")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, suggestions)
}

func buildListFilter(r *http.Request) gDto.FilterGroup {
	query := r.URL.Query()
	filters := []any{}

	if name := query.Get(model.FieldName); name != "" {
		filters = append(filters, gDto.Filter{Field: model.FieldName, Operator: gDto.FilterOperatorLike, Value: name, Table: model.TableName})
	}

	if roomType := query.Get(model.FieldRoomType); roomType != "" {
		filters = append(filters, gDto.Filter{Field: model.FieldRoomType, Operator: gDto.FilterOperatorEq, Value: roomType, Table: model.TableName})
	}

	if available := shared.ConvertStringToBool(query.Get(model.FieldAvailable)); available != nil {
		filters = append(filters, gDto.Filter{Field: model.FieldAvailable, Operator: gDto.FilterOperatorEq, Value: *available, Table: model.TableName})
	}

	if minCapacity := shared.ConvertStringToInt(query.Get(queryParamMinCapacity)); minCapacity != nil {
		filters = append(filters, gDto.Filter{Field: model.FieldCapacity, Operator: gDto.FilterOperatorGreaterEq, Value: *minCapacity, Table: model.TableName})
	}

	if equipment := query.Get(model.FieldEquipment); equipment != "" {
		tags := dto.NormalizeEquipment(strings.Split(equipment, ","))
		filters = append(filters, gDto.Filter{Field: model.FieldEquipment, Operator: gDto.FilterOperatorContains, Value: pq.StringArray(tags), Table: model.TableName})
	}

	return gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}
}
