package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roombook/infras/otel"
	"roombook/infras/postgres"
	"roombook/internal/domains/reservation/model"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	gRepo "roombook/shared/repository"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const argExpectedStatus = "expected_status"

// OverlapQuery selects reservations whose interval intersects [Start, End).
// Exactly one of RoomID or RequesterID is expected.
type OverlapQuery struct {
	RoomID      string
	RequesterID string
	Start       time.Time
	End         time.Time
	Statuses    []model.Status
	ExcludeID   string
}

// StatusUpdate is applied only while the row still has status From.
type StatusUpdate struct {
	ID              string
	From            model.Status
	To              model.Status
	DecidedAt       *time.Time
	DecidedBy       *string
	DecisionComment *string
	ModifiedBy      string
	ModifiedAt      time.Time
}

type IntervalUpdate struct {
	ID          string
	From        model.Status
	Start       time.Time
	End         time.Time
	Description string
	ModifiedBy  string
	ModifiedAt  time.Time
}

type Reservation interface {
	Create(ctx context.Context, reservation model.Reservation) error
	FindByID(ctx context.Context, id string) (model.Reservation, error)
	FindOverlapping(ctx context.Context, query OverlapQuery) ([]model.Reservation, error)
	FindByRequesterAndDay(ctx context.Context, requesterID string, dayStart, dayEnd time.Time) ([]model.Reservation, error)
	FindStartingBetween(ctx context.Context, from, to time.Time, statuses ...model.Status) ([]model.Reservation, error)
	FindByRequester(ctx context.Context, requesterID string) ([]model.Reservation, error)
	UpdateStatus(ctx context.Context, update StatusUpdate) error
	UpdateInterval(ctx context.Context, update IntervalUpdate) error
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Reservation, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Reservation]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Reservation {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Reservation](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

func (r *repositoryImpl) Create(ctx context.Context, reservation model.Reservation) (err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if err = r.Insert(ctx, reservation); err != nil {
		return mapConstraintError(err)
	}

	return nil
}

func (r *repositoryImpl) FindByID(ctx context.Context, id string) (model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.FindByID")
	defer scope.End()

	return r.Get(ctx, filterByID(id)) //nolint:wrapcheck
}

func (r *repositoryImpl) FindOverlapping(ctx context.Context, query OverlapQuery) ([]model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.FindOverlapping")
	defer scope.End()

	filter, err := overlapFilter(query)
	if err != nil {
		return nil, err
	}

	return r.GetAll(ctx, gDto.QueryParams{}, filter) //nolint:wrapcheck
}

func (r *repositoryImpl) FindByRequesterAndDay(ctx context.Context, requesterID string, dayStart, dayEnd time.Time) ([]model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.FindByRequesterAndDay")
	defer scope.End()

	filter := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldRequesterID, Operator: gDto.FilterOperatorEq, Value: requesterID, Table: model.TableName},
			gDto.Filter{Field: model.FieldStartAt, ArgName: "day_start", Operator: gDto.FilterOperatorGreaterEq, Value: dayStart, Table: model.TableName},
			gDto.Filter{Field: model.FieldStartAt, ArgName: "day_end", Operator: gDto.FilterOperatorLess, Value: dayEnd, Table: model.TableName},
		},
	}

	return r.GetAll(ctx, gDto.QueryParams{}, filter) //nolint:wrapcheck
}

func (r *repositoryImpl) FindStartingBetween(ctx context.Context, from, to time.Time, statuses ...model.Status) ([]model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.FindStartingBetween")
	defer scope.End()

	filters := []any{
		gDto.Filter{Field: model.FieldStartAt, ArgName: "from", Operator: gDto.FilterOperatorGreaterEq, Value: from, Table: model.TableName},
		gDto.Filter{Field: model.FieldStartAt, ArgName: "to", Operator: gDto.FilterOperatorLessEq, Value: to, Table: model.TableName},
	}

	if len(statuses) > 0 {
		filters = append(filters, statusIn(statuses))
	}

	params := gDto.QueryParams{SortBy: model.TableName + "." + model.FieldStartAt, SortDir: gDto.SortDirAsc}

	return r.GetAll(ctx, params, gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}) //nolint:wrapcheck
}

func (r *repositoryImpl) FindByRequester(ctx context.Context, requesterID string) ([]model.Reservation, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.FindByRequester")
	defer scope.End()

	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldRequesterID, Operator: gDto.FilterOperatorEq, Value: requesterID, Table: model.TableName},
		},
	}

	return r.GetAll(ctx, gDto.QueryParams{}, filter) //nolint:wrapcheck
}

// UpdateStatus is a single conditional statement. Zero matched rows means the status moved underneath us.
func (r *repositoryImpl) UpdateStatus(ctx context.Context, update StatusUpdate) (err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.UpdateStatus")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	fields := map[string]any{
		model.FieldStatus:          update.To,
		model.FieldDecidedAt:       update.DecidedAt,
		model.FieldDecidedBy:       update.DecidedBy,
		model.FieldDecisionComment: update.DecisionComment,
		constant.FieldModifiedAt:   update.ModifiedAt,
		constant.FieldModifiedBy:   update.ModifiedBy,
	}

	affected, err := r.UpdateAffected(ctx, fields, expectStatus(update.ID, update.From))
	if err != nil {
		return mapConstraintError(err)
	}

	if affected == 0 {
		log.Warn().Str("id", update.ID).Str("from", string(update.From)).Str("to", string(update.To)).Msg("conditional status update matched no rows")

		return model.Reject(model.ReasonInvalidTransition, fmt.Sprintf("reservation is no longer %s", update.From))
	}

	return nil
}

func (r *repositoryImpl) UpdateInterval(ctx context.Context, update IntervalUpdate) (err error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".reservation.UpdateInterval")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	fields := map[string]any{
		model.FieldStartAt:       update.Start,
		model.FieldEndAt:         update.End,
		model.FieldDescription:   update.Description,
		constant.FieldModifiedAt: update.ModifiedAt,
		constant.FieldModifiedBy: update.ModifiedBy,
	}

	affected, err := r.UpdateAffected(ctx, fields, expectStatus(update.ID, update.From))
	if err != nil {
		return mapConstraintError(err)
	}

	if affected == 0 {
		return model.Reject(model.ReasonInvalidTransition, fmt.Sprintf("reservation is no longer %s", update.From))
	}

	return nil
}

// overlapFilter renders the half-open rule: start_at < window_end AND end_at > window_start.
func overlapFilter(query OverlapQuery) (gDto.FilterGroup, error) {
	filters := []any{
		gDto.Filter{Field: model.FieldStartAt, ArgName: "window_end", Operator: gDto.FilterOperatorLess, Value: query.End, Table: model.TableName},
		gDto.Filter{Field: model.FieldEndAt, ArgName: "window_start", Operator: gDto.FilterOperatorGreater, Value: query.Start, Table: model.TableName},
	}

	switch {
	case query.RoomID != "":
		filters = append(filters, gDto.Filter{Field: model.FieldRoomID, Operator: gDto.FilterOperatorEq, Value: query.RoomID, Table: model.TableName})
	case query.RequesterID != "":
		filters = append(filters, gDto.Filter{Field: model.FieldRequesterID, Operator: gDto.FilterOperatorEq, Value: query.RequesterID, Table: model.TableName})
	default:
		return gDto.FilterGroup{}, errors.New("overlap query needs a room or a requester")
	}

	if len(query.Statuses) > 0 {
		filters = append(filters, statusIn(query.Statuses))
	}

	if query.ExcludeID != "" {
		filters = append(filters, gDto.Filter{Field: model.FieldID, ArgName: "exclude_id", Operator: gDto.FilterOperatorNotEq, Value: query.ExcludeID, Table: model.TableName})
	}

	return gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}, nil
}

func filterByID(id string) gDto.FilterGroup {
	return gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Operator: gDto.FilterOperatorEq, Value: id, Table: model.TableName},
		},
	}
}

func expectStatus(id string, status model.Status) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{Field: model.FieldID, Operator: gDto.FilterOperatorEq, Value: id},
			gDto.Filter{Field: model.FieldStatus, ArgName: argExpectedStatus, Operator: gDto.FilterOperatorEq, Value: status},
		},
	}
}

func statusIn(statuses []model.Status) gDto.Filter {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	return gDto.Filter{Field: model.FieldStatus, ArgName: "statuses", Operator: gDto.FilterOperatorIn, Value: values, Table: model.TableName}
}

// mapConstraintError turns the approved-overlap exclusion constraint into a ROOM_CONFLICT rejection.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeExclusionViolation {
		return model.Reject(model.ReasonRoomConflict, "room already has an approved reservation in this interval")
	}

	return err
}
