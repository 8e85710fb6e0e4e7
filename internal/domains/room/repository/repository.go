package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"

	"roombook/infras/otel"
	"roombook/infras/postgres"
	"roombook/internal/domains/room/model"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	gRepo "roombook/shared/repository"

	"github.com/lib/pq"
)

type Room interface {
	Insert(ctx context.Context, model model.Room) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.Room, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.Room, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error
	FindCandidates(ctx context.Context, minCapacity int, equipment []string) ([]model.Room, error)
}

type repositoryImpl struct {
	gRepo.Repository[model.Room]
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Room {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.Room](model.EntityName, model.TableName, model.FieldID, db, otel),
		db:         db,
		otel:       otel,
	}
}

// FindCandidates lists available rooms seating at least minCapacity and carrying every equipment tag.
func (r *repositoryImpl) FindCandidates(ctx context.Context, minCapacity int, equipment []string) ([]model.Room, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".room.FindCandidates")
	defer scope.End()

	filters := []any{
		gDto.Filter{Field: model.FieldAvailable, Operator: gDto.FilterOperatorEq, Value: true, Table: model.TableName},
	}

	if minCapacity > 0 {
		filters = append(filters, gDto.Filter{Field: model.FieldCapacity, Operator: gDto.FilterOperatorGreaterEq, Value: minCapacity, Table: model.TableName})
	}

	if len(equipment) > 0 {
		filters = append(filters, gDto.Filter{Field: model.FieldEquipment, Operator: gDto.FilterOperatorContains, Value: pq.StringArray(equipment), Table: model.TableName})
	}

	params := gDto.QueryParams{SortBy: model.TableName + "." + model.FieldCapacity, SortDir: gDto.SortDirAsc}

	return r.GetAll(ctx, params, gDto.FilterGroup{Operator: gDto.FilterGroupOperatorAnd, Filters: filters}) //nolint:wrapcheck
}
