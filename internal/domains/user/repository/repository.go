package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"time"

	"roombook/infras/otel"
	"roombook/infras/postgres"
	"roombook/internal/domains/user/model"
	"roombook/shared"
	"roombook/shared/constant"
	gDto "roombook/shared/dto"
	gRepo "roombook/shared/repository"
	"roombook/shared/timezone"

	"github.com/google/uuid"
)

type User interface {
	Insert(ctx context.Context, model model.User) error
	Get(ctx context.Context, filter gDto.FilterGroup, columns ...string) (model.User, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup, columns ...string) ([]model.User, error)
	Exist(ctx context.Context, filter gDto.FilterGroup) (bool, error)
	Count(ctx context.Context, filter gDto.FilterGroup) (int, error)
	Update(ctx context.Context, req map[string]any, filter gDto.FilterGroup) error
	Delete(ctx context.Context, filter gDto.FilterGroup) error
	FindByID(ctx context.Context, id string) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
	SetPassword(ctx context.Context, id, hashedPassword string) error
}

type repositoryImpl struct {
	gRepo.Repository[model.User]
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) User {
	return &repositoryImpl{
		Repository: gRepo.NewRepository[model.User](model.EntityName, model.TableName, model.FieldID, db, otel),
		otel:       otel,
	}
}

// FindByID returns the zero user for ids that are not uuids.
func (r *repositoryImpl) FindByID(ctx context.Context, id string) (model.User, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".user.FindByID")
	defer scope.End()

	if uuid.Validate(id) != nil {
		return model.User{}, nil
	}

	return r.Get(ctx, byID(id)) //nolint:wrapcheck
}

// FindByEmail matches the normalized address, the same form Insert stores.
func (r *repositoryImpl) FindByEmail(ctx context.Context, email string) (model.User, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".user.FindByEmail")
	defer scope.End()

	return r.Get(ctx, byEmail(email)) //nolint:wrapcheck
}

func (r *repositoryImpl) EmailTaken(ctx context.Context, email string) (bool, error) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".user.EmailTaken")
	defer scope.End()

	return r.Exist(ctx, byEmail(email)) //nolint:wrapcheck
}

func (r *repositoryImpl) RecordLogin(ctx context.Context, id string, at time.Time) error {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".user.RecordLogin")
	defer scope.End()

	return r.Update(ctx, map[string]any{ //nolint:wrapcheck
		model.FieldLastLogin:     at,
		constant.FieldModifiedAt: at,
		constant.FieldModifiedBy: id,
	}, byID(id))
}

func (r *repositoryImpl) SetPassword(ctx context.Context, id, hashedPassword string) error {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".user.SetPassword")
	defer scope.End()

	return r.Update(ctx, map[string]any{ //nolint:wrapcheck
		model.FieldPassword:      hashedPassword,
		constant.FieldModifiedAt: timezone.Now(),
		constant.FieldModifiedBy: id,
	}, byID(id))
}

func byID(id string) gDto.FilterGroup {
	return shared.FilterByID(id, model.FieldID, model.TableName)
}

func byEmail(email string) gDto.FilterGroup {
	return shared.FilterByID(model.NormalizeEmail(email), model.FieldEmail, model.TableName)
}
