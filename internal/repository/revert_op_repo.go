package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RevertOperationRepository interface {
	Create(ctx context.Context, op *model.RevertOperation) error
	Update(ctx context.Context, op *model.RevertOperation) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RevertOperation, error)
}

type revertOperationRepository struct {
	db *gorm.DB
}

func NewRevertOperationRepository(db *gorm.DB) RevertOperationRepository {
	return &revertOperationRepository{db: db}
}

func (r *revertOperationRepository) Create(ctx context.Context, op *model.RevertOperation) error {
	return GetDB(ctx, r.db).Create(op).Error
}

func (r *revertOperationRepository) Update(ctx context.Context, op *model.RevertOperation) error {
	return GetDB(ctx, r.db).Save(op).Error
}

func (r *revertOperationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.RevertOperation, error) {
	var op model.RevertOperation
	if err := GetDB(ctx, r.db).First(&op, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &op, nil
}
