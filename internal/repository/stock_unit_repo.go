package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockUnitRepository interface {
	Create(ctx context.Context, unit *model.StockUnit) error
	CreateAll(ctx context.Context, units []model.StockUnit) error
	Update(ctx context.Context, unit *model.StockUnit) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockUnit, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]model.StockUnit, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.StockUnit, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateStatusByBatch(ctx context.Context, batchID uuid.UUID, status string) error
}

type stockUnitRepository struct {
	db *gorm.DB
}

func NewStockUnitRepository(db *gorm.DB) StockUnitRepository {
	return &stockUnitRepository{db: db}
}

func (r *stockUnitRepository) Create(ctx context.Context, unit *model.StockUnit) error {
	return GetDB(ctx, r.db).Create(unit).Error
}

func (r *stockUnitRepository) CreateAll(ctx context.Context, units []model.StockUnit) error {
	if len(units) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&units).Error
}

func (r *stockUnitRepository) Update(ctx context.Context, unit *model.StockUnit) error {
	return GetDB(ctx, r.db).Save(unit).Error
}

func (r *stockUnitRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.StockUnit, error) {
	var unit model.StockUnit
	if err := GetDB(ctx, r.db).First(&unit, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *stockUnitRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]model.StockUnit, error) {
	var units []model.StockUnit
	if err := GetDB(ctx, r.db).Where("batch_id = ?", batchID).
		Order("created_at asc").Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (r *stockUnitRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.StockUnit, error) {
	var units []model.StockUnit
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (r *stockUnitRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.StockUnit{}).
		Where("id = ?", id).Update("status", status).Error
}

func (r *stockUnitRepository) UpdateStatusByBatch(ctx context.Context, batchID uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.StockUnit{}).
		Where("batch_id = ?", batchID).Update("status", status).Error
}
