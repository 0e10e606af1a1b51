package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DispatchRepository interface {
	Create(ctx context.Context, order *model.DispatchOrder) error
	CreateItem(ctx context.Context, item *model.DispatchItem) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.DispatchOrder, error)
	FindByTransactionID(ctx context.Context, txID uuid.UUID) (*model.DispatchOrder, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, page, limit int) ([]model.DispatchOrder, int64, error)
}

type dispatchRepository struct {
	db *gorm.DB
}

func NewDispatchRepository(db *gorm.DB) DispatchRepository {
	return &dispatchRepository{db: db}
}

func (r *dispatchRepository) Create(ctx context.Context, order *model.DispatchOrder) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *dispatchRepository) CreateItem(ctx context.Context, item *model.DispatchItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *dispatchRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.DispatchOrder, error) {
	var order model.DispatchOrder
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Items.Unit").
		Preload("Customer").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *dispatchRepository) FindByTransactionID(ctx context.Context, txID uuid.UUID) (*model.DispatchOrder, error) {
	var item model.DispatchItem
	if err := GetDB(ctx, r.db).Where("transaction_id = ?", txID).First(&item).Error; err != nil {
		return nil, err
	}
	return r.FindByIDWithItems(ctx, item.DispatchOrderID)
}

func (r *dispatchRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.DispatchOrder{}).
		Where("id = ?", id).Update("status", status).Error
}

func (r *dispatchRepository) List(ctx context.Context, page, limit int) ([]model.DispatchOrder, int64, error) {
	var orders []model.DispatchOrder
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.DispatchOrder{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Items").
		Preload("Items.Unit").
		Preload("Customer").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
