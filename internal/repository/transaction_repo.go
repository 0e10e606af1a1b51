package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionFilter struct {
	BatchID         *uuid.UUID
	UnitID          *uuid.UUID
	Type            string
	IncludeReverted bool
	Page            int
	Limit           int
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *model.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// FindByIDUnscoped also returns soft-deleted (reverted) rows
	FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	// HasLaterOnUnit reports whether any live transaction on the unit was
	// created at or after the given time. Same-timestamp rows count as later.
	HasLaterOnUnit(ctx context.Context, unitID uuid.UUID, after time.Time, excludeID uuid.UUID) (bool, error)
	CountActiveOnBatch(ctx context.Context, batchID uuid.UUID, excludeID uuid.UUID) (int64, error)
	SumActiveOnBatch(ctx context.Context, batchID uuid.UUID) (decimal.Decimal, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID, includeReverted bool) ([]model.Transaction, error)
	List(ctx context.Context, filter TransactionFilter) ([]model.Transaction, int64, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *model.Transaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var tx model.Transaction
	if err := GetDB(ctx, r.db).First(&tx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) FindByIDUnscoped(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var tx model.Transaction
	if err := GetDB(ctx, r.db).Unscoped().First(&tx, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Transaction{}).Error
}

func (r *transactionRepository) HasLaterOnUnit(ctx context.Context, unitID uuid.UUID, after time.Time, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Transaction{}).
		Where("(unit_id = ? OR result_unit_id = ?)", unitID, unitID).
		Where("created_at >= ?", after).
		Where("id <> ?", excludeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *transactionRepository) CountActiveOnBatch(ctx context.Context, batchID uuid.UUID, excludeID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Transaction{}).
		Where("batch_id = ?", batchID).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count, err
}

func (r *transactionRepository) SumActiveOnBatch(ctx context.Context, batchID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := GetDB(ctx, r.db).Model(&model.Transaction{}).
		Where("batch_id = ?", batchID).
		Select("COALESCE(SUM(quantity_change), 0)").
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func (r *transactionRepository) ListByBatch(ctx context.Context, batchID uuid.UUID, includeReverted bool) ([]model.Transaction, error) {
	db := GetDB(ctx, r.db)
	if includeReverted {
		db = db.Unscoped()
	}
	var txs []model.Transaction
	if err := db.Where("batch_id = ?", batchID).
		Order("created_at asc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter) ([]model.Transaction, int64, error) {
	db := GetDB(ctx, r.db)
	if filter.IncludeReverted {
		db = db.Unscoped()
	}
	db = db.Model(&model.Transaction{})

	if filter.BatchID != nil {
		db = db.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.UnitID != nil {
		db = db.Where("unit_id = ?", *filter.UnitID)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txs []model.Transaction
	offset := (filter.Page - 1) * filter.Limit
	if err := db.Order("created_at desc").
		Offset(offset).Limit(filter.Limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}
