package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BatchFilter struct {
	Search    string // Matches batch_code
	VariantID *uuid.UUID
	Status    string
	Page      int
	Limit     int
}

type BatchRepository interface {
	Create(ctx context.Context, batch *model.Batch) error
	Update(ctx context.Context, batch *model.Batch) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	FindByCode(ctx context.Context, code string) (*model.Batch, error)
	FindByIDWithUnits(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	List(ctx context.Context, filter BatchFilter) ([]model.Batch, int64, error)
	NextBatchNo(ctx context.Context) (int, error)
}

type batchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *model.Batch) error {
	return GetDB(ctx, r.db).Create(batch).Error
}

func (r *batchRepository) Update(ctx context.Context, batch *model.Batch) error {
	return GetDB(ctx, r.db).Save(batch).Error
}

func (r *batchRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := GetDB(ctx, r.db).First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

// FindByIDForUpdate locks the batch row for the duration of the surrounding
// transaction. Row locking is a postgres feature; sqlite serializes writers
// on its own, so the clause is skipped there.
func (r *batchRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	db := GetDB(ctx, r.db)
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var batch model.Batch
	if err := db.Where("id = ?", id).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) FindByCode(ctx context.Context, code string) (*model.Batch, error) {
	var batch model.Batch
	if err := GetDB(ctx, r.db).Where("batch_code = ?", code).First(&batch).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) FindByIDWithUnits(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := GetDB(ctx, r.db).
		Preload("ProductVariant").
		Preload("Units").
		First(&batch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *batchRepository) List(ctx context.Context, filter BatchFilter) ([]model.Batch, int64, error) {
	var batches []model.Batch
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Batch{})
	if filter.Search != "" {
		db = db.Where("batch_code LIKE ?", "%"+filter.Search+"%")
	}
	if filter.VariantID != nil {
		db = db.Where("product_variant_id = ?", *filter.VariantID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := db.Preload("ProductVariant").Order("created_at desc").
		Offset(offset).Limit(filter.Limit).Find(&batches).Error; err != nil {
		return nil, 0, err
	}

	return batches, total, nil
}

func (r *batchRepository) NextBatchNo(ctx context.Context) (int, error) {
	var maxNo int
	err := GetDB(ctx, r.db).Model(&model.Batch{}).
		Select("COALESCE(MAX(batch_no), 0)").Scan(&maxNo).Error
	if err != nil {
		return 0, err
	}
	return maxNo + 1, nil
}
