package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VariantRepository interface {
	Create(ctx context.Context, variant *model.ProductVariant) error
	Update(ctx context.Context, variant *model.ProductVariant) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error)
	FindByCode(ctx context.Context, code string) (*model.ProductVariant, error)
	List(ctx context.Context, page, limit int, search string) ([]model.ProductVariant, int64, error)
}

type variantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) VariantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) Create(ctx context.Context, variant *model.ProductVariant) error {
	return GetDB(ctx, r.db).Create(variant).Error
}

func (r *variantRepository) Update(ctx context.Context, variant *model.ProductVariant) error {
	return GetDB(ctx, r.db).Save(variant).Error
}

func (r *variantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.ProductVariant{}).Error
}

func (r *variantRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := GetDB(ctx, r.db).First(&variant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *variantRepository) FindByCode(ctx context.Context, code string) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := GetDB(ctx, r.db).Where("code = ?", code).First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *variantRepository) List(ctx context.Context, page, limit int, search string) ([]model.ProductVariant, int64, error) {
	var variants []model.ProductVariant
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ProductVariant{})
	if search != "" {
		pattern := "%" + search + "%"
		db = db.Where("name LIKE ? OR code LIKE ?", pattern, pattern)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&variants).Error; err != nil {
		return nil, 0, err
	}

	return variants, total, nil
}
