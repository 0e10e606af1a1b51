package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditFilter struct {
	UserID     *uuid.UUID
	Action     string
	EntityType string
	From       *time.Time
	To         *time.Time
	Search     string // Free text over entity name and details
	Page       int
	Limit      int
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Log writes one audit row. Inside an ambient transaction the insert is
// confined to a savepoint: on postgres a failed statement aborts the whole
// transaction, which would turn the caller's commit into a rollback.
func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	db := GetDB(ctx, r.db)
	if !InTx(ctx) {
		return db.Create(entry).Error
	}

	if err := db.SavePoint("audit_log").Error; err != nil {
		return err
	}
	if err := db.Create(entry).Error; err != nil {
		db.RollbackTo("audit_log")
		return err
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]model.AuditLog, int64, error) {
	db := GetDB(ctx, r.db).Model(&model.AuditLog{})

	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		db = db.Where("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		db = db.Where("entity_type = ?", filter.EntityType)
	}
	if filter.From != nil {
		db = db.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("created_at <= ?", *filter.To)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		db = db.Where("entity_name LIKE ? OR details LIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []model.AuditLog
	offset := (filter.Page - 1) * filter.Limit
	if err := db.Preload("User").Order("created_at desc").
		Offset(offset).Limit(filter.Limit).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
