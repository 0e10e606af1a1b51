package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unit-of-measure constants for a variant's batches
const (
	UOMRollMeters = "ROLL_METERS"
	UOMPieces     = "PIECES"
)

// ProductVariant describes one manufactured pipe specification
// (size, pressure class, colour). Batches always belong to a variant.
type ProductVariant struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Code          string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	SizeMM        int            `gorm:"type:int;not null" json:"size_mm"`
	PressureClass string         `gorm:"type:varchar(50)" json:"pressure_class"`
	Color         string         `gorm:"type:varchar(50)" json:"color"`
	UnitOfMeasure string         `gorm:"type:varchar(20);not null;default:'ROLL_METERS'" json:"unit_of_measure"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (v *ProductVariant) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
