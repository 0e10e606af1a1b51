package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QCStatus constants
const (
	QCStatusPending = "PENDING"
	QCStatusPassed  = "PASSED"
	QCStatusFailed  = "FAILED"
)

// BatchStatus constants
const (
	BatchStatusActive   = "ACTIVE"
	BatchStatusReverted = "REVERTED"
)

// Derived stock states reported on batch responses
const (
	StockStateActive            = "ACTIVE"
	StockStatePartiallyConsumed = "PARTIALLY_CONSUMED"
	StockStateDepleted          = "DEPLETED"
	StockStateReverted          = "REVERTED"
)

// Batch represents a single production lot of one pipe variant
type Batch struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BatchCode        string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"batch_code"`
	BatchNo          int             `gorm:"type:int;not null" json:"batch_no"`
	ProductVariantID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_variant_id"`
	ProductVariant   *ProductVariant `gorm:"foreignKey:ProductVariantID" json:"product_variant,omitempty"`
	ProductionDate   time.Time       `gorm:"not null" json:"production_date"`
	InitialQuantity  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"initial_quantity"`
	CurrentQuantity  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"current_quantity"`
	QCStatus         string          `gorm:"type:varchar(20);not null;default:'PENDING'" json:"qc_status"`
	Status           string          `gorm:"type:varchar(20);not null;default:'ACTIVE';index" json:"status"`
	CreatedBy        *uuid.UUID      `gorm:"type:uuid;index" json:"created_by"`
	Units            []StockUnit     `gorm:"foreignKey:BatchID" json:"units,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (b *Batch) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// StockState derives the reported life-cycle state from status and quantities.
// PARTIALLY_CONSUMED and DEPLETED are never stored, only computed.
func (b *Batch) StockState() string {
	if b.Status == BatchStatusReverted {
		return StockStateReverted
	}
	if b.CurrentQuantity.IsZero() {
		return StockStateDepleted
	}
	if b.CurrentQuantity.LessThan(b.InitialQuantity) {
		return StockStatePartiallyConsumed
	}
	return StockStateActive
}

// StockType constants
const (
	StockTypeFullRoll    = "FULL_ROLL"
	StockTypeCutRoll     = "CUT_ROLL"
	StockTypeBundle      = "BUNDLE"
	StockTypeSparePieces = "SPARE_PIECES"
)

// StockUnitStatus constants
const (
	UnitStatusAvailable  = "AVAILABLE"
	UnitStatusDispatched = "DISPATCHED"
	UnitStatusConsumed   = "CONSUMED"
	UnitStatusReverted   = "REVERTED"
)

// StockUnit is a physical, independently trackable sub-division of a batch:
// a full roll, a cut piece, a bundle, or a group of spare pieces.
// Roll types carry LengthMeters, bundle types carry PieceCount — never both.
// Units are only ever retired by status transition, never deleted.
type StockUnit struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"batch_id"`
	StockType    string           `gorm:"type:varchar(20);not null;index" json:"stock_type"`
	LengthMeters *decimal.Decimal `gorm:"type:decimal(14,2)" json:"length_meters,omitempty"`
	PieceCount   *int             `gorm:"type:int" json:"piece_count,omitempty"`
	Status       string           `gorm:"type:varchar(20);not null;default:'AVAILABLE';index" json:"status"`
	ParentUnitID *uuid.UUID       `gorm:"type:uuid;index" json:"parent_unit_id,omitempty"` // Set for pieces cut from a roll
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

func (u *StockUnit) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// NewRollUnit builds a FULL_ROLL or CUT_ROLL unit measured in meters
func NewRollUnit(batchID uuid.UUID, stockType string, length decimal.Decimal) StockUnit {
	return StockUnit{
		BatchID:      batchID,
		StockType:    stockType,
		LengthMeters: &length,
		Status:       UnitStatusAvailable,
	}
}

// NewPieceUnit builds a BUNDLE or SPARE_PIECES unit counted in pieces
func NewPieceUnit(batchID uuid.UUID, stockType string, pieces int) StockUnit {
	return StockUnit{
		BatchID:    batchID,
		StockType:  stockType,
		PieceCount: &pieces,
		Status:     UnitStatusAvailable,
	}
}

// IsRollType reports whether the stock type is measured in meters
func IsRollType(stockType string) bool {
	return stockType == StockTypeFullRoll || stockType == StockTypeCutRoll
}

// Quantity returns the unit's contribution to its batch quantity:
// meters for roll types, piece count for bundle types.
func (u *StockUnit) Quantity() decimal.Decimal {
	if u.LengthMeters != nil {
		return *u.LengthMeters
	}
	if u.PieceCount != nil {
		return decimal.NewFromInt(int64(*u.PieceCount))
	}
	return decimal.Zero
}
