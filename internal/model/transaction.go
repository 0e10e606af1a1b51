package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType constants
const (
	TxTypeProduction  = "PRODUCTION"
	TxTypeSale        = "SALE"
	TxTypeCutRoll     = "CUT_ROLL"
	TxTypeAdjustment  = "ADJUSTMENT"
	TxTypeReturn      = "RETURN"
	TxTypeTransferOut = "TRANSFER_OUT"
	TxTypeTransferIn  = "TRANSFER_IN"
	TxTypeInternalUse = "INTERNAL_USE"
)

// Transaction is an immutable ledger entry recording a signed quantity change
// against a batch. Rows are never updated or hard-deleted; a revert soft-deletes
// the original row (DeletedAt is the sole revert marker) and restores state.
type Transaction struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	BatchID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"batch_id"`
	UnitID          *uuid.UUID       `gorm:"type:uuid;index" json:"unit_id,omitempty"` // Nullable for batch-level adjustments
	Type            string           `gorm:"type:varchar(20);not null;index" json:"type"`
	QuantityChange  decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"quantity_change"`
	BalanceAfter    decimal.Decimal  `gorm:"type:decimal(14,2);not null" json:"balance_after"`
	CutLength       *decimal.Decimal `gorm:"type:decimal(14,2)" json:"cut_length,omitempty"`      // CUT_ROLL only
	ResultUnitID    *uuid.UUID       `gorm:"type:uuid;index" json:"result_unit_id,omitempty"`     // CUT_ROLL only: the piece created by the split
	FromLocationID  *uuid.UUID       `gorm:"type:uuid" json:"from_location_id,omitempty"`
	ToLocationID    *uuid.UUID       `gorm:"type:uuid" json:"to_location_id,omitempty"`
	CustomerID      *uuid.UUID       `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	InvoiceNo       string           `gorm:"type:varchar(100);index" json:"invoice_no,omitempty"`
	Note            string           `gorm:"type:text" json:"note,omitempty"`
	CreatedBy       *uuid.UUID       `gorm:"type:uuid;index" json:"created_by"`
	TransactionDate time.Time        `gorm:"not null;index" json:"transaction_date"`
	CreatedAt       time.Time        `json:"created_at"`
	DeletedAt       gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Reverted reports whether this transaction has been soft-deleted by a revert
func (t *Transaction) Reverted() bool {
	return t.DeletedAt.Valid
}

// RevertOperation status constants
const (
	RevertOpRunning   = "RUNNING"
	RevertOpCompleted = "COMPLETED"
)

// RevertOperation is the server-authoritative record of a multi-id revert
// request. Clients poll it instead of tracking in-flight ids themselves.
type RevertOperation struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RequestedBy    *uuid.UUID `gorm:"type:uuid;index" json:"requested_by"`
	TotalRequested int        `gorm:"type:int;not null" json:"total_requested"`
	RevertedCount  int        `gorm:"type:int;not null;default:0" json:"reverted_count"`
	Status         string     `gorm:"type:varchar(20);not null;default:'RUNNING';index" json:"status"`
	Result         string     `gorm:"type:jsonb" json:"result"` // Per-item outcomes, serialized JSON
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (o *RevertOperation) BeforeCreate(_ *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
