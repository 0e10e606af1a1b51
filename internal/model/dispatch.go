package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DispatchStatus constants
const (
	DispatchStatusCompleted = "COMPLETED"
	DispatchStatusReverted  = "REVERTED"
)

// DispatchOrder groups the stock units sent to one customer under one invoice.
// Each item is backed by a SALE ledger transaction; reverting every backing
// transaction flips the order to REVERTED.
type DispatchOrder struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DispatchNo  string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"dispatch_no"`
	CustomerID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer    *Customer      `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	InvoiceNo   string         `gorm:"type:varchar(100);not null;index" json:"invoice_no"`
	VehicleNo   string         `gorm:"type:varchar(50)" json:"vehicle_no"`
	Note        string         `gorm:"type:text" json:"note"`
	Status      string         `gorm:"type:varchar(20);not null;default:'COMPLETED'" json:"status"`
	Items       []DispatchItem `gorm:"foreignKey:DispatchOrderID" json:"items"`
	CreatedBy   *uuid.UUID     `gorm:"type:uuid;index" json:"created_by"`
	DispatchedAt time.Time     `gorm:"not null" json:"dispatched_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (d *DispatchOrder) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DispatchItem links one dispatched stock unit to its SALE transaction
type DispatchItem struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	DispatchOrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"dispatch_order_id"`
	UnitID          uuid.UUID `gorm:"type:uuid;not null;index" json:"unit_id"`
	Unit            *StockUnit `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	TransactionID   uuid.UUID `gorm:"type:uuid;not null;index" json:"transaction_id"`
	CreatedAt       time.Time `json:"created_at"`
}

func (i *DispatchItem) BeforeCreate(_ *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
