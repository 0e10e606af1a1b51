package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateBatch       = "CREATE_BATCH"
	ActionApplyTransaction  = "APPLY_TRANSACTION"
	ActionRevertTransaction = "REVERT_TRANSACTION"
	ActionRevertBatch       = "REVERT_BATCH"
	ActionCreateDispatch    = "CREATE_DISPATCH"
	ActionCreateVariant     = "CREATE_VARIANT"
	ActionUpdateVariant     = "UPDATE_VARIANT"
	ActionDeleteVariant     = "DELETE_VARIANT"
	ActionCreateCustomer    = "CREATE_CUSTOMER"
	ActionUpdateCustomer    = "UPDATE_CUSTOMER"
	ActionDeleteCustomer    = "DELETE_CUSTOMER"
)

// Entity type constants used in audit rows
const (
	EntityBatch       = "BATCH"
	EntityStockUnit   = "STOCK_UNIT"
	EntityTransaction = "TRANSACTION"
	EntityDispatch    = "DISPATCH_ORDER"
	EntityVariant     = "PRODUCT_VARIANT"
	EntityCustomer    = "CUSTOMER"
)

// AuditLog tracks Who, What, and When for every state-changing operation,
// with before/after JSON snapshots of the touched entity. Rows are written
// alongside the mutation and never updated or deleted by application code;
// reverts are themselves audited, never un-audited.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string     `gorm:"type:varchar(50);not null;index" json:"entity_type"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	BeforeData string     `gorm:"type:jsonb" json:"before_data"`                  // Snapshot before the mutation
	AfterData  string     `gorm:"type:jsonb" json:"after_data"`                   // Snapshot after the mutation
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
