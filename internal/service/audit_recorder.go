package service

import (
	"context"
	"encoding/json"
	"log"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// AuditEntry describes one state-changing operation for the audit trail
type AuditEntry struct {
	Action     string
	EntityType string
	EntityID   string
	EntityName string
	Before     interface{}
	After      interface{}
	Details    interface{}
}

// AuditRecorder writes structured audit rows alongside mutations.
// Recording failures must never roll back the primary mutation: they are
// logged for operational alerting and swallowed.
type AuditRecorder interface {
	Record(ctx context.Context, userID string, entry AuditEntry)
}

type auditRecorder struct {
	auditRepo repository.AuditRepository
}

func NewAuditRecorder(auditRepo repository.AuditRepository) AuditRecorder {
	return &auditRecorder{auditRepo: auditRepo}
}

func (r *auditRecorder) Record(ctx context.Context, userID string, entry AuditEntry) {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}

	row := &model.AuditLog{
		UserID:     uid,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		EntityName: entry.EntityName,
		BeforeData: marshalSnapshot(entry.Before),
		AfterData:  marshalSnapshot(entry.After),
		Details:    marshalSnapshot(entry.Details),
	}

	if err := r.auditRepo.Log(ctx, row); err != nil {
		// Mutation success takes priority over audit completeness
		log.Printf("WARNING: audit entry dropped (action=%s entity=%s/%s): %v",
			entry.Action, entry.EntityType, entry.EntityID, err)
	}
}

func marshalSnapshot(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("WARNING: failed to marshal audit snapshot: %v", err)
		return ""
	}
	return string(data)
}
