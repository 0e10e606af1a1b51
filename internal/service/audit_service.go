package service

import (
	"context"
	"time"

	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	BeforeData string `json:"before_data"`
	AfterData  string `json:"after_data"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditQuery struct {
	UserID     string
	Action     string
	EntityType string
	From       string // RFC 3339 or YYYY-MM-DD
	To         string
	Search     string
	Page       int
	Limit      int
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, q AuditQuery) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

// NewAuditService creates the read-only audit log query service
func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) GetAuditLogs(ctx context.Context, q AuditQuery) ([]AuditLogResponse, int64, error) {
	filter := repository.AuditFilter{
		Action:     q.Action,
		EntityType: q.EntityType,
		Search:     q.Search,
		Page:       q.Page,
		Limit:      q.Limit,
	}

	if q.UserID != "" {
		id, err := uuid.Parse(q.UserID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid user_id filter")
		}
		filter.UserID = &id
	}
	if q.From != "" {
		from, err := parseAuditTime(q.From)
		if err != nil {
			return nil, 0, apperror.Validation("invalid from time")
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := parseAuditTime(q.To)
		if err != nil {
			return nil, 0, apperror.Validation("invalid to time")
		}
		filter.To = &to
	}

	logs, total, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		username := "System"
		userID := ""
		if l.User != nil {
			username = l.User.Username
		}
		if l.UserID != nil {
			userID = l.UserID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Username:   username,
			Action:     l.Action,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			BeforeData: l.BeforeData,
			AfterData:  l.AfterData,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

func parseAuditTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
