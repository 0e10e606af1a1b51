package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateDispatchRequest struct {
	DispatchNo string   `json:"dispatch_no" binding:"required"`
	CustomerID string   `json:"customer_id" binding:"required"`
	InvoiceNo  string   `json:"invoice_no" binding:"required"`
	VehicleNo  string   `json:"vehicle_no"`
	Note       string   `json:"note"`
	UnitIDs    []string `json:"unit_ids" binding:"required,min=1"`
}

type DispatchItemResponse struct {
	UnitID        string `json:"unit_id"`
	TransactionID string `json:"transaction_id"`
	StockType     string `json:"stock_type,omitempty"`
}

type DispatchResponse struct {
	ID           string                 `json:"id"`
	DispatchNo   string                 `json:"dispatch_no"`
	CustomerID   string                 `json:"customer_id"`
	CustomerName string                 `json:"customer_name,omitempty"`
	InvoiceNo    string                 `json:"invoice_no"`
	VehicleNo    string                 `json:"vehicle_no,omitempty"`
	Status       string                 `json:"status"`
	Items        []DispatchItemResponse `json:"items"`
	DispatchedAt string                 `json:"dispatched_at"`
}

// DispatchService turns a customer dispatch note into SALE ledger entries,
// one per stock unit, under a single transaction boundary — a dispatch
// either goes out whole or not at all.
type DispatchService interface {
	CreateDispatch(ctx context.Context, userID string, req CreateDispatchRequest) (*DispatchResponse, error)
	GetDispatch(ctx context.Context, id string) (*DispatchResponse, error)
	ListDispatches(ctx context.Context, page, limit int) ([]DispatchResponse, int64, error)
}

type dispatchService struct {
	dispatchRepo repository.DispatchRepository
	unitRepo     repository.StockUnitRepository
	custRepo     repository.CustomerRepository
	ledger       LedgerService
	recorder     AuditRecorder
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewDispatchService(
	dispatchRepo repository.DispatchRepository,
	unitRepo repository.StockUnitRepository,
	custRepo repository.CustomerRepository,
	ledger LedgerService,
	recorder AuditRecorder,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) DispatchService {
	return &dispatchService{
		dispatchRepo: dispatchRepo,
		unitRepo:     unitRepo,
		custRepo:     custRepo,
		ledger:       ledger,
		recorder:     recorder,
		txManager:    txManager,
		hub:          hub,
	}
}

func (s *dispatchService) CreateDispatch(ctx context.Context, userID string, req CreateDispatchRequest) (*DispatchResponse, error) {
	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, apperror.Validation("invalid customer_id")
	}
	customer, err := s.custRepo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.InvalidReference("customer not found")
		}
		return nil, apperror.Internal("failed to load customer", err)
	}

	unitIDs := make([]uuid.UUID, 0, len(req.UnitIDs))
	seen := make(map[uuid.UUID]bool, len(req.UnitIDs))
	for _, raw := range req.UnitIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.Validation("invalid unit id: " + raw)
		}
		if seen[id] {
			return nil, apperror.Validation("duplicate unit id: " + raw)
		}
		seen[id] = true
		unitIDs = append(unitIDs, id)
	}

	order := &model.DispatchOrder{
		DispatchNo:   req.DispatchNo,
		CustomerID:   customer.ID,
		InvoiceNo:    req.InvoiceNo,
		VehicleNo:    req.VehicleNo,
		Note:         req.Note,
		Status:       model.DispatchStatusCompleted,
		DispatchedAt: time.Now(),
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		order.CreatedBy = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		units, err := s.unitRepo.ListByIDs(txCtx, unitIDs)
		if err != nil {
			return apperror.Internal("failed to load stock units", err)
		}
		if len(units) != len(unitIDs) {
			return apperror.NotFound("one or more stock units not found")
		}

		if err := s.dispatchRepo.Create(txCtx, order); err != nil {
			return apperror.Internal("failed to create dispatch order", err)
		}

		for _, unit := range units {
			tx, err := s.ledger.ApplyInTx(txCtx, userID, ApplyTransactionRequest{
				Type:       model.TxTypeSale,
				BatchID:    unit.BatchID.String(),
				UnitID:     unit.ID.String(),
				CustomerID: customer.ID.String(),
				InvoiceNo:  req.InvoiceNo,
				Note:       "dispatch " + req.DispatchNo,
			})
			if err != nil {
				return err
			}
			item := &model.DispatchItem{
				DispatchOrderID: order.ID,
				UnitID:          unit.ID,
				TransactionID:   tx.ID,
			}
			if err := s.dispatchRepo.CreateItem(txCtx, item); err != nil {
				return apperror.Internal("failed to create dispatch item", err)
			}
		}

		s.recorder.Record(txCtx, userID, AuditEntry{
			Action:     model.ActionCreateDispatch,
			EntityType: model.EntityDispatch,
			EntityID:   order.ID.String(),
			EntityName: req.DispatchNo + " → " + customer.Name,
			Details:    req,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(order)

	return s.GetDispatch(ctx, order.ID.String())
}

func (s *dispatchService) GetDispatch(ctx context.Context, id string) (*DispatchResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid dispatch id")
	}
	order, err := s.dispatchRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("dispatch order not found")
		}
		return nil, apperror.Internal("failed to load dispatch order", err)
	}
	return mapDispatch(order), nil
}

func (s *dispatchService) ListDispatches(ctx context.Context, page, limit int) ([]DispatchResponse, int64, error) {
	orders, total, err := s.dispatchRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}
	res := make([]DispatchResponse, 0, len(orders))
	for i := range orders {
		res = append(res, *mapDispatch(&orders[i]))
	}
	return res, total, nil
}

func (s *dispatchService) broadcast(order *model.DispatchOrder) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(StockEvent{
		Event: "dispatch_created",
		Data: map[string]interface{}{
			"dispatch_id": order.ID.String(),
			"dispatch_no": order.DispatchNo,
			"invoice_no":  order.InvoiceNo,
		},
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

func mapDispatch(order *model.DispatchOrder) *DispatchResponse {
	res := &DispatchResponse{
		ID:           order.ID.String(),
		DispatchNo:   order.DispatchNo,
		CustomerID:   order.CustomerID.String(),
		InvoiceNo:    order.InvoiceNo,
		VehicleNo:    order.VehicleNo,
		Status:       order.Status,
		Items:        []DispatchItemResponse{},
		DispatchedAt: order.DispatchedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if order.Customer != nil {
		res.CustomerName = order.Customer.Name
	}
	for _, item := range order.Items {
		ir := DispatchItemResponse{
			UnitID:        item.UnitID.String(),
			TransactionID: item.TransactionID.String(),
		}
		if item.Unit != nil {
			ir.StockType = item.Unit.StockType
		}
		res.Items = append(res.Items, ir)
	}
	return res
}
