package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ApplyTransactionRequest is the tagged mutation request accepted by the
// ledger. Type selects which of the optional fields are required; everything
// is validated before any state change. PRODUCTION entries are created only
// through batch production entry, never through this request.
type ApplyTransactionRequest struct {
	Type           string          `json:"type" binding:"required,oneof=SALE CUT_ROLL ADJUSTMENT RETURN TRANSFER_OUT TRANSFER_IN INTERNAL_USE"`
	BatchID        string          `json:"batch_id" binding:"required"`
	UnitID         string          `json:"unit_id"`
	QuantityChange decimal.Decimal `json:"quantity_change"`
	CutLength      decimal.Decimal `json:"cut_length"`
	CustomerID     string          `json:"customer_id"`
	InvoiceNo      string          `json:"invoice_no"`
	FromLocationID string          `json:"from_location_id"`
	ToLocationID   string          `json:"to_location_id"`
	Note           string          `json:"note"`
}

type TransactionResponse struct {
	ID              string          `json:"id"`
	BatchID         string          `json:"batch_id"`
	UnitID          string          `json:"unit_id,omitempty"`
	ResultUnitID    string          `json:"result_unit_id,omitempty"`
	Type            string          `json:"type"`
	QuantityChange  decimal.Decimal `json:"quantity_change"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	CustomerID      string          `json:"customer_id,omitempty"`
	InvoiceNo       string          `json:"invoice_no,omitempty"`
	Note            string          `json:"note,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	Reverted        bool            `json:"reverted"`
}

// StockEvent is the websocket payload broadcast after ledger commits
type StockEvent struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data"`
}

type ListTransactionsQuery struct {
	BatchID         string
	UnitID          string
	Type            string
	IncludeReverted bool
	Page            int
	Limit           int
}

// LedgerService is the single write path for stock quantities. Every mutation
// locks the batch row, appends an immutable transaction and keeps batch,
// units and running balance consistent inside one DB transaction.
type LedgerService interface {
	Apply(ctx context.Context, userID string, req ApplyTransactionRequest) (*TransactionResponse, error)
	// ApplyInTx is Apply without its own transaction boundary or broadcast;
	// callers must already be inside the TransactionManager scope.
	ApplyInTx(txCtx context.Context, userID string, req ApplyTransactionRequest) (*model.Transaction, error)
	List(ctx context.Context, q ListTransactionsQuery) ([]TransactionResponse, int64, error)
}

type ledgerService struct {
	batchRepo repository.BatchRepository
	unitRepo  repository.StockUnitRepository
	txRepo    repository.TransactionRepository
	custRepo  repository.CustomerRepository
	locRepo   repository.LocationRepository
	recorder  AuditRecorder
	txManager repository.TransactionManager
	hub       *ws.Hub
}

func NewLedgerService(
	batchRepo repository.BatchRepository,
	unitRepo repository.StockUnitRepository,
	txRepo repository.TransactionRepository,
	custRepo repository.CustomerRepository,
	locRepo repository.LocationRepository,
	recorder AuditRecorder,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) LedgerService {
	return &ledgerService{
		batchRepo: batchRepo,
		unitRepo:  unitRepo,
		txRepo:    txRepo,
		custRepo:  custRepo,
		locRepo:   locRepo,
		recorder:  recorder,
		txManager: txManager,
		hub:       hub,
	}
}

func (s *ledgerService) Apply(ctx context.Context, userID string, req ApplyTransactionRequest) (*TransactionResponse, error) {
	var created *model.Transaction

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		tx, err := s.ApplyInTx(txCtx, userID, req)
		if err != nil {
			return err
		}
		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast("stock_updated", map[string]interface{}{
		"batch_id":       created.BatchID.String(),
		"type":           created.Type,
		"balance_after":  created.BalanceAfter,
		"transaction_id": created.ID.String(),
	})

	return mapTransaction(created), nil
}

func (s *ledgerService) ApplyInTx(txCtx context.Context, userID string, req ApplyTransactionRequest) (*model.Transaction, error) {
	batchID, err := uuid.Parse(req.BatchID)
	if err != nil {
		return nil, apperror.Validation("invalid batch_id")
	}

	batch, err := s.batchRepo.FindByIDForUpdate(txCtx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("batch not found")
		}
		return nil, apperror.Internal("failed to load batch", err)
	}

	if batch.Status == model.BatchStatusReverted {
		return nil, apperror.BatchReverted("batch " + batch.BatchCode + " is reverted and can no longer be mutated")
	}

	batchBefore := *batch

	tx := &model.Transaction{
		BatchID:         batch.ID,
		Type:            req.Type,
		Note:            req.Note,
		TransactionDate: time.Now(),
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		tx.CreatedBy = &parsed
	}

	var unitBefore, unitAfter *model.StockUnit

	switch req.Type {
	case model.TxTypeSale, model.TxTypeTransferOut, model.TxTypeInternalUse:
		unitBefore, unitAfter, err = s.applyOutbound(txCtx, batch, tx, req)
	case model.TxTypeReturn, model.TxTypeTransferIn:
		unitBefore, unitAfter, err = s.applyInbound(txCtx, batch, tx, req)
	case model.TxTypeCutRoll:
		unitBefore, unitAfter, err = s.applyCut(txCtx, batch, tx, req)
	case model.TxTypeAdjustment:
		unitBefore, unitAfter, err = s.applyAdjustment(txCtx, batch, tx, req)
	default:
		err = apperror.Validation("unsupported transaction type: " + req.Type)
	}
	if err != nil {
		return nil, err
	}

	newQty := batch.CurrentQuantity.Add(tx.QuantityChange)
	if newQty.IsNegative() {
		return nil, apperror.InsufficientStock(fmt.Sprintf(
			"requested change %s exceeds available quantity %s on batch %s",
			tx.QuantityChange.String(), batch.CurrentQuantity.String(), batch.BatchCode))
	}
	if newQty.GreaterThan(batch.InitialQuantity) {
		return nil, apperror.Validation(fmt.Sprintf(
			"change would push batch %s above its initial quantity %s",
			batch.BatchCode, batch.InitialQuantity.String()))
	}

	batch.CurrentQuantity = newQty
	tx.BalanceAfter = newQty

	if err := s.txRepo.Create(txCtx, tx); err != nil {
		return nil, apperror.Internal("failed to append transaction", err)
	}
	if err := s.batchRepo.Update(txCtx, batch); err != nil {
		return nil, apperror.Internal("failed to update batch quantity", err)
	}

	s.recorder.Record(txCtx, userID, AuditEntry{
		Action:     model.ActionApplyTransaction,
		EntityType: model.EntityTransaction,
		EntityID:   tx.ID.String(),
		EntityName: batch.BatchCode + " " + tx.Type,
		Before:     snapshotState(&batchBefore, unitBefore),
		After:      snapshotState(batch, unitAfter),
		Details:    req,
	})

	return tx, nil
}

// applyOutbound handles SALE, TRANSFER_OUT and INTERNAL_USE: a whole available
// unit leaves the batch. SALE needs a customer, TRANSFER_OUT a destination.
func (s *ledgerService) applyOutbound(txCtx context.Context, batch *model.Batch, tx *model.Transaction, req ApplyTransactionRequest) (*model.StockUnit, *model.StockUnit, error) {
	unit, err := s.loadBatchUnit(txCtx, batch, req.UnitID)
	if err != nil {
		return nil, nil, err
	}
	if unit.Status != model.UnitStatusAvailable {
		return nil, nil, apperror.InsufficientStock("stock unit is not available (status " + unit.Status + ")")
	}

	qty := unit.Quantity()
	if !req.QuantityChange.IsZero() && !req.QuantityChange.Neg().Equal(qty) {
		return nil, nil, apperror.Validation(fmt.Sprintf(
			"quantity_change %s does not match unit quantity %s; units are dispatched whole",
			req.QuantityChange.String(), qty.String()))
	}

	switch req.Type {
	case model.TxTypeSale:
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, nil, apperror.Validation("customer_id is required for SALE")
		}
		if _, err := s.custRepo.FindByID(txCtx, customerID); err != nil {
			return nil, nil, apperror.InvalidReference("customer not found")
		}
		tx.CustomerID = &customerID
		tx.InvoiceNo = req.InvoiceNo
	case model.TxTypeTransferOut:
		toLoc, err := uuid.Parse(req.ToLocationID)
		if err != nil {
			return nil, nil, apperror.Validation("to_location_id is required for TRANSFER_OUT")
		}
		if _, err := s.locRepo.FindByID(txCtx, toLoc); err != nil {
			return nil, nil, apperror.InvalidReference("destination location not found")
		}
		tx.ToLocationID = &toLoc
		if fromLoc, err := uuid.Parse(req.FromLocationID); err == nil {
			tx.FromLocationID = &fromLoc
		}
	}

	before := *unit
	status := model.UnitStatusDispatched
	if req.Type == model.TxTypeInternalUse {
		status = model.UnitStatusConsumed
	}
	unit.Status = status
	if err := s.unitRepo.UpdateStatus(txCtx, unit.ID, status); err != nil {
		return nil, nil, apperror.Internal("failed to update stock unit", err)
	}

	tx.UnitID = &unit.ID
	tx.QuantityChange = qty.Neg()
	return &before, unit, nil
}

// applyInbound handles RETURN and TRANSFER_IN: a previously dispatched unit
// comes back into the batch whole.
func (s *ledgerService) applyInbound(txCtx context.Context, batch *model.Batch, tx *model.Transaction, req ApplyTransactionRequest) (*model.StockUnit, *model.StockUnit, error) {
	unit, err := s.loadBatchUnit(txCtx, batch, req.UnitID)
	if err != nil {
		return nil, nil, err
	}
	if unit.Status != model.UnitStatusDispatched {
		return nil, nil, apperror.InvalidReference("only dispatched units can be returned or transferred back in")
	}

	if req.Type == model.TxTypeTransferIn {
		if fromLoc, err := uuid.Parse(req.FromLocationID); err == nil {
			tx.FromLocationID = &fromLoc
		}
		if toLoc, err := uuid.Parse(req.ToLocationID); err == nil {
			tx.ToLocationID = &toLoc
		}
	}

	before := *unit
	unit.Status = model.UnitStatusAvailable
	if err := s.unitRepo.UpdateStatus(txCtx, unit.ID, model.UnitStatusAvailable); err != nil {
		return nil, nil, apperror.Internal("failed to update stock unit", err)
	}

	tx.UnitID = &unit.ID
	tx.QuantityChange = unit.Quantity()
	return &before, unit, nil
}

// applyCut splits cut_length meters off an available roll into a new CUT_ROLL
// unit. The batch total is unchanged, so the ledger delta is zero; the cut
// itself is recorded on the transaction's cut_length / result_unit_id.
func (s *ledgerService) applyCut(txCtx context.Context, batch *model.Batch, tx *model.Transaction, req ApplyTransactionRequest) (*model.StockUnit, *model.StockUnit, error) {
	unit, err := s.loadBatchUnit(txCtx, batch, req.UnitID)
	if err != nil {
		return nil, nil, err
	}
	if !model.IsRollType(unit.StockType) || unit.LengthMeters == nil {
		return nil, nil, apperror.Validation("only roll units can be cut")
	}
	if unit.Status != model.UnitStatusAvailable {
		return nil, nil, apperror.InsufficientStock("roll is not available (status " + unit.Status + ")")
	}
	if !req.CutLength.IsPositive() {
		return nil, nil, apperror.Validation("cut_length must be positive")
	}
	if req.CutLength.GreaterThanOrEqual(*unit.LengthMeters) {
		return nil, nil, apperror.InsufficientStock(fmt.Sprintf(
			"cut_length %s must be less than the roll's remaining %s meters",
			req.CutLength.String(), unit.LengthMeters.String()))
	}

	before := *unit
	remaining := unit.LengthMeters.Sub(req.CutLength)
	unit.LengthMeters = &remaining
	if err := s.unitRepo.Update(txCtx, unit); err != nil {
		return nil, nil, apperror.Internal("failed to shorten parent roll", err)
	}

	piece := model.NewRollUnit(batch.ID, model.StockTypeCutRoll, req.CutLength)
	piece.ParentUnitID = &unit.ID
	if err := s.unitRepo.Create(txCtx, &piece); err != nil {
		return nil, nil, apperror.Internal("failed to create cut piece", err)
	}

	cut := req.CutLength
	tx.UnitID = &unit.ID
	tx.ResultUnitID = &piece.ID
	tx.CutLength = &cut
	tx.QuantityChange = decimal.Zero
	return &before, unit, nil
}

// applyAdjustment applies a signed correction, optionally against one unit.
// Piece-counted units only accept whole-number deltas.
func (s *ledgerService) applyAdjustment(txCtx context.Context, batch *model.Batch, tx *model.Transaction, req ApplyTransactionRequest) (*model.StockUnit, *model.StockUnit, error) {
	if req.QuantityChange.IsZero() {
		return nil, nil, apperror.Validation("quantity_change is required for ADJUSTMENT")
	}
	tx.QuantityChange = req.QuantityChange

	if req.UnitID == "" {
		return nil, nil, nil
	}

	unit, err := s.loadBatchUnit(txCtx, batch, req.UnitID)
	if err != nil {
		return nil, nil, err
	}
	if unit.Status != model.UnitStatusAvailable {
		return nil, nil, apperror.InvalidReference("only available units can be adjusted")
	}

	before := *unit
	if unit.LengthMeters != nil {
		newLen := unit.LengthMeters.Add(req.QuantityChange)
		if newLen.IsNegative() {
			return nil, nil, apperror.InsufficientStock("adjustment would drive unit length negative")
		}
		unit.LengthMeters = &newLen
	} else {
		if !req.QuantityChange.IsInteger() {
			return nil, nil, apperror.Validation("piece-count units only accept whole-number adjustments")
		}
		newCount := *unit.PieceCount + int(req.QuantityChange.IntPart())
		if newCount < 0 {
			return nil, nil, apperror.InsufficientStock("adjustment would drive piece count negative")
		}
		unit.PieceCount = &newCount
	}
	if err := s.unitRepo.Update(txCtx, unit); err != nil {
		return nil, nil, apperror.Internal("failed to adjust stock unit", err)
	}

	tx.UnitID = &unit.ID
	return &before, unit, nil
}

func (s *ledgerService) loadBatchUnit(txCtx context.Context, batch *model.Batch, unitID string) (*model.StockUnit, error) {
	id, err := uuid.Parse(unitID)
	if err != nil {
		return nil, apperror.Validation("unit_id is required for this transaction type")
	}
	unit, err := s.unitRepo.FindByID(txCtx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("stock unit not found")
		}
		return nil, apperror.Internal("failed to load stock unit", err)
	}
	if unit.BatchID != batch.ID {
		return nil, apperror.InvalidReference("stock unit does not belong to the given batch")
	}
	return unit, nil
}

func (s *ledgerService) List(ctx context.Context, q ListTransactionsQuery) ([]TransactionResponse, int64, error) {
	filter := repository.TransactionFilter{
		Type:            q.Type,
		IncludeReverted: q.IncludeReverted,
		Page:            q.Page,
		Limit:           q.Limit,
	}
	if q.BatchID != "" {
		id, err := uuid.Parse(q.BatchID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid batch_id")
		}
		filter.BatchID = &id
	}
	if q.UnitID != "" {
		id, err := uuid.Parse(q.UnitID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid unit_id")
		}
		filter.UnitID = &id
	}

	txs, total, err := s.txRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]TransactionResponse, 0, len(txs))
	for i := range txs {
		res = append(res, *mapTransaction(&txs[i]))
	}
	return res, total, nil
}

func (s *ledgerService) broadcast(event string, data map[string]interface{}) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(StockEvent{Event: event, Data: data})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

func mapTransaction(tx *model.Transaction) *TransactionResponse {
	res := &TransactionResponse{
		ID:              tx.ID.String(),
		BatchID:         tx.BatchID.String(),
		Type:            tx.Type,
		QuantityChange:  tx.QuantityChange,
		BalanceAfter:    tx.BalanceAfter,
		InvoiceNo:       tx.InvoiceNo,
		Note:            tx.Note,
		TransactionDate: tx.TransactionDate,
		Reverted:        tx.Reverted(),
	}
	if tx.UnitID != nil {
		res.UnitID = tx.UnitID.String()
	}
	if tx.ResultUnitID != nil {
		res.ResultUnitID = tx.ResultUnitID.String()
	}
	if tx.CustomerID != nil {
		res.CustomerID = tx.CustomerID.String()
	}
	return res
}

// snapshotState captures the batch (and optionally one unit) for audit rows
func snapshotState(batch *model.Batch, unit *model.StockUnit) map[string]interface{} {
	snap := map[string]interface{}{
		"batch": map[string]interface{}{
			"id":               batch.ID.String(),
			"batch_code":       batch.BatchCode,
			"current_quantity": batch.CurrentQuantity,
			"status":           batch.Status,
			"stock_state":      batch.StockState(),
		},
	}
	if unit != nil {
		u := map[string]interface{}{
			"id":         unit.ID.String(),
			"stock_type": unit.StockType,
			"status":     unit.Status,
		}
		if unit.LengthMeters != nil {
			u["length_meters"] = *unit.LengthMeters
		}
		if unit.PieceCount != nil {
			u["piece_count"] = *unit.PieceCount
		}
		snap["unit"] = u
	}
	return snap
}
