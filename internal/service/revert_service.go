package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"
	ws "backend/internal/websocket"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RevertFailure reports why one transaction id could not be reverted
type RevertFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// RevertResult is the per-item outcome of a multi-id revert request.
// A request may partially succeed; callers must inspect FailedTransactions.
type RevertResult struct {
	OperationID        string          `json:"operation_id"`
	RevertedCount      int             `json:"reverted_count"`
	TotalRequested     int             `json:"total_requested"`
	FailedTransactions []RevertFailure `json:"failed_transactions"`
}

type RevertOperationResponse struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	TotalRequested int             `json:"total_requested"`
	RevertedCount  int             `json:"reverted_count"`
	Failed         []RevertFailure `json:"failed_transactions"`
	CreatedAt      string          `json:"created_at"`
}

// RevertService undoes ledger transactions by applying their computed inverse
// and soft-deleting the original row. Each id is its own unit of work: one
// failure never blocks the rest.
type RevertService interface {
	Revert(ctx context.Context, userID string, transactionIDs []string) (*RevertResult, error)
	GetOperation(ctx context.Context, id string) (*RevertOperationResponse, error)
}

type revertService struct {
	batchRepo    repository.BatchRepository
	unitRepo     repository.StockUnitRepository
	txRepo       repository.TransactionRepository
	dispatchRepo repository.DispatchRepository
	opRepo       repository.RevertOperationRepository
	recorder     AuditRecorder
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewRevertService(
	batchRepo repository.BatchRepository,
	unitRepo repository.StockUnitRepository,
	txRepo repository.TransactionRepository,
	dispatchRepo repository.DispatchRepository,
	opRepo repository.RevertOperationRepository,
	recorder AuditRecorder,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) RevertService {
	return &revertService{
		batchRepo:    batchRepo,
		unitRepo:     unitRepo,
		txRepo:       txRepo,
		dispatchRepo: dispatchRepo,
		opRepo:       opRepo,
		recorder:     recorder,
		txManager:    txManager,
		hub:          hub,
	}
}

func (s *revertService) Revert(ctx context.Context, userID string, transactionIDs []string) (*RevertResult, error) {
	if len(transactionIDs) == 0 {
		return nil, apperror.Validation("transaction_ids must not be empty")
	}

	op := &model.RevertOperation{
		TotalRequested: len(transactionIDs),
		Status:         model.RevertOpRunning,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		op.RequestedBy = &parsed
	}
	if err := s.opRepo.Create(ctx, op); err != nil {
		return nil, apperror.Internal("failed to create revert operation", err)
	}

	result := &RevertResult{
		OperationID:        op.ID.String(),
		TotalRequested:     len(transactionIDs),
		FailedTransactions: []RevertFailure{},
	}

	// Ids are processed sequentially in request order; each runs in its own
	// DB transaction with the batch row locked, so a cancelled request leaves
	// every id either fully applied or fully absent from the reverted set.
	for _, rawID := range transactionIDs {
		if err := s.revertOne(ctx, userID, rawID); err != nil {
			result.FailedTransactions = append(result.FailedTransactions, RevertFailure{
				ID:    rawID,
				Error: apperror.CodeOf(err),
			})
			continue
		}
		result.RevertedCount++
	}

	op.RevertedCount = result.RevertedCount
	op.Status = model.RevertOpCompleted
	if data, err := json.Marshal(result.FailedTransactions); err == nil {
		op.Result = string(data)
	}
	if err := s.opRepo.Update(ctx, op); err != nil {
		return nil, apperror.Internal("failed to finalize revert operation", err)
	}

	s.broadcast(result)
	return result, nil
}

func (s *revertService) revertOne(ctx context.Context, userID, rawID string) error {
	txID, err := uuid.Parse(rawID)
	if err != nil {
		return apperror.NotFound("invalid transaction id")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		target, err := s.txRepo.FindByIDUnscoped(txCtx, txID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("transaction not found")
			}
			return apperror.Internal("failed to load transaction", err)
		}
		if target.Reverted() {
			return apperror.AlreadyReverted("transaction has already been reverted")
		}

		batch, err := s.batchRepo.FindByIDForUpdate(txCtx, target.BatchID)
		if err != nil {
			return apperror.Internal("failed to load batch", err)
		}
		if batch.Status == model.BatchStatusReverted {
			return apperror.BatchReverted("batch is reverted")
		}
		batchBefore := *batch

		if target.Type == model.TxTypeProduction {
			return s.revertProduction(txCtx, userID, batch, &batchBefore, target)
		}

		unitBefore, unitAfter, err := s.applyInverse(txCtx, batch, target)
		if err != nil {
			return err
		}

		newQty := batch.CurrentQuantity.Sub(target.QuantityChange)
		if newQty.IsNegative() || newQty.GreaterThan(batch.InitialQuantity) {
			return apperror.DependentTransaction("inverse would leave the batch quantity out of range")
		}
		batch.CurrentQuantity = newQty
		if err := s.batchRepo.Update(txCtx, batch); err != nil {
			return apperror.Internal("failed to restore batch quantity", err)
		}

		if err := s.txRepo.SoftDelete(txCtx, target.ID); err != nil {
			return apperror.Internal("failed to mark transaction reverted", err)
		}

		if target.Type == model.TxTypeSale {
			if err := s.syncDispatchStatus(txCtx, target.ID); err != nil {
				return err
			}
		}

		s.recorder.Record(txCtx, userID, AuditEntry{
			Action:     model.ActionRevertTransaction,
			EntityType: model.EntityTransaction,
			EntityID:   target.ID.String(),
			EntityName: batch.BatchCode + " " + target.Type,
			Before:     snapshotState(&batchBefore, unitBefore),
			After:      snapshotState(batch, unitAfter),
			Details: map[string]interface{}{
				"original_transaction_id": target.ID.String(),
				"reverted_type":           target.Type,
				"inverse_quantity":        target.QuantityChange.Neg(),
			},
		})

		return nil
	})
}

// applyInverse restores stock unit state for the target transaction and
// refuses when later live transactions depend on the state it produced.
func (s *revertService) applyInverse(txCtx context.Context, batch *model.Batch, target *model.Transaction) (*model.StockUnit, *model.StockUnit, error) {
	if target.UnitID == nil {
		// Batch-level adjustment: nothing beyond the quantity to restore
		return nil, nil, nil
	}

	dependent, err := s.txRepo.HasLaterOnUnit(txCtx, *target.UnitID, target.CreatedAt, target.ID)
	if err != nil {
		return nil, nil, apperror.Internal("failed to check dependent transactions", err)
	}
	if !dependent && target.ResultUnitID != nil {
		dependent, err = s.txRepo.HasLaterOnUnit(txCtx, *target.ResultUnitID, target.CreatedAt, target.ID)
		if err != nil {
			return nil, nil, apperror.Internal("failed to check dependent transactions", err)
		}
	}
	if dependent {
		return nil, nil, apperror.DependentTransaction("a later transaction depends on this one")
	}

	unit, err := s.unitRepo.FindByID(txCtx, *target.UnitID)
	if err != nil {
		return nil, nil, apperror.Internal("failed to load stock unit", err)
	}
	before := *unit

	switch target.Type {
	case model.TxTypeSale, model.TxTypeTransferOut, model.TxTypeInternalUse:
		unit.Status = model.UnitStatusAvailable
		if err := s.unitRepo.UpdateStatus(txCtx, unit.ID, unit.Status); err != nil {
			return nil, nil, apperror.Internal("failed to restore stock unit", err)
		}

	case model.TxTypeReturn, model.TxTypeTransferIn:
		unit.Status = model.UnitStatusDispatched
		if err := s.unitRepo.UpdateStatus(txCtx, unit.ID, unit.Status); err != nil {
			return nil, nil, apperror.Internal("failed to restore stock unit", err)
		}

	case model.TxTypeAdjustment:
		if unit.LengthMeters != nil {
			restored := unit.LengthMeters.Sub(target.QuantityChange)
			if restored.IsNegative() {
				return nil, nil, apperror.DependentTransaction("inverse would drive unit length negative")
			}
			unit.LengthMeters = &restored
		} else if unit.PieceCount != nil {
			restored := *unit.PieceCount - int(target.QuantityChange.IntPart())
			if restored < 0 {
				return nil, nil, apperror.DependentTransaction("inverse would drive piece count negative")
			}
			unit.PieceCount = &restored
		}
		if err := s.unitRepo.Update(txCtx, unit); err != nil {
			return nil, nil, apperror.Internal("failed to restore stock unit", err)
		}

	case model.TxTypeCutRoll:
		return s.revertCut(txCtx, unit, target)

	default:
		return nil, nil, apperror.Validation("cannot revert transaction type " + target.Type)
	}

	return &before, unit, nil
}

// revertCut merges the cut piece back into its parent roll and retires it
func (s *revertService) revertCut(txCtx context.Context, parent *model.StockUnit, target *model.Transaction) (*model.StockUnit, *model.StockUnit, error) {
	if target.ResultUnitID == nil || target.CutLength == nil {
		return nil, nil, apperror.Internal("cut transaction is missing split metadata", nil)
	}
	piece, err := s.unitRepo.FindByID(txCtx, *target.ResultUnitID)
	if err != nil {
		return nil, nil, apperror.Internal("failed to load cut piece", err)
	}
	if piece.Status != model.UnitStatusAvailable {
		return nil, nil, apperror.DependentTransaction("cut piece has already been consumed or dispatched")
	}

	before := *parent
	if parent.LengthMeters == nil {
		return nil, nil, apperror.Internal("parent unit is not a roll", nil)
	}
	restored := parent.LengthMeters.Add(*target.CutLength)
	parent.LengthMeters = &restored
	if err := s.unitRepo.Update(txCtx, parent); err != nil {
		return nil, nil, apperror.Internal("failed to restore parent roll", err)
	}

	piece.Status = model.UnitStatusReverted
	if err := s.unitRepo.UpdateStatus(txCtx, piece.ID, model.UnitStatusReverted); err != nil {
		return nil, nil, apperror.Internal("failed to retire cut piece", err)
	}

	return &before, parent, nil
}

// revertProduction reverts the whole batch. Only allowed when the PRODUCTION
// entry is the last live transaction; the batch and all its units become
// REVERTED with the current quantity frozen as recorded.
func (s *revertService) revertProduction(txCtx context.Context, userID string, batch *model.Batch, batchBefore *model.Batch, target *model.Transaction) error {
	live, err := s.txRepo.CountActiveOnBatch(txCtx, batch.ID, target.ID)
	if err != nil {
		return apperror.Internal("failed to count batch transactions", err)
	}
	if live > 0 {
		return apperror.DependentTransaction(fmt.Sprintf(
			"%d live transactions must be reverted before the batch itself", live))
	}

	if err := s.txRepo.SoftDelete(txCtx, target.ID); err != nil {
		return apperror.Internal("failed to mark transaction reverted", err)
	}

	batch.Status = model.BatchStatusReverted
	if err := s.batchRepo.Update(txCtx, batch); err != nil {
		return apperror.Internal("failed to revert batch", err)
	}
	if err := s.unitRepo.UpdateStatusByBatch(txCtx, batch.ID, model.UnitStatusReverted); err != nil {
		return apperror.Internal("failed to revert stock units", err)
	}

	s.recorder.Record(txCtx, userID, AuditEntry{
		Action:     model.ActionRevertBatch,
		EntityType: model.EntityBatch,
		EntityID:   batch.ID.String(),
		EntityName: batch.BatchCode,
		Before:     snapshotState(batchBefore, nil),
		After:      snapshotState(batch, nil),
		Details: map[string]interface{}{
			"original_transaction_id": target.ID.String(),
		},
	})

	return nil
}

// syncDispatchStatus flips a dispatch order to REVERTED once every one of its
// backing SALE transactions has been reverted
func (s *revertService) syncDispatchStatus(txCtx context.Context, txID uuid.UUID) error {
	order, err := s.dispatchRepo.FindByTransactionID(txCtx, txID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // Ad-hoc SALE, not part of a dispatch order
		}
		return apperror.Internal("failed to load dispatch order", err)
	}

	for _, item := range order.Items {
		tx, err := s.txRepo.FindByIDUnscoped(txCtx, item.TransactionID)
		if err != nil {
			return apperror.Internal("failed to load dispatch transaction", err)
		}
		if !tx.Reverted() && tx.ID != txID {
			return nil // Some items are still live
		}
	}

	if err := s.dispatchRepo.UpdateStatus(txCtx, order.ID, model.DispatchStatusReverted); err != nil {
		return apperror.Internal("failed to update dispatch order", err)
	}
	return nil
}

func (s *revertService) GetOperation(ctx context.Context, id string) (*RevertOperationResponse, error) {
	opID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid operation id")
	}
	op, err := s.opRepo.FindByID(ctx, opID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("revert operation not found")
		}
		return nil, apperror.Internal("failed to load revert operation", err)
	}

	res := &RevertOperationResponse{
		ID:             op.ID.String(),
		Status:         op.Status,
		TotalRequested: op.TotalRequested,
		RevertedCount:  op.RevertedCount,
		Failed:         []RevertFailure{},
		CreatedAt:      op.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if op.Result != "" {
		_ = json.Unmarshal([]byte(op.Result), &res.Failed)
	}
	return res, nil
}

func (s *revertService) broadcast(result *RevertResult) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(StockEvent{
		Event: "transactions_reverted",
		Data: map[string]interface{}{
			"operation_id":    result.OperationID,
			"reverted_count":  result.RevertedCount,
			"total_requested": result.TotalRequested,
		},
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}
