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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BatchUnitRequest describes one stock unit produced with a batch.
// Roll types carry length_meters, piece types carry piece_count.
type BatchUnitRequest struct {
	StockType    string          `json:"stock_type" binding:"required,oneof=FULL_ROLL BUNDLE SPARE_PIECES"`
	LengthMeters decimal.Decimal `json:"length_meters"`
	PieceCount   int             `json:"piece_count"`
}

type CreateBatchRequest struct {
	BatchCode        string             `json:"batch_code" binding:"required"`
	ProductVariantID string             `json:"product_variant_id" binding:"required"`
	ProductionDate   string             `json:"production_date" binding:"required"` // YYYY-MM-DD
	QCStatus         string             `json:"qc_status" binding:"omitempty,oneof=PENDING PASSED FAILED"`
	Units            []BatchUnitRequest `json:"units" binding:"required,min=1,dive"`
}

type StockUnitResponse struct {
	ID           string           `json:"id"`
	StockType    string           `json:"stock_type"`
	LengthMeters *decimal.Decimal `json:"length_meters,omitempty"`
	PieceCount   *int             `json:"piece_count,omitempty"`
	Status       string           `json:"status"`
	ParentUnitID string           `json:"parent_unit_id,omitempty"`
}

type BatchResponse struct {
	ID              string                `json:"id"`
	BatchCode       string                `json:"batch_code"`
	BatchNo         int                   `json:"batch_no"`
	VariantCode     string                `json:"variant_code,omitempty"`
	VariantName     string                `json:"variant_name,omitempty"`
	ProductionDate  string                `json:"production_date"`
	InitialQuantity decimal.Decimal       `json:"initial_quantity"`
	CurrentQuantity decimal.Decimal       `json:"current_quantity"`
	QCStatus        string                `json:"qc_status"`
	Status          string                `json:"status"`
	StockState      string                `json:"stock_state"`
	Units           []StockUnitResponse   `json:"units,omitempty"`
	Transactions    []TransactionResponse `json:"transactions,omitempty"`
}

type ListBatchesQuery struct {
	Search    string
	VariantID string
	Status    string
	Page      int
	Limit     int
}

type BatchService interface {
	CreateBatch(ctx context.Context, userID string, req CreateBatchRequest) (*BatchResponse, error)
	GetBatch(ctx context.Context, id string) (*BatchResponse, error)
	ListBatches(ctx context.Context, q ListBatchesQuery) ([]BatchResponse, int64, error)
}

type batchService struct {
	batchRepo   repository.BatchRepository
	unitRepo    repository.StockUnitRepository
	txRepo      repository.TransactionRepository
	variantRepo repository.VariantRepository
	recorder    AuditRecorder
	txManager   repository.TransactionManager
	hub         *ws.Hub
}

func NewBatchService(
	batchRepo repository.BatchRepository,
	unitRepo repository.StockUnitRepository,
	txRepo repository.TransactionRepository,
	variantRepo repository.VariantRepository,
	recorder AuditRecorder,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) BatchService {
	return &batchService{
		batchRepo:   batchRepo,
		unitRepo:    unitRepo,
		txRepo:      txRepo,
		variantRepo: variantRepo,
		recorder:    recorder,
		txManager:   txManager,
		hub:         hub,
	}
}

// CreateBatch is production entry: batch row, initial stock units and the
// establishing PRODUCTION ledger entry are created in one transaction.
func (s *batchService) CreateBatch(ctx context.Context, userID string, req CreateBatchRequest) (*BatchResponse, error) {
	variantID, err := uuid.Parse(req.ProductVariantID)
	if err != nil {
		return nil, apperror.Validation("invalid product_variant_id")
	}
	productionDate, err := time.Parse("2006-01-02", req.ProductionDate)
	if err != nil {
		return nil, apperror.Validation("production_date must be YYYY-MM-DD")
	}

	total := decimal.Zero
	for _, u := range req.Units {
		q, err := unitRequestQuantity(u)
		if err != nil {
			return nil, err
		}
		total = total.Add(q)
	}
	if !total.IsPositive() {
		return nil, apperror.Validation("batch must contain positive stock")
	}

	variant, err := s.variantRepo.FindByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.InvalidReference("product variant not found")
		}
		return nil, apperror.Internal("failed to load product variant", err)
	}

	if _, err := s.batchRepo.FindByCode(ctx, req.BatchCode); err == nil {
		return nil, apperror.Validation("batch_code already exists")
	}

	qcStatus := req.QCStatus
	if qcStatus == "" {
		qcStatus = model.QCStatusPending
	}

	batch := &model.Batch{
		BatchCode:        req.BatchCode,
		ProductVariantID: variant.ID,
		ProductionDate:   productionDate,
		InitialQuantity:  total,
		CurrentQuantity:  total,
		QCStatus:         qcStatus,
		Status:           model.BatchStatusActive,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		batch.CreatedBy = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		batchNo, err := s.batchRepo.NextBatchNo(txCtx)
		if err != nil {
			return apperror.Internal("failed to allocate batch number", err)
		}
		batch.BatchNo = batchNo

		if err := s.batchRepo.Create(txCtx, batch); err != nil {
			return apperror.Internal("failed to create batch", err)
		}

		units := make([]model.StockUnit, 0, len(req.Units))
		for _, u := range req.Units {
			if model.IsRollType(u.StockType) {
				units = append(units, model.NewRollUnit(batch.ID, u.StockType, u.LengthMeters))
			} else {
				units = append(units, model.NewPieceUnit(batch.ID, u.StockType, u.PieceCount))
			}
		}
		if err := s.unitRepo.CreateAll(txCtx, units); err != nil {
			return apperror.Internal("failed to create stock units", err)
		}

		production := &model.Transaction{
			BatchID:         batch.ID,
			Type:            model.TxTypeProduction,
			QuantityChange:  total,
			BalanceAfter:    total,
			TransactionDate: time.Now(),
			CreatedBy:       batch.CreatedBy,
		}
		if err := s.txRepo.Create(txCtx, production); err != nil {
			return apperror.Internal("failed to record production entry", err)
		}

		s.recorder.Record(txCtx, userID, AuditEntry{
			Action:     model.ActionCreateBatch,
			EntityType: model.EntityBatch,
			EntityID:   batch.ID.String(),
			EntityName: batch.BatchCode,
			After:      snapshotState(batch, nil),
			Details:    req,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastBatch(batch)

	return s.GetBatch(ctx, batch.ID.String())
}

func unitRequestQuantity(u BatchUnitRequest) (decimal.Decimal, error) {
	if model.IsRollType(u.StockType) {
		if u.PieceCount != 0 {
			return decimal.Zero, apperror.Validation("roll units must not carry piece_count")
		}
		if !u.LengthMeters.IsPositive() {
			return decimal.Zero, apperror.Validation("roll units need a positive length_meters")
		}
		return u.LengthMeters, nil
	}
	if !u.LengthMeters.IsZero() {
		return decimal.Zero, apperror.Validation("piece units must not carry length_meters")
	}
	if u.PieceCount <= 0 {
		return decimal.Zero, apperror.Validation("piece units need a positive piece_count")
	}
	return decimal.NewFromInt(int64(u.PieceCount)), nil
}

func (s *batchService) GetBatch(ctx context.Context, id string) (*BatchResponse, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid batch id")
	}

	batch, err := s.batchRepo.FindByIDWithUnits(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("batch not found")
		}
		return nil, apperror.Internal("failed to load batch", err)
	}

	txs, err := s.txRepo.ListByBatch(ctx, batchID, true)
	if err != nil {
		return nil, apperror.Internal("failed to load batch history", err)
	}

	res := mapBatch(batch)
	for i := range batch.Units {
		res.Units = append(res.Units, mapUnit(&batch.Units[i]))
	}
	for i := range txs {
		res.Transactions = append(res.Transactions, *mapTransaction(&txs[i]))
	}
	return res, nil
}

func (s *batchService) ListBatches(ctx context.Context, q ListBatchesQuery) ([]BatchResponse, int64, error) {
	filter := repository.BatchFilter{
		Search: q.Search,
		Status: q.Status,
		Page:   q.Page,
		Limit:  q.Limit,
	}
	if q.VariantID != "" {
		id, err := uuid.Parse(q.VariantID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid variant id")
		}
		filter.VariantID = &id
	}

	batches, total, err := s.batchRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	res := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		res = append(res, *mapBatch(&batches[i]))
	}
	return res, total, nil
}

func (s *batchService) broadcastBatch(batch *model.Batch) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(StockEvent{
		Event: "batch_created",
		Data: map[string]interface{}{
			"batch_id":         batch.ID.String(),
			"batch_code":       batch.BatchCode,
			"initial_quantity": batch.InitialQuantity,
		},
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}

func mapBatch(batch *model.Batch) *BatchResponse {
	res := &BatchResponse{
		ID:              batch.ID.String(),
		BatchCode:       batch.BatchCode,
		BatchNo:         batch.BatchNo,
		ProductionDate:  batch.ProductionDate.Format("2006-01-02"),
		InitialQuantity: batch.InitialQuantity,
		CurrentQuantity: batch.CurrentQuantity,
		QCStatus:        batch.QCStatus,
		Status:          batch.Status,
		StockState:      batch.StockState(),
	}
	if batch.ProductVariant != nil {
		res.VariantCode = batch.ProductVariant.Code
		res.VariantName = batch.ProductVariant.Name
	}
	return res
}

func mapUnit(unit *model.StockUnit) StockUnitResponse {
	res := StockUnitResponse{
		ID:           unit.ID.String(),
		StockType:    unit.StockType,
		LengthMeters: unit.LengthMeters,
		PieceCount:   unit.PieceCount,
		Status:       unit.Status,
	}
	if unit.ParentUnitID != nil {
		res.ParentUnitID = unit.ParentUnitID.String()
	}
	return res
}
