package service

import (
	"context"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockSummaryRow aggregates available stock per variant and stock type
type StockSummaryRow struct {
	VariantID     string          `json:"variant_id" gorm:"column:variant_id"`
	VariantCode   string          `json:"variant_code" gorm:"column:variant_code"`
	VariantName   string          `json:"variant_name" gorm:"column:variant_name"`
	StockType     string          `json:"stock_type" gorm:"column:stock_type"`
	UnitCount     int             `json:"unit_count" gorm:"column:unit_count"`
	TotalQuantity decimal.Decimal `json:"total_quantity" gorm:"column:total_quantity"`
}

// ReconciliationRow compares a batch's stored quantity against the ledger sum
// and the sum of its available units
type ReconciliationRow struct {
	BatchID          string          `json:"batch_id"`
	BatchCode        string          `json:"batch_code"`
	CurrentQuantity  decimal.Decimal `json:"current_quantity"`
	LedgerSum        decimal.Decimal `json:"ledger_sum"`
	AvailableUnitSum decimal.Decimal `json:"available_unit_sum"`
	LedgerConsistent bool            `json:"ledger_consistent"`
	UnitsConsistent  bool            `json:"units_consistent"`
}

type ReportService interface {
	GetStockSummary(ctx context.Context) ([]StockSummaryRow, error)
	GetReconciliation(ctx context.Context) ([]ReconciliationRow, error)
}

type reportService struct {
	db     *gorm.DB
	txRepo repository.TransactionRepository
}

func NewReportService(db *gorm.DB, txRepo repository.TransactionRepository) ReportService {
	return &reportService{db: db, txRepo: txRepo}
}

func (s *reportService) GetStockSummary(ctx context.Context) ([]StockSummaryRow, error) {
	var rows []StockSummaryRow
	err := s.db.WithContext(ctx).Table("stock_units").
		Select("product_variants.id as variant_id, product_variants.code as variant_code, product_variants.name as variant_name, stock_units.stock_type as stock_type, COUNT(stock_units.id) as unit_count, SUM(COALESCE(stock_units.length_meters, stock_units.piece_count)) as total_quantity").
		Joins("JOIN batches ON batches.id = stock_units.batch_id").
		Joins("JOIN product_variants ON product_variants.id = batches.product_variant_id").
		Where("stock_units.status = ? AND batches.status = ? AND batches.deleted_at IS NULL", model.UnitStatusAvailable, model.BatchStatusActive).
		Group("product_variants.id, product_variants.code, product_variants.name, stock_units.stock_type").
		Order("variant_code, stock_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetReconciliation evaluates, for every active batch, the two ledger
// invariants: stored quantity equals the sum of live transaction deltas, and
// equals the sum of available unit quantities. Batch-level adjustments are
// the one legal source of unit drift; the report exists to surface it.
func (s *reportService) GetReconciliation(ctx context.Context) ([]ReconciliationRow, error) {
	var batches []model.Batch
	if err := s.db.WithContext(ctx).
		Where("status = ?", model.BatchStatusActive).
		Order("batch_code").
		Find(&batches).Error; err != nil {
		return nil, err
	}

	rows := make([]ReconciliationRow, 0, len(batches))
	for _, batch := range batches {
		ledgerSum, err := s.txRepo.SumActiveOnBatch(ctx, batch.ID)
		if err != nil {
			return nil, err
		}

		var unitSum decimal.NullDecimal
		if err := s.db.WithContext(ctx).Model(&model.StockUnit{}).
			Where("batch_id = ? AND status = ?", batch.ID, model.UnitStatusAvailable).
			Select("COALESCE(SUM(COALESCE(length_meters, piece_count)), 0)").
			Scan(&unitSum).Error; err != nil {
			return nil, err
		}

		row := ReconciliationRow{
			BatchID:          batch.ID.String(),
			BatchCode:        batch.BatchCode,
			CurrentQuantity:  batch.CurrentQuantity,
			LedgerSum:        ledgerSum,
			AvailableUnitSum: unitSum.Decimal,
		}
		row.LedgerConsistent = row.CurrentQuantity.Equal(row.LedgerSum)
		row.UnitsConsistent = row.CurrentQuantity.Equal(row.AvailableUnitSum)
		rows = append(rows, row)
	}

	return rows, nil
}
