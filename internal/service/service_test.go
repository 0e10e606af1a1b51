package service

import (
	"context"
	"fmt"
	"testing"

	"backend/internal/database"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the stock services against an in-memory sqlite database.
// The websocket hub is nil everywhere so broadcasts are skipped.
type testEnv struct {
	db *gorm.DB

	batchRepo    repository.BatchRepository
	unitRepo     repository.StockUnitRepository
	txRepo       repository.TransactionRepository
	dispatchRepo repository.DispatchRepository

	ledger   LedgerService
	reverts  RevertService
	batches  BatchService
	dispatch DispatchService
	variants VariantService
	reports  ReportService

	userID string
	seq    int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// An in-memory sqlite database lives on its connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	batchRepo := repository.NewBatchRepository(db)
	unitRepo := repository.NewStockUnitRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	custRepo := repository.NewCustomerRepository(db)
	locRepo := repository.NewLocationRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	dispatchRepo := repository.NewDispatchRepository(db)
	opRepo := repository.NewRevertOperationRepository(db)
	txManager := repository.NewTransactionManager(db)
	recorder := NewAuditRecorder(repository.NewAuditRepository(db))

	ledger := NewLedgerService(batchRepo, unitRepo, txRepo, custRepo, locRepo, recorder, txManager, nil)

	return &testEnv{
		db:           db,
		batchRepo:    batchRepo,
		unitRepo:     unitRepo,
		txRepo:       txRepo,
		dispatchRepo: dispatchRepo,
		ledger:       ledger,
		reverts:      NewRevertService(batchRepo, unitRepo, txRepo, dispatchRepo, opRepo, recorder, txManager, nil),
		batches:      NewBatchService(batchRepo, unitRepo, txRepo, variantRepo, recorder, txManager, nil),
		dispatch:     NewDispatchService(dispatchRepo, unitRepo, custRepo, ledger, recorder, txManager, nil),
		variants:     NewVariantService(variantRepo, recorder, txManager),
		reports:      NewReportService(db, txRepo),
		userID:       uuid.NewString(),
	}
}

func (e *testEnv) nextCode(prefix string) string {
	e.seq++
	return fmt.Sprintf("%s-%03d", prefix, e.seq)
}

func (e *testEnv) seedVariant(t *testing.T, uom string) *model.ProductVariant {
	t.Helper()
	v := &model.ProductVariant{
		Code:          e.nextCode("HDPE-32"),
		Name:          "HDPE pipe 32mm PN10",
		SizeMM:        32,
		PressureClass: "PN10",
		UnitOfMeasure: uom,
		IsActive:      true,
	}
	require.NoError(t, e.db.Create(v).Error)
	return v
}

func (e *testEnv) seedCustomer(t *testing.T) *model.Customer {
	t.Helper()
	c := &model.Customer{Name: "Mekong Irrigation JSC", Phone: "0903123456", IsActive: true}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func (e *testEnv) seedLocation(t *testing.T, locType string) *model.Location {
	t.Helper()
	l := &model.Location{Name: e.nextCode("WH"), Type: locType, IsActive: true}
	require.NoError(t, e.db.Create(l).Error)
	return l
}

func rollUnit(meters string) BatchUnitRequest {
	return BatchUnitRequest{
		StockType:    model.StockTypeFullRoll,
		LengthMeters: decimal.RequireFromString(meters),
	}
}

func bundleUnit(pieces int) BatchUnitRequest {
	return BatchUnitRequest{StockType: model.StockTypeBundle, PieceCount: pieces}
}

// createBatch seeds a batch through production entry and returns the response
// with its units and PRODUCTION transaction loaded.
func (e *testEnv) createBatch(t *testing.T, variantID string, units ...BatchUnitRequest) *BatchResponse {
	t.Helper()
	res, err := e.batches.CreateBatch(context.Background(), e.userID, CreateBatchRequest{
		BatchCode:        e.nextCode("BATCH"),
		ProductVariantID: variantID,
		ProductionDate:   "2026-08-10",
		Units:            units,
	})
	require.NoError(t, err)
	return res
}

// unitOfType picks the first unit of the given stock type from a batch response
func unitOfType(t *testing.T, batch *BatchResponse, stockType string) StockUnitResponse {
	t.Helper()
	for _, u := range batch.Units {
		if u.StockType == stockType {
			return u
		}
	}
	t.Fatalf("no %s unit on batch %s", stockType, batch.BatchCode)
	return StockUnitResponse{}
}

// productionTxID finds the PRODUCTION ledger entry of a batch
func productionTxID(t *testing.T, batch *BatchResponse) string {
	t.Helper()
	for _, tx := range batch.Transactions {
		if tx.Type == model.TxTypeProduction {
			return tx.ID
		}
	}
	t.Fatalf("no PRODUCTION transaction on batch %s", batch.BatchCode)
	return ""
}

func (e *testEnv) unitStatus(t *testing.T, id string) string {
	t.Helper()
	unit, err := e.unitRepo.FindByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	return unit.Status
}

func (e *testEnv) batchQuantity(t *testing.T, id string) string {
	t.Helper()
	batch, err := e.batchRepo.FindByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	return batch.CurrentQuantity.String()
}
