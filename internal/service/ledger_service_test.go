package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerApplySale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"), bundleUnit(40))
	roll := unitOfType(t, batch, model.StockTypeFullRoll)

	t.Run("dispatches the whole unit", func(t *testing.T) {
		res, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:       model.TxTypeSale,
			BatchID:    batch.ID,
			UnitID:     roll.ID,
			CustomerID: customer.ID.String(),
			InvoiceNo:  "INV-2026-001",
		})
		require.NoError(t, err)

		assert.Equal(t, "-100", res.QuantityChange.String())
		assert.Equal(t, "40", res.BalanceAfter.String())
		assert.Equal(t, customer.ID.String(), res.CustomerID)
		assert.Equal(t, "INV-2026-001", res.InvoiceNo)
		assert.False(t, res.Reverted)

		assert.Equal(t, model.UnitStatusDispatched, env.unitStatus(t, roll.ID))
		assert.Equal(t, "40", env.batchQuantity(t, batch.ID))

		loaded, err := env.batches.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StockStatePartiallyConsumed, loaded.StockState)
	})

	t.Run("refuses a unit that is not available", func(t *testing.T) {
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:       model.TxTypeSale,
			BatchID:    batch.ID,
			UnitID:     roll.ID,
			CustomerID: customer.ID.String(),
		})
		assert.Equal(t, apperror.CodeInsufficientStock, apperror.CodeOf(err))

		// No ledger row was appended for the refused request
		txs, err := env.txRepo.ListByBatch(ctx, uuid.MustParse(batch.ID), true)
		require.NoError(t, err)
		assert.Len(t, txs, 2) // PRODUCTION + the accepted SALE
	})

	t.Run("requires a customer", func(t *testing.T) {
		bundle := unitOfType(t, batch, model.StockTypeBundle)
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:    model.TxTypeSale,
			BatchID: batch.ID,
			UnitID:  bundle.ID,
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
		assert.Equal(t, model.UnitStatusAvailable, env.unitStatus(t, bundle.ID))
	})

	t.Run("explicit quantity must match the unit", func(t *testing.T) {
		bundle := unitOfType(t, batch, model.StockTypeBundle)
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:           model.TxTypeSale,
			BatchID:        batch.ID,
			UnitID:         bundle.ID,
			CustomerID:     customer.ID.String(),
			QuantityChange: decimal.RequireFromString("-25"),
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
	})
}

func TestLedgerApplyReturn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"))
	roll := unitOfType(t, batch, model.StockTypeFullRoll)

	t.Run("only dispatched units can come back", func(t *testing.T) {
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:    model.TxTypeReturn,
			BatchID: batch.ID,
			UnitID:  roll.ID,
		})
		assert.Equal(t, apperror.CodeInvalidReference, apperror.CodeOf(err))
	})

	t.Run("return restores unit and quantity", func(t *testing.T) {
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:       model.TxTypeSale,
			BatchID:    batch.ID,
			UnitID:     roll.ID,
			CustomerID: customer.ID.String(),
		})
		require.NoError(t, err)

		res, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:    model.TxTypeReturn,
			BatchID: batch.ID,
			UnitID:  roll.ID,
			Note:    "customer rejected delivery",
		})
		require.NoError(t, err)

		assert.Equal(t, "100", res.QuantityChange.String())
		assert.Equal(t, "100", res.BalanceAfter.String())
		assert.Equal(t, model.UnitStatusAvailable, env.unitStatus(t, roll.ID))
		assert.Equal(t, "100", env.batchQuantity(t, batch.ID))
	})
}

func TestLedgerTransfers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	warehouse := env.seedLocation(t, model.LocationTypeWarehouse)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("50"), rollUnit("80"))

	t.Run("transfer out needs a destination", func(t *testing.T) {
		roll := batch.Units[0]
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:    model.TxTypeTransferOut,
			BatchID: batch.ID,
			UnitID:  roll.ID,
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
	})

	t.Run("transfer out then in round-trips the unit", func(t *testing.T) {
		roll := batch.Units[0]
		out, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:         model.TxTypeTransferOut,
			BatchID:      batch.ID,
			UnitID:       roll.ID,
			ToLocationID: warehouse.ID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, model.UnitStatusDispatched, env.unitStatus(t, roll.ID))

		in, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:           model.TxTypeTransferIn,
			BatchID:        batch.ID,
			UnitID:         roll.ID,
			FromLocationID: warehouse.ID.String(),
		})
		require.NoError(t, err)

		assert.Equal(t, out.QuantityChange.Neg().String(), in.QuantityChange.String())
		assert.Equal(t, model.UnitStatusAvailable, env.unitStatus(t, roll.ID))
		assert.Equal(t, "130", env.batchQuantity(t, batch.ID))
	})

	t.Run("internal use consumes the unit", func(t *testing.T) {
		roll := batch.Units[1]
		res, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:    model.TxTypeInternalUse,
			BatchID: batch.ID,
			UnitID:  roll.ID,
			Note:    "fire main for plant extension",
		})
		require.NoError(t, err)
		assert.Equal(t, model.UnitStatusConsumed, env.unitStatus(t, roll.ID))
		assert.Equal(t, res.BalanceAfter.String(), env.batchQuantity(t, batch.ID))
		assert.Equal(t, decimal.RequireFromString("130").Add(res.QuantityChange).String(), res.BalanceAfter.String())
	})
}

func TestLedgerApplyCut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"), bundleUnit(20))
	roll := unitOfType(t, batch, model.StockTypeFullRoll)

	t.Run("splits a piece off the roll", func(t *testing.T) {
		res, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:      model.TxTypeCutRoll,
			BatchID:   batch.ID,
			UnitID:    roll.ID,
			CutLength: decimal.RequireFromString("30"),
		})
		require.NoError(t, err)

		// A cut moves length between units; the batch total is untouched
		assert.True(t, res.QuantityChange.IsZero())
		assert.Equal(t, "120", res.BalanceAfter.String())
		require.NotEmpty(t, res.ResultUnitID)

		parent, err := env.unitRepo.FindByID(ctx, uuid.MustParse(roll.ID))
		require.NoError(t, err)
		assert.Equal(t, "70", parent.LengthMeters.String())

		piece, err := env.unitRepo.FindByID(ctx, uuid.MustParse(res.ResultUnitID))
		require.NoError(t, err)
		assert.Equal(t, model.StockTypeCutRoll, piece.StockType)
		assert.Equal(t, "30", piece.LengthMeters.String())
		assert.Equal(t, model.UnitStatusAvailable, piece.Status)
		require.NotNil(t, piece.ParentUnitID)
		assert.Equal(t, roll.ID, piece.ParentUnitID.String())

		assert.Equal(t, "120", env.batchQuantity(t, batch.ID))

		stored, err := env.txRepo.FindByID(ctx, uuid.MustParse(res.ID))
		require.NoError(t, err)
		require.NotNil(t, stored.CutLength)
		assert.Equal(t, "30", stored.CutLength.String())
	})

	t.Run("cut must leave length on the parent", func(t *testing.T) {
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:      model.TxTypeCutRoll,
			BatchID:   batch.ID,
			UnitID:    roll.ID,
			CutLength: decimal.RequireFromString("70"), // Exactly the remaining length
		})
		assert.Equal(t, apperror.CodeInsufficientStock, apperror.CodeOf(err))
	})

	t.Run("cut length must be positive", func(t *testing.T) {
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:    model.TxTypeCutRoll,
			BatchID: batch.ID,
			UnitID:  roll.ID,
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
	})

	t.Run("only rolls can be cut", func(t *testing.T) {
		bundle := unitOfType(t, batch, model.StockTypeBundle)
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:      model.TxTypeCutRoll,
			BatchID:   batch.ID,
			UnitID:    bundle.ID,
			CutLength: decimal.RequireFromString("5"),
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
	})
}

func TestLedgerAdjustment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("batch-level adjustment moves the balance", func(t *testing.T) {
		variant := env.seedVariant(t, model.UOMRollMeters)
		batch := env.createBatch(t, variant.ID.String(), rollUnit("100"))

		res, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:           model.TxTypeAdjustment,
			BatchID:        batch.ID,
			QuantityChange: decimal.RequireFromString("-10"),
			Note:           "stocktake shrinkage",
		})
		require.NoError(t, err)
		assert.Equal(t, "90", res.BalanceAfter.String())
		assert.Empty(t, res.UnitID)

		// 90 + 20 would exceed the initial 100
		_, err = env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:           model.TxTypeAdjustment,
			BatchID:        batch.ID,
			QuantityChange: decimal.RequireFromString("20"),
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))

		_, err = env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:           model.TxTypeAdjustment,
			BatchID:        batch.ID,
			QuantityChange: decimal.RequireFromString("-200"),
		})
		assert.Equal(t, apperror.CodeInsufficientStock, apperror.CodeOf(err))

		// Neither refusal left a ledger row behind
		txs, err := env.txRepo.ListByBatch(ctx, uuid.MustParse(batch.ID), true)
		require.NoError(t, err)
		assert.Len(t, txs, 2) // PRODUCTION + the -10 adjustment
	})

	t.Run("zero change is rejected", func(t *testing.T) {
		variant := env.seedVariant(t, model.UOMRollMeters)
		batch := env.createBatch(t, variant.ID.String(), rollUnit("50"))

		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:    model.TxTypeAdjustment,
			BatchID: batch.ID,
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
	})

	t.Run("unit-level adjustment updates the unit", func(t *testing.T) {
		variant := env.seedVariant(t, model.UOMPieces)
		batch := env.createBatch(t, variant.ID.String(), bundleUnit(40))
		bundle := unitOfType(t, batch, model.StockTypeBundle)

		res, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:           model.TxTypeAdjustment,
			BatchID:        batch.ID,
			UnitID:         bundle.ID,
			QuantityChange: decimal.RequireFromString("-5"),
		})
		require.NoError(t, err)
		assert.Equal(t, "35", res.BalanceAfter.String())

		unit, err := env.unitRepo.FindByID(ctx, uuid.MustParse(bundle.ID))
		require.NoError(t, err)
		require.NotNil(t, unit.PieceCount)
		assert.Equal(t, 35, *unit.PieceCount)
	})

	t.Run("piece units only accept whole numbers", func(t *testing.T) {
		variant := env.seedVariant(t, model.UOMPieces)
		batch := env.createBatch(t, variant.ID.String(), bundleUnit(40))
		bundle := unitOfType(t, batch, model.StockTypeBundle)

		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:           model.TxTypeAdjustment,
			BatchID:        batch.ID,
			UnitID:         bundle.ID,
			QuantityChange: decimal.RequireFromString("-2.5"),
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
	})
}

func TestLedgerGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)

	t.Run("unit must belong to the batch", func(t *testing.T) {
		batchA := env.createBatch(t, variant.ID.String(), rollUnit("100"))
		batchB := env.createBatch(t, variant.ID.String(), rollUnit("60"))
		rollB := unitOfType(t, batchB, model.StockTypeFullRoll)

		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:       model.TxTypeSale,
			BatchID:    batchA.ID,
			UnitID:     rollB.ID,
			CustomerID: customer.ID.String(),
		})
		assert.Equal(t, apperror.CodeInvalidReference, apperror.CodeOf(err))
	})

	t.Run("reverted batches refuse all mutations", func(t *testing.T) {
		batch := env.createBatch(t, variant.ID.String(), rollUnit("100"))
		roll := unitOfType(t, batch, model.StockTypeFullRoll)

		res, err := env.reverts.Revert(ctx, env.userID, []string{productionTxID(t, batch)})
		require.NoError(t, err)
		require.Equal(t, 1, res.RevertedCount)

		_, err = env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:       model.TxTypeSale,
			BatchID:    batch.ID,
			UnitID:     roll.ID,
			CustomerID: customer.ID.String(),
		})
		assert.Equal(t, apperror.CodeBatchReverted, apperror.CodeOf(err))
	})

	t.Run("unknown batch", func(t *testing.T) {
		_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:    model.TxTypeAdjustment,
			BatchID: uuid.NewString(),
			QuantityChange: decimal.RequireFromString("-1"),
		})
		assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
	})
}

func TestLedgerList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"), rollUnit("60"))

	sale, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
		Type:       model.TxTypeSale,
		BatchID:    batch.ID,
		UnitID:     batch.Units[0].ID,
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)

	t.Run("filters by batch", func(t *testing.T) {
		txs, total, err := env.ledger.List(ctx, ListTransactionsQuery{BatchID: batch.ID, Page: 1, Limit: 20})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total) // PRODUCTION + SALE
		assert.Len(t, txs, 2)
	})

	t.Run("filters by type", func(t *testing.T) {
		txs, total, err := env.ledger.List(ctx, ListTransactionsQuery{
			BatchID: batch.ID,
			Type:    model.TxTypeSale,
			Page:    1,
			Limit:   20,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, txs, 1)
		assert.Equal(t, sale.ID, txs[0].ID)
	})

	t.Run("hides reverted rows unless asked", func(t *testing.T) {
		res, err := env.reverts.Revert(ctx, env.userID, []string{sale.ID})
		require.NoError(t, err)
		require.Equal(t, 1, res.RevertedCount)

		_, total, err := env.ledger.List(ctx, ListTransactionsQuery{BatchID: batch.ID, Page: 1, Limit: 20})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)

		txs, total, err := env.ledger.List(ctx, ListTransactionsQuery{
			BatchID:         batch.ID,
			IncludeReverted: true,
			Page:            1,
			Limit:           20,
		})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)

		var foundReverted bool
		for _, tx := range txs {
			if tx.ID == sale.ID {
				foundReverted = tx.Reverted
			}
		}
		assert.True(t, foundReverted)
	})
}
