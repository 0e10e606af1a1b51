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

func TestRevertSale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"), bundleUnit(40))
	roll := unitOfType(t, batch, model.StockTypeFullRoll)

	sale, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
		Type:       model.TxTypeSale,
		BatchID:    batch.ID,
		UnitID:     roll.ID,
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)
	require.Equal(t, "40", env.batchQuantity(t, batch.ID))

	res, err := env.reverts.Revert(ctx, env.userID, []string{sale.ID})
	require.NoError(t, err)

	assert.Equal(t, 1, res.RevertedCount)
	assert.Equal(t, 1, res.TotalRequested)
	assert.Empty(t, res.FailedTransactions)

	// Unit and quantity are back; the original row is soft-deleted
	assert.Equal(t, model.UnitStatusAvailable, env.unitStatus(t, roll.ID))
	assert.Equal(t, "140", env.batchQuantity(t, batch.ID))

	stored, err := env.txRepo.FindByIDUnscoped(ctx, uuid.MustParse(sale.ID))
	require.NoError(t, err)
	assert.True(t, stored.Reverted())

	t.Run("operation is pollable", func(t *testing.T) {
		op, err := env.reverts.GetOperation(ctx, res.OperationID)
		require.NoError(t, err)
		assert.Equal(t, model.RevertOpCompleted, op.Status)
		assert.Equal(t, 1, op.RevertedCount)
		assert.Equal(t, 1, op.TotalRequested)
		assert.Empty(t, op.Failed)
	})

	t.Run("a second revert is refused", func(t *testing.T) {
		res, err := env.reverts.Revert(ctx, env.userID, []string{sale.ID})
		require.NoError(t, err)
		assert.Equal(t, 0, res.RevertedCount)
		require.Len(t, res.FailedTransactions, 1)
		assert.Equal(t, apperror.CodeAlreadyReverted, res.FailedTransactions[0].Error)

		// State is untouched
		assert.Equal(t, "140", env.batchQuantity(t, batch.ID))
	})
}

func TestRevertDependentTransactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"))
	roll := unitOfType(t, batch, model.StockTypeFullRoll)

	sale, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
		Type:       model.TxTypeSale,
		BatchID:    batch.ID,
		UnitID:     roll.ID,
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)

	ret, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
		Type:    model.TxTypeReturn,
		BatchID: batch.ID,
		UnitID:  roll.ID,
	})
	require.NoError(t, err)

	t.Run("a later transaction on the unit blocks the revert", func(t *testing.T) {
		res, err := env.reverts.Revert(ctx, env.userID, []string{sale.ID})
		require.NoError(t, err)
		assert.Equal(t, 0, res.RevertedCount)
		require.Len(t, res.FailedTransactions, 1)
		assert.Equal(t, apperror.CodeDependentTx, res.FailedTransactions[0].Error)
	})

	t.Run("reverting newest-first clears the chain", func(t *testing.T) {
		res, err := env.reverts.Revert(ctx, env.userID, []string{ret.ID, sale.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, res.RevertedCount)
		assert.Empty(t, res.FailedTransactions)

		assert.Equal(t, model.UnitStatusAvailable, env.unitStatus(t, roll.ID))
		assert.Equal(t, "100", env.batchQuantity(t, batch.ID))
	})
}

func TestRevertCut(t *testing.T) {
	t.Run("merges the piece back into the parent", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()

		variant := env.seedVariant(t, model.UOMRollMeters)
		batch := env.createBatch(t, variant.ID.String(), rollUnit("100"))
		roll := unitOfType(t, batch, model.StockTypeFullRoll)

		cut, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:      model.TxTypeCutRoll,
			BatchID:   batch.ID,
			UnitID:    roll.ID,
			CutLength: decimal.RequireFromString("30"),
		})
		require.NoError(t, err)

		res, err := env.reverts.Revert(ctx, env.userID, []string{cut.ID})
		require.NoError(t, err)
		require.Equal(t, 1, res.RevertedCount)

		parent, err := env.unitRepo.FindByID(ctx, uuid.MustParse(roll.ID))
		require.NoError(t, err)
		assert.Equal(t, "100", parent.LengthMeters.String())

		piece, err := env.unitRepo.FindByID(ctx, uuid.MustParse(cut.ResultUnitID))
		require.NoError(t, err)
		assert.Equal(t, model.UnitStatusReverted, piece.Status)

		assert.Equal(t, "100", env.batchQuantity(t, batch.ID))
	})

	t.Run("refuses once the piece has been dispatched", func(t *testing.T) {
		env := newTestEnv(t)
		ctx := context.Background()

		variant := env.seedVariant(t, model.UOMRollMeters)
		customer := env.seedCustomer(t)
		batch := env.createBatch(t, variant.ID.String(), rollUnit("100"))
		roll := unitOfType(t, batch, model.StockTypeFullRoll)

		cut, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:      model.TxTypeCutRoll,
			BatchID:   batch.ID,
			UnitID:    roll.ID,
			CutLength: decimal.RequireFromString("30"),
		})
		require.NoError(t, err)

		_, err = env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
			Type:       model.TxTypeSale,
			BatchID:    batch.ID,
			UnitID:     cut.ResultUnitID,
			CustomerID: customer.ID.String(),
		})
		require.NoError(t, err)

		res, err := env.reverts.Revert(ctx, env.userID, []string{cut.ID})
		require.NoError(t, err)
		assert.Equal(t, 0, res.RevertedCount)
		require.Len(t, res.FailedTransactions, 1)
		assert.Equal(t, apperror.CodeDependentTx, res.FailedTransactions[0].Error)
	})
}

func TestRevertProduction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"), rollUnit("60"))
	production := productionTxID(t, batch)

	sale, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
		Type:       model.TxTypeSale,
		BatchID:    batch.ID,
		UnitID:     batch.Units[0].ID,
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)

	t.Run("blocked while other transactions are live", func(t *testing.T) {
		res, err := env.reverts.Revert(ctx, env.userID, []string{production})
		require.NoError(t, err)
		assert.Equal(t, 0, res.RevertedCount)
		require.Len(t, res.FailedTransactions, 1)
		assert.Equal(t, apperror.CodeDependentTx, res.FailedTransactions[0].Error)
	})

	t.Run("reverts the whole batch once it is the last entry", func(t *testing.T) {
		res, err := env.reverts.Revert(ctx, env.userID, []string{sale.ID, production})
		require.NoError(t, err)
		assert.Equal(t, 2, res.RevertedCount)
		assert.Empty(t, res.FailedTransactions)

		stored, err := env.batchRepo.FindByID(ctx, uuid.MustParse(batch.ID))
		require.NoError(t, err)
		assert.Equal(t, model.BatchStatusReverted, stored.Status)
		assert.Equal(t, model.StockStateReverted, stored.StockState())

		units, err := env.unitRepo.ListByBatch(ctx, stored.ID)
		require.NoError(t, err)
		require.NotEmpty(t, units)
		for _, u := range units {
			assert.Equal(t, model.UnitStatusReverted, u.Status)
		}
	})
}

func TestRevertProcessesEachIDIndependently(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"))
	roll := unitOfType(t, batch, model.StockTypeFullRoll)

	sale, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
		Type:       model.TxTypeSale,
		BatchID:    batch.ID,
		UnitID:     roll.ID,
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)

	bogus := uuid.NewString()
	res, err := env.reverts.Revert(ctx, env.userID, []string{bogus, sale.ID, "not-a-uuid"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.RevertedCount)
	assert.Equal(t, 3, res.TotalRequested)
	require.Len(t, res.FailedTransactions, 2)
	assert.Equal(t, bogus, res.FailedTransactions[0].ID)
	assert.Equal(t, apperror.CodeNotFound, res.FailedTransactions[0].Error)
	assert.Equal(t, apperror.CodeNotFound, res.FailedTransactions[1].Error)

	// The good id went through despite the failures around it
	assert.Equal(t, "100", env.batchQuantity(t, batch.ID))

	t.Run("failures survive in the stored operation", func(t *testing.T) {
		op, err := env.reverts.GetOperation(ctx, res.OperationID)
		require.NoError(t, err)
		assert.Equal(t, model.RevertOpCompleted, op.Status)
		assert.Equal(t, 1, op.RevertedCount)
		assert.Len(t, op.Failed, 2)
	})
}

func TestRevertValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.reverts.Revert(ctx, env.userID, nil)
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))

	_, err = env.reverts.GetOperation(ctx, uuid.NewString())
	assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
}
