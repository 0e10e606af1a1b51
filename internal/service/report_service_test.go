package service

import (
	"context"
	"testing"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reconciliationFor(t *testing.T, rows []ReconciliationRow, batchID string) ReconciliationRow {
	t.Helper()
	for _, row := range rows {
		if row.BatchID == batchID {
			return row
		}
	}
	t.Fatalf("no reconciliation row for batch %s", batchID)
	return ReconciliationRow{}
}

func TestReconciliation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"), bundleUnit(40))
	roll := unitOfType(t, batch, model.StockTypeFullRoll)

	// Cut 30m off the roll and sell the piece: 140 → 110
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

	t.Run("quantity equals ledger sum and available units", func(t *testing.T) {
		rows, err := env.reports.GetReconciliation(ctx)
		require.NoError(t, err)
		row := reconciliationFor(t, rows, batch.ID)

		assert.Equal(t, "110", row.CurrentQuantity.String())
		assert.Equal(t, "110", row.LedgerSum.String())
		assert.Equal(t, "110", row.AvailableUnitSum.String())
		assert.True(t, row.LedgerConsistent)
		assert.True(t, row.UnitsConsistent)
	})

	// A batch-level adjustment changes the balance without touching any unit
	adj, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
		Type:           model.TxTypeAdjustment,
		BatchID:        batch.ID,
		QuantityChange: decimal.RequireFromString("-10"),
	})
	require.NoError(t, err)

	t.Run("batch-level adjustment surfaces as unit drift", func(t *testing.T) {
		rows, err := env.reports.GetReconciliation(ctx)
		require.NoError(t, err)
		row := reconciliationFor(t, rows, batch.ID)

		assert.Equal(t, "100", row.CurrentQuantity.String())
		assert.Equal(t, "100", row.LedgerSum.String())
		assert.True(t, row.LedgerConsistent)
		assert.Equal(t, "110", row.AvailableUnitSum.String())
		assert.False(t, row.UnitsConsistent)
	})

	t.Run("reverting the adjustment restores both invariants", func(t *testing.T) {
		res, err := env.reverts.Revert(ctx, env.userID, []string{adj.ID})
		require.NoError(t, err)
		require.Equal(t, 1, res.RevertedCount)

		rows, err := env.reports.GetReconciliation(ctx)
		require.NoError(t, err)
		row := reconciliationFor(t, rows, batch.ID)

		assert.Equal(t, "110", row.CurrentQuantity.String())
		assert.Equal(t, "110", row.LedgerSum.String()) // Reverted rows drop out of the sum
		assert.True(t, row.LedgerConsistent)
		assert.True(t, row.UnitsConsistent)
	})

	t.Run("reverted batches are excluded", func(t *testing.T) {
		small := env.createBatch(t, variant.ID.String(), rollUnit("20"))
		res, err := env.reverts.Revert(ctx, env.userID, []string{productionTxID(t, small)})
		require.NoError(t, err)
		require.Equal(t, 1, res.RevertedCount)

		rows, err := env.reports.GetReconciliation(ctx)
		require.NoError(t, err)
		for _, row := range rows {
			assert.NotEqual(t, small.ID, row.BatchID)
		}
	})
}

func TestStockSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rolls := env.seedVariant(t, model.UOMRollMeters)
	pieces := env.seedVariant(t, model.UOMPieces)
	customer := env.seedCustomer(t)

	batchA := env.createBatch(t, rolls.ID.String(), rollUnit("100"), rollUnit("60"))
	env.createBatch(t, pieces.ID.String(), bundleUnit(40))

	// Dispatched units drop out of the summary
	_, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
		Type:       model.TxTypeSale,
		BatchID:    batchA.ID,
		UnitID:     batchA.Units[0].ID,
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)

	rows, err := env.reports.GetStockSummary(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byVariant := map[string]StockSummaryRow{}
	for _, row := range rows {
		byVariant[row.VariantID] = row
	}

	rollRow, ok := byVariant[rolls.ID.String()]
	require.True(t, ok)
	assert.Equal(t, model.StockTypeFullRoll, rollRow.StockType)
	assert.Equal(t, 1, rollRow.UnitCount)
	assert.Equal(t, batchA.Units[1].LengthMeters.String(), rollRow.TotalQuantity.String())

	bundleRow, ok := byVariant[pieces.ID.String()]
	require.True(t, ok)
	assert.Equal(t, model.StockTypeBundle, bundleRow.StockType)
	assert.Equal(t, 1, bundleRow.UnitCount)
	assert.Equal(t, "40", bundleRow.TotalQuantity.String())
}
