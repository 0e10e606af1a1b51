package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDispatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("60"), rollUnit("40"))

	res, err := env.dispatch.CreateDispatch(ctx, env.userID, CreateDispatchRequest{
		DispatchNo: "DSP-2026-001",
		CustomerID: customer.ID.String(),
		InvoiceNo:  "INV-2026-007",
		VehicleNo:  "51C-123.45",
		UnitIDs:    []string{batch.Units[0].ID, batch.Units[1].ID},
	})
	require.NoError(t, err)

	assert.Equal(t, "DSP-2026-001", res.DispatchNo)
	assert.Equal(t, model.DispatchStatusCompleted, res.Status)
	assert.Equal(t, customer.Name, res.CustomerName)
	require.Len(t, res.Items, 2)

	// Every item is backed by a SALE carrying the customer and invoice
	for _, item := range res.Items {
		tx, err := env.txRepo.FindByID(ctx, uuid.MustParse(item.TransactionID))
		require.NoError(t, err)
		assert.Equal(t, model.TxTypeSale, tx.Type)
		assert.Equal(t, "INV-2026-007", tx.InvoiceNo)
		require.NotNil(t, tx.CustomerID)
		assert.Equal(t, customer.ID, *tx.CustomerID)

		assert.Equal(t, model.UnitStatusDispatched, env.unitStatus(t, item.UnitID))
	}

	assert.Equal(t, "0", env.batchQuantity(t, batch.ID))

	loaded, err := env.batches.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StockStateDepleted, loaded.StockState)

	t.Run("get by id", func(t *testing.T) {
		got, err := env.dispatch.GetDispatch(ctx, res.ID)
		require.NoError(t, err)
		assert.Equal(t, res.DispatchNo, got.DispatchNo)
		assert.Len(t, got.Items, 2)
	})

	t.Run("list", func(t *testing.T) {
		orders, total, err := env.dispatch.ListDispatches(ctx, 1, 20)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, orders, 1)
		assert.Equal(t, res.ID, orders[0].ID)
	})
}

func TestCreateDispatchValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("60"))
	roll := batch.Units[0]

	t.Run("unknown customer", func(t *testing.T) {
		_, err := env.dispatch.CreateDispatch(ctx, env.userID, CreateDispatchRequest{
			DispatchNo: "DSP-X",
			CustomerID: uuid.NewString(),
			InvoiceNo:  "INV-X",
			UnitIDs:    []string{roll.ID},
		})
		assert.Equal(t, apperror.CodeInvalidReference, apperror.CodeOf(err))
	})

	t.Run("duplicate unit ids", func(t *testing.T) {
		_, err := env.dispatch.CreateDispatch(ctx, env.userID, CreateDispatchRequest{
			DispatchNo: "DSP-X",
			CustomerID: customer.ID.String(),
			InvoiceNo:  "INV-X",
			UnitIDs:    []string{roll.ID, roll.ID},
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
	})

	t.Run("unknown unit", func(t *testing.T) {
		_, err := env.dispatch.CreateDispatch(ctx, env.userID, CreateDispatchRequest{
			DispatchNo: "DSP-X",
			CustomerID: customer.ID.String(),
			InvoiceNo:  "INV-X",
			UnitIDs:    []string{uuid.NewString()},
		})
		assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
	})
}

func TestCreateDispatchIsAtomic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("60"), rollUnit("40"))

	// First dispatch takes one roll out
	_, err := env.dispatch.CreateDispatch(ctx, env.userID, CreateDispatchRequest{
		DispatchNo: "DSP-1",
		CustomerID: customer.ID.String(),
		InvoiceNo:  "INV-1",
		UnitIDs:    []string{batch.Units[0].ID},
	})
	require.NoError(t, err)
	quantityAfterFirst := env.batchQuantity(t, batch.ID)

	// The second includes an already-dispatched unit and must change nothing
	_, err = env.dispatch.CreateDispatch(ctx, env.userID, CreateDispatchRequest{
		DispatchNo: "DSP-2",
		CustomerID: customer.ID.String(),
		InvoiceNo:  "INV-2",
		UnitIDs:    []string{batch.Units[1].ID, batch.Units[0].ID},
	})
	assert.Equal(t, apperror.CodeInsufficientStock, apperror.CodeOf(err))

	assert.Equal(t, model.UnitStatusAvailable, env.unitStatus(t, batch.Units[1].ID))
	assert.Equal(t, quantityAfterFirst, env.batchQuantity(t, batch.ID))

	_, total, err := env.dispatch.ListDispatches(ctx, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
}

func TestRevertFlipsDispatchStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("60"), rollUnit("40"))

	order, err := env.dispatch.CreateDispatch(ctx, env.userID, CreateDispatchRequest{
		DispatchNo: "DSP-2026-009",
		CustomerID: customer.ID.String(),
		InvoiceNo:  "INV-2026-009",
		UnitIDs:    []string{batch.Units[0].ID, batch.Units[1].ID},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	// Reverting one backing SALE leaves the order in place
	res, err := env.reverts.Revert(ctx, env.userID, []string{order.Items[0].TransactionID})
	require.NoError(t, err)
	require.Equal(t, 1, res.RevertedCount)

	got, err := env.dispatch.GetDispatch(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DispatchStatusCompleted, got.Status)

	// Reverting the last one flips it to REVERTED
	res, err = env.reverts.Revert(ctx, env.userID, []string{order.Items[1].TransactionID})
	require.NoError(t, err)
	require.Equal(t, 1, res.RevertedCount)

	got, err = env.dispatch.GetDispatch(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DispatchStatusReverted, got.Status)

	assert.Equal(t, model.UnitStatusAvailable, env.unitStatus(t, batch.Units[0].ID))
	assert.Equal(t, model.UnitStatusAvailable, env.unitStatus(t, batch.Units[1].ID))
	assert.Equal(t, "100", env.batchQuantity(t, batch.ID))
}
