package service

import (
	"context"
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditFailureDoesNotBlockMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	variant := env.seedVariant(t, model.UOMRollMeters)
	customer := env.seedCustomer(t)
	batch := env.createBatch(t, variant.ID.String(), rollUnit("100"))
	roll := unitOfType(t, batch, model.StockTypeFullRoll)

	// Break the audit sink: every audit insert now fails mid-transaction.
	// The savepoint in the audit repository must confine the failure so the
	// surrounding mutation still commits.
	require.NoError(t, env.db.Migrator().DropTable(&model.AuditLog{}))

	res, err := env.ledger.Apply(ctx, env.userID, ApplyTransactionRequest{
		Type:       model.TxTypeSale,
		BatchID:    batch.ID,
		UnitID:     roll.ID,
		CustomerID: customer.ID.String(),
		InvoiceNo:  "INV-NO-AUDIT",
	})
	require.NoError(t, err)

	// The ledger row, unit status and batch quantity all committed
	stored, err := env.txRepo.FindByID(ctx, uuid.MustParse(res.ID))
	require.NoError(t, err)
	assert.Equal(t, model.TxTypeSale, stored.Type)
	assert.Equal(t, model.UnitStatusDispatched, env.unitStatus(t, roll.ID))
	assert.Equal(t, "0", env.batchQuantity(t, batch.ID))

	t.Run("revert also survives a dead audit sink", func(t *testing.T) {
		revertRes, err := env.reverts.Revert(ctx, env.userID, []string{res.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, revertRes.RevertedCount)
		assert.Equal(t, model.UnitStatusAvailable, env.unitStatus(t, roll.ID))
		assert.Equal(t, "100", env.batchQuantity(t, batch.ID))
	})
}
