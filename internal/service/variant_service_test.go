package service

import (
	"context"
	"testing"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariantCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.variants.CreateVariant(ctx, env.userID, VariantRequest{
		Code:   "HDPE-63-PN16",
		Name:   "HDPE pipe 63mm PN16",
		SizeMM: 63,
	})
	require.NoError(t, err)
	assert.Equal(t, model.UOMRollMeters, created.UnitOfMeasure) // Default
	assert.True(t, created.IsActive)

	t.Run("duplicate code is rejected", func(t *testing.T) {
		_, err := env.variants.CreateVariant(ctx, env.userID, VariantRequest{
			Code:   "HDPE-63-PN16",
			Name:   "another",
			SizeMM: 63,
		})
		assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
	})

	t.Run("update", func(t *testing.T) {
		updated, err := env.variants.UpdateVariant(ctx, env.userID, created.ID, VariantRequest{
			Code:          "HDPE-63-PN16",
			Name:          "HDPE pipe 63mm PN16 black",
			SizeMM:        63,
			Color:         "black",
			UnitOfMeasure: model.UOMPieces,
		})
		require.NoError(t, err)
		assert.Equal(t, "HDPE pipe 63mm PN16 black", updated.Name)
		assert.Equal(t, model.UOMPieces, updated.UnitOfMeasure)
	})

	t.Run("list by search", func(t *testing.T) {
		variants, total, err := env.variants.ListVariants(ctx, 1, 20, "HDPE-63")
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, variants, 1)
		assert.Equal(t, created.ID, variants[0].ID)
	})

	t.Run("mutations leave an audit trail", func(t *testing.T) {
		var count int64
		err := env.db.Model(&model.AuditLog{}).
			Where("entity_type = ? AND entity_id = ?", model.EntityVariant, created.ID).
			Count(&count).Error
		require.NoError(t, err)
		assert.EqualValues(t, 2, count) // Create + update
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, env.variants.DeleteVariant(ctx, env.userID, created.ID))

		_, total, err := env.variants.ListVariants(ctx, 1, 20, "")
		require.NoError(t, err)
		assert.EqualValues(t, 0, total)

		err = env.variants.DeleteVariant(ctx, env.userID, created.ID)
		assert.Equal(t, apperror.CodeNotFound, apperror.CodeOf(err))
	})
}
