package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBatchStockState(t *testing.T) {
	cases := []struct {
		name    string
		status  string
		initial string
		current string
		want    string
	}{
		{"untouched", BatchStatusActive, "100", "100", StockStateActive},
		{"partially consumed", BatchStatusActive, "100", "40", StockStatePartiallyConsumed},
		{"depleted", BatchStatusActive, "100", "0", StockStateDepleted},
		{"reverted wins over quantity", BatchStatusReverted, "100", "40", StockStateReverted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := Batch{
				Status:          tc.status,
				InitialQuantity: decimal.RequireFromString(tc.initial),
				CurrentQuantity: decimal.RequireFromString(tc.current),
			}
			assert.Equal(t, tc.want, b.StockState())
		})
	}
}

func TestStockUnitQuantity(t *testing.T) {
	roll := NewRollUnit(uuid.New(), StockTypeFullRoll, decimal.RequireFromString("87.5"))
	assert.Equal(t, "87.5", roll.Quantity().String())

	bundle := NewPieceUnit(uuid.New(), StockTypeBundle, 25)
	assert.Equal(t, "25", bundle.Quantity().String())

	var empty StockUnit
	assert.True(t, empty.Quantity().IsZero())
}

func TestIsRollType(t *testing.T) {
	assert.True(t, IsRollType(StockTypeFullRoll))
	assert.True(t, IsRollType(StockTypeCutRoll))
	assert.False(t, IsRollType(StockTypeBundle))
	assert.False(t, IsRollType(StockTypeSparePieces))
}
