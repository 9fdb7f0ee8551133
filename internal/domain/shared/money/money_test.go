package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentRoundsToWholeFrancs(t *testing.T) {
	assert.Equal(t, int64(80000), Francs(100000).Percent(decimal.NewFromInt(80)).Amount)
	assert.Equal(t, int64(18), Francs(100).Percent(decimal.RequireFromString("18")).Amount)
	assert.Equal(t, int64(3), Francs(5).Percent(decimal.NewFromInt(50)).Amount)
	assert.True(t, Francs(0).Percent(decimal.NewFromInt(10)).IsZero())
}

func TestAddRejectsCurrencyMismatch(t *testing.T) {
	_, err := Francs(10).Add(Money{Amount: 1, Currency: "EUR"})
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := Francs(10).Add(Money{Amount: 5})
	require.NoError(t, err)
	assert.Equal(t, Francs(15), sum)
}

func TestNewValidatesCurrency(t *testing.T) {
	_, err := New(1, "CFA1")
	require.ErrorIs(t, err, ErrInvalidCurrency)

	m, err := New(1, "xof")
	require.NoError(t, err)
	assert.Equal(t, CFA, m.Currency)
}
