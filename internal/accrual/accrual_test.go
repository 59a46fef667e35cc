package accrual

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrowthFactorLinear(t *testing.T) {
	rate := uint256.NewInt(50_000_000_000) // 5e10 parts per Scale per time unit

	factor, err := GrowthFactor(rate, 2)
	require.NoError(t, err)

	// Scale + 5e10 * 2 = 1e18 + 1e11
	expected := uint256.MustFromDecimal("1000000100000000000")
	assert.Equal(t, expected, factor)
}

func TestGrowthFactorZeroElapsed(t *testing.T) {
	factor, err := GrowthFactor(uint256.NewInt(123), 0)
	require.NoError(t, err)
	assert.Equal(t, Scale, factor)
}

func TestGrowthFactorZeroRate(t *testing.T) {
	factor, err := GrowthFactor(uint256.NewInt(0), 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, Scale, factor)
}

func TestEffectiveBalance(t *testing.T) {
	// 10 whole units of principal at rate 5e10 for 2 time units earns
	// 10 * 5e10 * 2 = 1e12 parts, i.e. 10*1e11 on top of 10e18.
	principal := uint256.MustFromDecimal("10000000000000000000")
	rate := uint256.NewInt(50_000_000_000)

	balance, err := EffectiveBalance(principal, rate, 2)
	require.NoError(t, err)

	expected := uint256.MustFromDecimal("10000001000000000000")
	assert.Equal(t, expected, balance)
}

func TestEffectiveBalanceNeverBelowPrincipal(t *testing.T) {
	principal := uint256.MustFromDecimal("123456789")
	rate := uint256.NewInt(1)

	for _, elapsed := range []uint64{0, 1, 100, 1 << 40} {
		balance, err := EffectiveBalance(principal, rate, elapsed)
		require.NoError(t, err)
		assert.False(t, balance.Lt(principal), "elapsed=%d", elapsed)
	}
}

func TestGrowthFactorOverflow(t *testing.T) {
	maxRate := new(uint256.Int).SetAllOne()

	_, err := GrowthFactor(maxRate, 2)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestEffectiveBalanceOverflow(t *testing.T) {
	principal := new(uint256.Int).SetAllOne()
	rate := uint256.NewInt(1)

	_, err := EffectiveBalance(principal, rate, 1)
	assert.ErrorIs(t, err, ErrOverflow)
}
