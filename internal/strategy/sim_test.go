package strategy

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/onevault-finance/onevault/internal/types"
)

func newVenue() *SimVenue {
	return NewSimVenue(types.PositionKeyFor("sim", "sim", "usdc-usdt"), "ureward")
}

func TestSimDepositAndValuation(t *testing.T) {
	venue := newVenue()

	require.NoError(t, venue.DepositInto(sdkmath.NewInt(1000)))
	value, err := venue.Valuation()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1000), value)

	require.Error(t, venue.DepositInto(sdkmath.ZeroInt()))
}

func TestSimWithdrawCapsAtBalance(t *testing.T) {
	venue := newVenue()
	require.NoError(t, venue.DepositInto(sdkmath.NewInt(500)))

	recovered, err := venue.WithdrawFrom(sdkmath.NewInt(800))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(500), recovered)

	value, err := venue.Valuation()
	require.NoError(t, err)
	require.True(t, value.IsZero())
}

func TestSimWithdrawLimit(t *testing.T) {
	venue := newVenue()
	require.NoError(t, venue.DepositInto(sdkmath.NewInt(1000)))
	venue.SetWithdrawLimit(sdkmath.NewInt(300))

	recovered, err := venue.WithdrawFrom(sdkmath.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(300), recovered)

	venue.SetWithdrawLimit(sdkmath.Int{})
	recovered, err = venue.WithdrawFrom(sdkmath.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(700), recovered)
}

func TestSimUnavailable(t *testing.T) {
	venue := newVenue()
	require.NoError(t, venue.DepositInto(sdkmath.NewInt(100)))
	venue.SetUnavailable(true)

	_, err := venue.Valuation()
	require.ErrorIs(t, err, ErrUnavailable)
	_, err = venue.WithdrawFrom(sdkmath.NewInt(10))
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorIs(t, venue.DepositInto(sdkmath.NewInt(10)), ErrUnavailable)
	_, err = venue.Harvest("alice")
	require.ErrorIs(t, err, ErrUnavailable)

	venue.SetUnavailable(false)
	value, err := venue.Valuation()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(100), value)
}

func TestSimHarvestResets(t *testing.T) {
	venue := newVenue()
	venue.AccrueRewards(sdkmath.NewInt(250))

	claimed, err := venue.Harvest("alice")
	require.NoError(t, err)
	require.Equal(t, "ureward", claimed.Denom)
	require.Equal(t, sdkmath.NewInt(250), claimed.Amount)

	// A second harvest with no intervening accrual claims nothing.
	claimed, err = venue.Harvest("alice")
	require.NoError(t, err)
	require.True(t, claimed.Amount.IsZero())
}

func TestSimGainAndLoss(t *testing.T) {
	venue := newVenue()
	require.NoError(t, venue.DepositInto(sdkmath.NewInt(1000)))

	venue.ApplyGain(sdkmath.NewInt(100))
	value, err := venue.Valuation()
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(1100), value)

	venue.ApplyLoss(sdkmath.NewInt(2000))
	value, err = venue.Valuation()
	require.NoError(t, err)
	require.True(t, value.IsZero())
}
