package utils

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestAssetToShareUnits(t *testing.T) {
	// 7000 USDC (6 decimals) at the genesis rate maps to 7000e18 share units.
	amount := sdkmath.NewInt(7_000_000_000)
	shares, err := AssetToShareUnits(amount, 6)
	require.NoError(t, err)

	expected, ok := sdkmath.NewIntFromString("7000000000000000000000")
	require.True(t, ok)
	require.Equal(t, expected, shares)
}

func TestAssetToShareUnitsEighteenDecimals(t *testing.T) {
	amount := sdkmath.NewInt(12345)
	shares, err := AssetToShareUnits(amount, 18)
	require.NoError(t, err)
	require.Equal(t, amount, shares)
}

func TestShareToAssetUnitsTruncates(t *testing.T) {
	// 1e12 - 1 share units is just below one base unit of a 6-decimal asset.
	shares := sdkmath.NewInt(999_999_999_999)
	assets, err := ShareToAssetUnits(shares, 6)
	require.NoError(t, err)
	require.True(t, assets.IsZero())

	assets, err = ShareToAssetUnits(shares.AddRaw(1), 6)
	require.NoError(t, err)
	require.Equal(t, sdkmath.OneInt(), assets)
}

func TestScalingRoundTrip(t *testing.T) {
	amount := sdkmath.NewInt(42_000_017)
	shares, err := AssetToShareUnits(amount, 6)
	require.NoError(t, err)
	back, err := ShareToAssetUnits(shares, 6)
	require.NoError(t, err)
	require.Equal(t, amount, back)
}

func TestScalingRejectsBadInput(t *testing.T) {
	_, err := AssetToShareUnits(sdkmath.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidDecimals)

	_, err = AssetToShareUnits(sdkmath.NewInt(1), -1)
	require.ErrorIs(t, err, ErrInvalidDecimals)

	_, err = AssetToShareUnits(sdkmath.Int{}, 6)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = ShareToAssetUnits(sdkmath.NewInt(-5), 6)
	require.ErrorIs(t, err, ErrAmountNegative)
}

func TestApplyBps(t *testing.T) {
	// The 5 bps withdrawal fee on 5000 USDC is exactly 2.5 USDC.
	fee, err := ApplyBps(sdkmath.NewInt(5_000_000_000), 5)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(2_500_000), fee)

	full, err := ApplyBps(sdkmath.NewInt(777), MaxBps)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(777), full)

	zero, err := ApplyBps(sdkmath.NewInt(777), 0)
	require.NoError(t, err)
	require.True(t, zero.IsZero())
}

func TestApplyBpsFloors(t *testing.T) {
	// 9999 * 5 / 10000 = 4.9995, floored to 4.
	out, err := ApplyBps(sdkmath.NewInt(9_999), 5)
	require.NoError(t, err)
	require.Equal(t, sdkmath.NewInt(4), out)
}

func TestApplyBpsRejectsOverflow(t *testing.T) {
	_, err := ApplyBps(sdkmath.NewInt(1), MaxBps+1)
	require.ErrorIs(t, err, ErrInvalidBps)
}
