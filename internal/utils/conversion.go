/*
This file contains common utility functions for amount handling: scaling
between deposit-asset base units and 18-decimal share units, and basis-point
arithmetic. All accounting paths stay on sdkmath.Int; floats never enter.
*/

package utils

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
)

// ShareDecimals is the fixed precision of vault shares.
const ShareDecimals = 18

// MaxBps is the basis-point denominator (100%).
const MaxBps uint32 = 10_000

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidDecimals = errors.New("decimals are invalid")
	ErrAmountNil       = errors.New("amount is nil")
	ErrAmountNegative  = errors.New("amount is negative")
	ErrInvalidBps      = errors.New("basis points are invalid")
)

// pow10 returns 10^n as an sdkmath.Int.
func pow10(n int) sdkmath.Int {
	factor := sdkmath.OneInt()
	ten := sdkmath.NewInt(10)
	for i := 0; i < n; i++ {
		factor = factor.Mul(ten)
	}
	return factor
}

// AssetToShareUnits scales an amount of deposit-asset base units (with the
// given decimals) up to 18-decimal share units. This defines the 1:1 genesis
// exchange rate: depositing 7000 USDC (6 decimals) mints 7000e18 shares.
func AssetToShareUnits(amount sdkmath.Int, assetDecimals int) (sdkmath.Int, error) {
	if assetDecimals < 0 || assetDecimals > ShareDecimals {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidDecimals, assetDecimals, ShareDecimals)
	}
	if amount.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return amount.Mul(pow10(ShareDecimals - assetDecimals)), nil
}

// ShareToAssetUnits scales 18-decimal share units down to deposit-asset base
// units, truncating toward zero.
func ShareToAssetUnits(amount sdkmath.Int, assetDecimals int) (sdkmath.Int, error) {
	if assetDecimals < 0 || assetDecimals > ShareDecimals {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidDecimals, assetDecimals, ShareDecimals)
	}
	if amount.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return amount.Quo(pow10(ShareDecimals - assetDecimals)), nil
}

// ApplyBps returns floor(amount * bps / 10000). Used for the withdrawal fee
// and the slippage floor.
func ApplyBps(amount sdkmath.Int, bps uint32) (sdkmath.Int, error) {
	if bps > MaxBps {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be at most %d)", ErrInvalidBps, bps, MaxBps)
	}
	if amount.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	return amount.Mul(sdkmath.NewInt(int64(bps))).Quo(sdkmath.NewInt(int64(MaxBps))), nil
}
