package vault

import (
	sdkmath "cosmossdk.io/math"

	"github.com/onevault-finance/onevault/internal/utils"
)

// Policy is the stateless fee and slippage computation. It owns no vault
// state; the engine passes in whether the redeeming address is fee-exempt.
type Policy struct {
	// WithdrawFeeBps is the flat withdrawal fee in basis points.
	WithdrawFeeBps uint32
	// MaxSlippageBps bounds the shortfall between theoretical owed amount and
	// actually recovered amount, in basis points.
	MaxSlippageBps uint32
}

// FeeFor returns the withdrawal fee on a recovered amount, floored, or zero
// for fee-exempt addresses.
func (p Policy) FeeFor(recovered sdkmath.Int, exempt bool) sdkmath.Int {
	if exempt {
		return sdkmath.ZeroInt()
	}
	fee, err := utils.ApplyBps(recovered, p.WithdrawFeeBps)
	if err != nil {
		return sdkmath.ZeroInt()
	}
	return fee
}

// SlippageFloor returns the minimum acceptable recovered amount for a
// theoretical owed amount: owed - floor(owed * MaxSlippageBps / 10000).
func (p Policy) SlippageFloor(owed sdkmath.Int) sdkmath.Int {
	tolerance, err := utils.ApplyBps(owed, p.MaxSlippageBps)
	if err != nil {
		return owed
	}
	return owed.Sub(tolerance)
}

// WithinTolerance reports whether a recovered amount satisfies the slippage
// bound for the given theoretical owed amount.
func (p Policy) WithinTolerance(owed, recovered sdkmath.Int) bool {
	return recovered.GTE(p.SlippageFloor(owed))
}
