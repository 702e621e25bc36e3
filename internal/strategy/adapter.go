package strategy

import (
	"errors"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/onevault-finance/onevault/internal/types"
)

// Error definitions for adapter failures. The engine classifies anything
// wrapping these as an external venue failure, never as a state error.
var (
	// ErrInsufficientLiquidity is returned when the external venue rejects a
	// deposit outright.
	ErrInsufficientLiquidity = errors.New("strategy venue has insufficient liquidity")

	// ErrUnavailable is returned when the position cannot be queried or
	// operated on at all.
	ErrUnavailable = errors.New("strategy venue is unavailable")
)

// Adapter is the uniform interface to one yield position. This is the only
// surface through which the vault engine touches external capital.
//
// Valuation must be read-only: it reports the position's current fair value
// in deposit-asset base units without mutating venue state. WithdrawFrom is
// allowed to partially fill; it returns the amount actually recovered, which
// callers must not assume equals the request. Harvest is idempotent: claiming
// with nothing accrued returns a zero coin, not an error.
type Adapter interface {
	// Key returns the position key of the strategy slot this adapter serves.
	Key() types.PositionKey

	// Valuation returns the adapter's current fair value in deposit-asset
	// base units.
	Valuation() (sdkmath.Int, error)

	// DepositInto moves amount of the deposit asset into the position.
	DepositInto(amount sdkmath.Int) error

	// WithdrawFrom attempts to pull up to amount out of the position and
	// returns the amount actually recovered.
	WithdrawFrom(amount sdkmath.Int) (sdkmath.Int, error)

	// Harvest claims outstanding reward tokens for the given recipient and
	// returns the harvested coin.
	Harvest(recipient string) (sdk.Coin, error)
}
