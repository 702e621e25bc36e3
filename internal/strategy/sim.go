package strategy

import (
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/onevault-finance/onevault/internal/logger"
	"github.com/onevault-finance/onevault/internal/types"
)

// SimVenue is an in-process strategy adapter backed by nothing but its own
// bookkeeping. It stands in for a real AMM position in tests and dry runs:
// deposits grow the position, withdrawals can be capped to force partial
// fills, and gains/losses can be injected to move the valuation.
type SimVenue struct {
	mu sync.Mutex

	key         types.PositionKey
	rewardDenom string

	balance        sdkmath.Int // current fair value in deposit-asset base units
	withdrawLimit  sdkmath.Int // max total the venue will honor per withdrawal, nil = unlimited
	pendingRewards sdkmath.Int // accrued but unharvested reward base units
	unavailable    bool

	logger zerolog.Logger
}

// NewSimVenue creates a simulated venue for the given strategy slot.
func NewSimVenue(key types.PositionKey, rewardDenom string) *SimVenue {
	return &SimVenue{
		key:            key,
		rewardDenom:    rewardDenom,
		balance:        sdkmath.ZeroInt(),
		pendingRewards: sdkmath.ZeroInt(),
		logger:         logger.GetForComponent("sim_venue"),
	}
}

// Key returns the position key this venue serves.
func (s *SimVenue) Key() types.PositionKey {
	return s.key
}

// Valuation reports the venue's current fair value. Read-only.
func (s *SimVenue) Valuation() (sdkmath.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return sdkmath.ZeroInt(), fmt.Errorf("valuation of %s: %w", s.key, ErrUnavailable)
	}
	return s.balance, nil
}

// DepositInto moves amount into the position.
func (s *SimVenue) DepositInto(amount sdkmath.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return fmt.Errorf("deposit into %s: %w", s.key, ErrUnavailable)
	}
	if amount.IsNil() || !amount.IsPositive() {
		return fmt.Errorf("deposit into %s: %w", s.key, ErrInsufficientLiquidity)
	}
	s.balance = s.balance.Add(amount)
	s.logger.Debug().Str("key", string(s.key)).Str("amount", amount.String()).Msg("Simulated deposit")
	return nil
}

// WithdrawFrom pulls up to amount out of the position; the fill is capped by
// the venue balance and, if set, the per-withdrawal limit.
func (s *SimVenue) WithdrawFrom(amount sdkmath.Int) (sdkmath.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return sdkmath.ZeroInt(), fmt.Errorf("withdraw from %s: %w", s.key, ErrUnavailable)
	}
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("withdraw from %s: negative request", s.key)
	}
	recovered := sdkmath.MinInt(amount, s.balance)
	if !s.withdrawLimit.IsNil() {
		recovered = sdkmath.MinInt(recovered, s.withdrawLimit)
	}
	s.balance = s.balance.Sub(recovered)
	s.logger.Debug().
		Str("key", string(s.key)).
		Str("requested", amount.String()).
		Str("recovered", recovered.String()).
		Msg("Simulated withdrawal")
	return recovered, nil
}

// Harvest claims accrued rewards. A second call with no intervening accrual
// returns a zero coin.
func (s *SimVenue) Harvest(recipient string) (sdk.Coin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return sdk.Coin{}, fmt.Errorf("harvest %s: %w", s.key, ErrUnavailable)
	}
	claimed := s.pendingRewards
	s.pendingRewards = sdkmath.ZeroInt()
	s.logger.Debug().
		Str("key", string(s.key)).
		Str("recipient", recipient).
		Str("claimed", claimed.String()).
		Msg("Simulated harvest")
	return sdk.Coin{Denom: s.rewardDenom, Amount: claimed}, nil
}

// AccrueRewards adds unharvested rewards to the venue.
func (s *SimVenue) AccrueRewards(amount sdkmath.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingRewards = s.pendingRewards.Add(amount)
}

// ApplyGain grows the position value, simulating yield.
func (s *SimVenue) ApplyGain(amount sdkmath.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = s.balance.Add(amount)
}

// ApplyLoss shrinks the position value, flooring at zero.
func (s *SimVenue) ApplyLoss(amount sdkmath.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = sdkmath.MaxInt(s.balance.Sub(amount), sdkmath.ZeroInt())
}

// SetWithdrawLimit caps every future withdrawal at limit. Pass a nil Int to
// remove the cap.
func (s *SimVenue) SetWithdrawLimit(limit sdkmath.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withdrawLimit = limit
}

// SetUnavailable toggles hard venue failure for every adapter call.
func (s *SimVenue) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}
