package vault

import (
	sdkmath "cosmossdk.io/math"

	"github.com/onevault-finance/onevault/internal/types"
)

// Read-only accessors. Each takes the engine lock for a consistent read and
// never calls out except where noted.

// Status reports whether the vault is open or closed.
func (e *Engine) Status() types.VaultStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// CashOnHand returns the undeployed asset balance held by the vault.
func (e *Engine) CashOnHand() sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cash
}

// TotalPoolValue returns cash plus live strategy valuations. This reads every
// active adapter.
func (e *Engine) TotalPoolValue() (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalPoolValue()
}

// TotalShares returns the outstanding share supply.
func (e *Engine) TotalShares() sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.TotalSupply()
}

// BalanceOf returns owner's share balance.
func (e *Engine) BalanceOf(owner string) sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.BalanceOf(owner)
}

// Allowance returns the delegated share allowance from owner to spender.
func (e *Engine) Allowance(owner, spender string) sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Allowance(owner, spender)
}

// CalculatePosition values owner's shares at the current exchange rate, in
// asset base units before any withdrawal fee.
func (e *Engine) CalculatePosition(owner string) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	shares := e.ledger.BalanceOf(owner)
	if shares.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	totalValue, err := e.totalPoolValue()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return e.ledger.AssetsOwed(shares, totalValue)
}

// TotalAllocation returns the sum of active allocation weights in bps.
func (e *Engine) TotalAllocation() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.TotalBps()
}

// NumberOfStrategies returns the count of active strategies.
func (e *Engine) NumberOfStrategies() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.ActiveCount()
}

// StrategyAt returns the active strategy key at position i in activation
// order.
func (e *Engine) StrategyAt(i int) (types.PositionKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.KeyAt(i)
}

// IndexOf returns the activation-order index of key, if active.
func (e *Engine) IndexOf(key types.PositionKey) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.IndexOf(key)
}

// AllocationOf returns the allocation weight of key in bps, zero when
// inactive.
func (e *Engine) AllocationOf(key types.PositionKey) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.AllocationOf(key)
}

// IsActive reports whether key currently carries capital flow.
func (e *Engine) IsActive(key types.PositionKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.IsActive(key)
}

// HasBeenCreated reports whether key has ever been registered.
func (e *Engine) HasBeenCreated(key types.PositionKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.HasBeenCreated(key)
}

// Strategies returns every registered strategy record, active or not.
func (e *Engine) Strategies() []types.StrategyRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.table.Records()
}

// TokenEnabled reports whether denom is accepted for deposits.
func (e *Engine) TokenEnabled(denom string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabledTokens[denom]
}

// FeeExempt reports whether address is whitelisted out of the withdrawal fee.
func (e *Engine) FeeExempt(address string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.feeExempt[address]
}

// MaxTotalDeposit returns the current aggregate pool-value cap.
func (e *Engine) MaxTotalDeposit() sdkmath.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.MaxTotalDeposit
}

// RecentEvents returns up to n of the most recent vault events, newest last.
func (e *Engine) RecentEvents(n int) []types.Event {
	return e.events.Recent(n)
}
