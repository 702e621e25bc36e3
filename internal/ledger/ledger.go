/*

The share ledger tracks proportional ownership of the pooled capital: per
depositor share balances, delegated allowances, the total share supply, and
the per-depositor last-deposit marker the cooldown checks read.

Exchange-rate math is single-floor pro-rata: deposit minting and redemption
payouts both truncate, so rounding dust always stays with the pool.

The ledger is not internally synchronized; the vault engine serializes every
state-changing operation.

*/

package ledger

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/onevault-finance/onevault/internal/utils"
)

// Error definitions for ledger failures.
var (
	ErrInvalidAmount         = errors.New("amount is invalid")
	ErrInsufficientShares    = errors.New("share balance is insufficient")
	ErrInsufficientAllowance = errors.New("delegated allowance is insufficient")
	ErrNoSupply              = errors.New("share supply is zero")
	ErrValuelessSupply       = errors.New("pool value is zero while shares are outstanding")
)

// Ledger is the in-memory share book.
type Ledger struct {
	assetDecimals int

	balances    map[string]sdkmath.Int
	allowances  map[string]map[string]sdkmath.Int // owner -> spender -> shares
	lastDeposit map[string]uint64                 // owner -> block height of last deposit
	totalSupply sdkmath.Int
}

// New returns an empty ledger for a deposit asset with the given decimals.
func New(assetDecimals int) *Ledger {
	return &Ledger{
		assetDecimals: assetDecimals,
		balances:      make(map[string]sdkmath.Int),
		allowances:    make(map[string]map[string]sdkmath.Int),
		lastDeposit:   make(map[string]uint64),
		totalSupply:   sdkmath.ZeroInt(),
	}
}

// SharesToMint computes the shares minted for a deposit of amount (asset base
// units) against the pool value before the deposit. The first deposit
// establishes the 1:1 genesis rate; later deposits mint
// floor(amount * totalSupply / totalPoolValue).
func (l *Ledger) SharesToMint(amount, totalPoolValue sdkmath.Int) (sdkmath.Int, error) {
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: deposit amount must be positive", ErrInvalidAmount)
	}
	if l.totalSupply.IsZero() {
		return utils.AssetToShareUnits(amount, l.assetDecimals)
	}
	if totalPoolValue.IsNil() || !totalPoolValue.IsPositive() {
		// Outstanding shares with no backing value: minting at this rate
		// would be unbounded, so the deposit is refused.
		return sdkmath.ZeroInt(), ErrValuelessSupply
	}
	return amount.Mul(l.totalSupply).Quo(totalPoolValue), nil
}

// AssetsOwed computes the asset base units owed for redeeming shares against
// the current pool value, before any shares are burned:
// floor(shares * totalPoolValue / totalSupply).
func (l *Ledger) AssetsOwed(shares, totalPoolValue sdkmath.Int) (sdkmath.Int, error) {
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: share amount must be positive", ErrInvalidAmount)
	}
	if l.totalSupply.IsZero() {
		return sdkmath.ZeroInt(), ErrNoSupply
	}
	if totalPoolValue.IsNil() || !totalPoolValue.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: nothing to redeem against", ErrInvalidAmount)
	}
	return shares.Mul(totalPoolValue).Quo(l.totalSupply), nil
}

// Mint credits shares to a recipient and grows the total supply.
func (l *Ledger) Mint(recipient string, shares sdkmath.Int) error {
	if shares.IsNil() || !shares.IsPositive() {
		return fmt.Errorf("%w: mint amount must be positive", ErrInvalidAmount)
	}
	l.balances[recipient] = l.balanceOf(recipient).Add(shares)
	l.totalSupply = l.totalSupply.Add(shares)
	return nil
}

// Burn removes shares from an owner and shrinks the total supply.
func (l *Ledger) Burn(owner string, shares sdkmath.Int) error {
	if shares.IsNil() || !shares.IsPositive() {
		return fmt.Errorf("%w: burn amount must be positive", ErrInvalidAmount)
	}
	balance := l.balanceOf(owner)
	if balance.LT(shares) {
		return fmt.Errorf("%w: balance %s, burn %s", ErrInsufficientShares, balance, shares)
	}
	l.balances[owner] = balance.Sub(shares)
	l.totalSupply = l.totalSupply.Sub(shares)
	return nil
}

// BalanceOf returns the share balance of an owner.
func (l *Ledger) BalanceOf(owner string) sdkmath.Int {
	return l.balanceOf(owner)
}

func (l *Ledger) balanceOf(owner string) sdkmath.Int {
	if balance, exists := l.balances[owner]; exists {
		return balance
	}
	return sdkmath.ZeroInt()
}

// TotalSupply returns the recorded total share supply.
func (l *Ledger) TotalSupply() sdkmath.Int {
	return l.totalSupply
}

// Approve sets the delegated allowance from owner to spender.
func (l *Ledger) Approve(owner, spender string, shares sdkmath.Int) error {
	if shares.IsNil() || shares.IsNegative() {
		return fmt.Errorf("%w: allowance cannot be negative", ErrInvalidAmount)
	}
	if _, exists := l.allowances[owner]; !exists {
		l.allowances[owner] = make(map[string]sdkmath.Int)
	}
	l.allowances[owner][spender] = shares
	return nil
}

// Allowance returns the remaining delegated allowance from owner to spender.
func (l *Ledger) Allowance(owner, spender string) sdkmath.Int {
	if spenders, exists := l.allowances[owner]; exists {
		if allowance, ok := spenders[spender]; ok {
			return allowance
		}
	}
	return sdkmath.ZeroInt()
}

// SpendAllowance decrements the delegated allowance from owner to spender.
func (l *Ledger) SpendAllowance(owner, spender string, shares sdkmath.Int) error {
	if shares.IsNil() || !shares.IsPositive() {
		return fmt.Errorf("%w: spend amount must be positive", ErrInvalidAmount)
	}
	allowance := l.Allowance(owner, spender)
	if allowance.LT(shares) {
		return fmt.Errorf("%w: allowance %s, spend %s", ErrInsufficientAllowance, allowance, shares)
	}
	l.allowances[owner][spender] = allowance.Sub(shares)
	return nil
}

// NoteDeposit records the block height of an owner's latest deposit.
func (l *Ledger) NoteDeposit(owner string, height uint64) {
	l.lastDeposit[owner] = height
}

// LastDepositHeight returns the height of the owner's latest deposit, and
// whether the owner has ever deposited.
func (l *Ledger) LastDepositHeight(owner string) (uint64, bool) {
	height, exists := l.lastDeposit[owner]
	return height, exists
}
