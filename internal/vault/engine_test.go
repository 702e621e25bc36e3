package vault

import (
	"context"
	"fmt"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/onevault-finance/onevault/internal/allocation"
	"github.com/onevault-finance/onevault/internal/chain"
	"github.com/onevault-finance/onevault/internal/ledger"
	"github.com/onevault-finance/onevault/internal/strategy"
	"github.com/onevault-finance/onevault/internal/types"
)

const (
	adminAddr = "vault-admin"
	denom     = "uusdc"
)

func usdc(n int64) sdkmath.Int {
	return sdkmath.NewInt(n * 1_000_000)
}

func shareUnits(n int64) sdkmath.Int {
	shares := sdkmath.NewInt(n)
	return shares.Mul(sdkmath.NewIntWithDecimal(1, 18))
}

func testParams() Params {
	return Params{
		AdminAddress:    adminAddr,
		AssetDenom:      denom,
		AssetDecimals:   6,
		MinDeposit:      usdc(10),
		MaxDeposit:      usdc(10_000),
		MaxTotalDeposit: usdc(20_000),
		CooldownBlocks:  5,
		WithdrawFeeBps:  5,
		MaxSlippageBps:  50,
	}
}

type fixture struct {
	engine *Engine
	blocks *chain.ManualBlockSource
	venues []*strategy.SimVenue
	keys   []types.PositionKey
}

// newFixture builds an open vault with one strategy per allocation weight.
// Weights that sum to 10000 leave the vault ready for deposits.
func newFixture(t *testing.T, allocations ...uint32) *fixture {
	t.Helper()

	blocks := chain.NewManualBlockSource(100)
	engine, err := New(testParams(), blocks, nil)
	require.NoError(t, err)
	require.NoError(t, engine.EnableTokens(adminAddr, true, denom))

	f := &fixture{engine: engine, blocks: blocks}
	for i, bps := range allocations {
		platform := fmt.Sprintf("venue-%d", i)
		key := types.PositionKeyFor(platform, "amm", "usdc-usdt")
		venue := strategy.NewSimVenue(key, "ureward")
		engine.RegisterAdapter(venue)

		created, err := engine.CreateStrategy(adminAddr, platform, "amm", "usdc-usdt", "ureward", "1", "1", 0)
		require.NoError(t, err)
		require.Equal(t, key, created)
		require.NoError(t, engine.ActivateStrategy(adminAddr, key, bps))

		f.venues = append(f.venues, venue)
		f.keys = append(f.keys, key)
	}

	require.NoError(t, engine.ChangeStatus(adminAddr, types.StatusOpen))
	return f
}

func (f *fixture) deposit(t *testing.T, caller, recipient string, amount sdkmath.Int) sdkmath.Int {
	t.Helper()
	shares, err := f.engine.Deposit(context.Background(), caller, denom, recipient, amount)
	require.NoError(t, err)
	return shares
}

func eventsOfType(events []types.Event, kind types.EventType) []types.Event {
	var out []types.Event
	for _, event := range events {
		if event.Type == kind {
			out = append(out, event)
		}
	}
	return out
}

func TestGenesisDepositMintsOneToOne(t *testing.T) {
	f := newFixture(t, 5000, 2500, 2500)

	shares := f.deposit(t, "alice", "alice", usdc(7000))

	require.Equal(t, shareUnits(7000), shares)
	require.Equal(t, shareUnits(7000), f.engine.BalanceOf("alice"))
	require.Equal(t, shareUnits(7000), f.engine.TotalShares())
	require.Equal(t, usdc(7000), f.engine.CashOnHand())

	require.Equal(t, uint32(10000), f.engine.TotalAllocation())
	require.Equal(t, 3, f.engine.NumberOfStrategies())

	value, err := f.engine.TotalPoolValue()
	require.NoError(t, err)
	require.Equal(t, usdc(7000), value)

	deposits := eventsOfType(f.engine.RecentEvents(0), types.EventDeposit)
	require.Len(t, deposits, 1)
	require.Equal(t, "alice", deposits[0].Actor)
}

func TestRedeemAfterCooldown(t *testing.T) {
	f := newFixture(t, 5000, 2500, 2500)
	f.deposit(t, "alice", "alice", usdc(7000))
	f.blocks.Mine(5)

	net, err := f.engine.Redeem(context.Background(), "alice", "alice", shareUnits(3500))
	require.NoError(t, err)

	// 3500 USDC owed, less the 5 bps withdrawal fee of 1.75 USDC.
	require.Equal(t, sdkmath.NewInt(3_498_250_000), net)
	require.Equal(t, shareUnits(3500), f.engine.TotalShares())
	require.Equal(t, shareUnits(3500), f.engine.BalanceOf("alice"))

	redeems := eventsOfType(f.engine.RecentEvents(0), types.EventRedeem)
	require.Len(t, redeems, 1)
	require.Equal(t, net.String(), redeems[0].Amount)
	require.Equal(t, sdkmath.NewInt(1_750_000).String(), redeems[0].Fee)
}

func TestRedeemRejections(t *testing.T) {
	f := newFixture(t, 10000)
	shares := f.deposit(t, "alice", "alice", usdc(1000))

	// Redemption straight after the deposit is same-rate arbitrage.
	_, err := f.engine.Redeem(context.Background(), "alice", "alice", shares)
	require.ErrorIs(t, err, ErrWithdrawTooSoon)

	f.blocks.Mine(5)

	_, err = f.engine.Redeem(context.Background(), "alice", "alice", shares.AddRaw(1))
	require.ErrorIs(t, err, ledger.ErrInsufficientShares)

	_, err = f.engine.Redeem(context.Background(), "alice", "alice", sdkmath.ZeroInt())
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = f.engine.Redeem(context.Background(), "alice", "", shares)
	require.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestDepositPreconditions(t *testing.T) {
	f := newFixture(t, 10000)
	ctx := context.Background()

	_, err := f.engine.Deposit(ctx, "alice", "uatom", "alice", usdc(100))
	require.ErrorIs(t, err, ErrAssetNotEnabled)

	_, err = f.engine.Deposit(ctx, "alice", denom, "", usdc(100))
	require.ErrorIs(t, err, ErrInvalidRecipient)

	_, err = f.engine.Deposit(ctx, "alice", denom, "alice", usdc(9))
	require.ErrorIs(t, err, ErrDepositOutOfBounds)

	_, err = f.engine.Deposit(ctx, "alice", denom, "alice", usdc(10_001))
	require.ErrorIs(t, err, ErrDepositOutOfBounds)

	f.deposit(t, "alice", "alice", usdc(100))
	_, err = f.engine.Deposit(ctx, "alice", denom, "alice", usdc(100))
	require.ErrorIs(t, err, ErrDepositTooSoon)

	require.NoError(t, f.engine.ChangeStatus(adminAddr, types.StatusClosed))
	_, err = f.engine.Deposit(ctx, "bob", denom, "bob", usdc(100))
	require.ErrorIs(t, err, ErrVaultNotOpen)
}

func TestDepositRequiresCompleteAllocation(t *testing.T) {
	f := newFixture(t, 5000)

	_, err := f.engine.Deposit(context.Background(), "alice", denom, "alice", usdc(100))
	require.ErrorIs(t, err, ErrAllocationIncomplete)
}

func TestDepositCapBoundary(t *testing.T) {
	f := newFixture(t, 10000)
	f.deposit(t, "alice", "alice", usdc(5000))

	// Pin the cap one unit below what the next deposit would reach.
	require.NoError(t, f.engine.ChangeMaxDeposit(adminAddr, usdc(5500).SubRaw(1)))
	_, err := f.engine.Deposit(context.Background(), "bob", denom, "bob", usdc(500))
	require.ErrorIs(t, err, ErrDepositOutOfBounds)

	// Exactly at the cap succeeds.
	require.NoError(t, f.engine.ChangeMaxDeposit(adminAddr, usdc(5500)))
	f.deposit(t, "bob", "bob", usdc(500))

	value, err := f.engine.TotalPoolValue()
	require.NoError(t, err)
	require.Equal(t, usdc(5500), value)
}

func TestDepositToOtherRecipient(t *testing.T) {
	f := newFixture(t, 10000)

	shares := f.deposit(t, "alice", "bob", usdc(500))
	require.Equal(t, shares, f.engine.BalanceOf("bob"))
	require.True(t, f.engine.BalanceOf("alice").IsZero())

	// The cooldown marker follows the shares.
	_, err := f.engine.Redeem(context.Background(), "bob", "bob", shares)
	require.ErrorIs(t, err, ErrWithdrawTooSoon)

	f.blocks.Mine(5)
	_, err = f.engine.Redeem(context.Background(), "bob", "bob", shares)
	require.NoError(t, err)
}

func TestDelegatedRedeem(t *testing.T) {
	f := newFixture(t, 10000)
	f.deposit(t, "alice", "alice", usdc(1000))
	f.blocks.Mine(5)

	// Without an allowance the delegate is refused.
	_, err := f.engine.Redeem(context.Background(), "bob", "alice", shareUnits(100))
	require.ErrorIs(t, err, ledger.ErrInsufficientAllowance)

	require.NoError(t, f.engine.Approve("alice", "bob", shareUnits(600)))
	require.Equal(t, shareUnits(600), f.engine.Allowance("alice", "bob"))

	_, err = f.engine.Redeem(context.Background(), "bob", "alice", shareUnits(400))
	require.NoError(t, err)
	require.Equal(t, shareUnits(200), f.engine.Allowance("alice", "bob"))
	require.Equal(t, shareUnits(600), f.engine.BalanceOf("alice"))

	_, err = f.engine.Redeem(context.Background(), "bob", "alice", shareUnits(300))
	require.ErrorIs(t, err, ledger.ErrInsufficientAllowance)
}

func TestFeeExemptRedemption(t *testing.T) {
	f := newFixture(t, 10000)
	require.NoError(t, f.engine.WhitelistAddress(adminAddr, "alice", true))
	require.True(t, f.engine.FeeExempt("alice"))

	shares := f.deposit(t, "alice", "alice", usdc(1000))
	f.blocks.Mine(5)

	net, err := f.engine.Redeem(context.Background(), "alice", "alice", shares)
	require.NoError(t, err)
	require.Equal(t, usdc(1000), net)
}

func TestConservation(t *testing.T) {
	f := newFixture(t, 10000)

	deposited := usdc(4321)
	shares := f.deposit(t, "alice", "alice", deposited)
	f.blocks.Mine(5)

	net, err := f.engine.Redeem(context.Background(), "alice", "alice", shares)
	require.NoError(t, err)

	// Rounding down on both legs plus the fee keeps the payout strictly
	// below the deposit.
	require.True(t, net.LT(deposited))
	require.True(t, f.engine.TotalShares().IsZero())
}

func TestExcessiveSlippageRollsBack(t *testing.T) {
	f := newFixture(t, 10000)
	shares := f.deposit(t, "alice", "alice", usdc(1000))
	f.blocks.Mine(5)

	// The venue carries half the pool value but will barely release any of
	// it, so a full redemption cannot recover what the valuation promises.
	venue := f.venues[0]
	venue.ApplyGain(usdc(1000))
	venue.SetWithdrawLimit(usdc(1))

	_, err := f.engine.Redeem(context.Background(), "alice", "alice", shares)
	require.ErrorIs(t, err, ErrExcessiveSlippage)

	// Nothing moved: shares, cash and the venue balance are all intact.
	require.Equal(t, shares, f.engine.BalanceOf("alice"))
	require.Equal(t, shares, f.engine.TotalShares())
	require.Equal(t, usdc(1000), f.engine.CashOnHand())

	value, err := venue.Valuation()
	require.NoError(t, err)
	require.Equal(t, usdc(1000), value)
}

func TestSlippageWithinTolerancePays(t *testing.T) {
	f := newFixture(t, 10000)
	shares := f.deposit(t, "alice", "alice", usdc(1000))
	f.blocks.Mine(5)

	// Shortfall of 4 USDC on 2000 owed is 20 bps, within the 50 bps bound.
	venue := f.venues[0]
	venue.ApplyGain(usdc(1000))
	venue.SetWithdrawLimit(usdc(996))

	net, err := f.engine.Redeem(context.Background(), "alice", "alice", shares)
	require.NoError(t, err)

	recovered := usdc(1996)
	fee := recovered.MulRaw(5).QuoRaw(10_000)
	require.Equal(t, recovered.Sub(fee), net)
	require.True(t, f.engine.TotalShares().IsZero())

	// The fee stays behind as vault cash.
	require.Equal(t, fee, f.engine.CashOnHand())
}

func TestUnavailableVenueAbortsRedeem(t *testing.T) {
	f := newFixture(t, 5000, 5000)
	shares := f.deposit(t, "alice", "alice", usdc(1000))
	f.blocks.Mine(5)

	f.venues[1].SetUnavailable(true)

	_, err := f.engine.Redeem(context.Background(), "alice", "alice", shares)
	require.ErrorIs(t, err, strategy.ErrUnavailable)
	require.Equal(t, shares, f.engine.BalanceOf("alice"))
	require.Equal(t, usdc(1000), f.engine.CashOnHand())
}

func TestClaimRewards(t *testing.T) {
	f := newFixture(t, 5000, 5000)
	f.venues[0].AccrueRewards(sdkmath.NewInt(250))
	f.venues[1].AccrueRewards(sdkmath.NewInt(750))

	require.ErrorIs(t, f.engine.ClaimRewards("mallory", "mallory"), ErrUnauthorized)
	require.ErrorIs(t, f.engine.ClaimRewards(adminAddr, ""), ErrInvalidRecipient)

	require.NoError(t, f.engine.ClaimRewards(adminAddr, "treasury"))

	harvested := eventsOfType(f.engine.RecentEvents(0), types.EventRewardsWithdrawn)
	require.Len(t, harvested, 2)
	require.Equal(t, "treasury", harvested[0].Recipient)

	// A second sweep with no intervening accrual claims nothing.
	require.NoError(t, f.engine.ClaimRewards(adminAddr, "treasury"))
	harvested = eventsOfType(f.engine.RecentEvents(0), types.EventRewardsWithdrawn)
	require.Len(t, harvested, 2)
}

func TestAdminGating(t *testing.T) {
	f := newFixture(t, 10000)

	_, err := f.engine.CreateStrategy("mallory", "p", "q", "r", "", "1", "1", 0)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, f.engine.ActivateStrategy("mallory", f.keys[0], 1), ErrUnauthorized)
	_, err = f.engine.DeactivateStrategy("mallory", f.keys[0], "mallory")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, f.engine.EnableTokens("mallory", true, "uatom"), ErrUnauthorized)
	require.ErrorIs(t, f.engine.ChangeStatus("mallory", types.StatusClosed), ErrUnauthorized)
	require.ErrorIs(t, f.engine.ChangeMaxDeposit("mallory", usdc(1)), ErrUnauthorized)
	require.ErrorIs(t, f.engine.WhitelistAddress("mallory", "mallory", true), ErrUnauthorized)
}

func TestActivationRequiresClosedVault(t *testing.T) {
	f := newFixture(t, 5000)

	platform := "late-venue"
	key := types.PositionKeyFor(platform, "amm", "usdc-usdt")
	f.engine.RegisterAdapter(strategy.NewSimVenue(key, "ureward"))
	_, err := f.engine.CreateStrategy(adminAddr, platform, "amm", "usdc-usdt", "ureward", "2", "2", 0)
	require.NoError(t, err)

	// The vault is open; structural changes must wait.
	require.ErrorIs(t, f.engine.ActivateStrategy(adminAddr, key, 5000), ErrVaultNotClosed)
	_, err = f.engine.DeactivateStrategy(adminAddr, f.keys[0], "treasury")
	require.ErrorIs(t, err, ErrVaultNotClosed)

	require.NoError(t, f.engine.ChangeStatus(adminAddr, types.StatusClosed))
	require.NoError(t, f.engine.ActivateStrategy(adminAddr, key, 5000))
	require.True(t, f.engine.IsActive(key))
	require.Equal(t, uint32(10000), f.engine.TotalAllocation())
}

func TestActivationErrors(t *testing.T) {
	f := newFixture(t, 5000)
	require.NoError(t, f.engine.ChangeStatus(adminAddr, types.StatusClosed))

	// No adapter registered for an unknown key.
	ghost := types.PositionKeyFor("ghost", "amm", "usdc-usdt")
	require.ErrorIs(t, f.engine.ActivateStrategy(adminAddr, ghost, 1000), ErrAdapterMissing)

	require.ErrorIs(t, f.engine.ActivateStrategy(adminAddr, f.keys[0], 1000), allocation.ErrAlreadyActive)

	platform := "overflow-venue"
	key := types.PositionKeyFor(platform, "amm", "usdc-usdt")
	f.engine.RegisterAdapter(strategy.NewSimVenue(key, "ureward"))
	_, err := f.engine.CreateStrategy(adminAddr, platform, "amm", "usdc-usdt", "ureward", "3", "3", 0)
	require.NoError(t, err)
	require.ErrorIs(t, f.engine.ActivateStrategy(adminAddr, key, 5001), allocation.ErrAllocationOverflow)
}

func TestForcedLossDeactivation(t *testing.T) {
	f := newFixture(t, 10000)
	f.deposit(t, "alice", "alice", usdc(1000))

	// Value still sits in the venue when the admin pulls the plug.
	f.venues[0].ApplyGain(usdc(400))
	require.NoError(t, f.engine.ChangeStatus(adminAddr, types.StatusClosed))

	drained, err := f.engine.DeactivateStrategy(adminAddr, f.keys[0], "treasury")
	require.NoError(t, err)
	require.Equal(t, usdc(400), drained)

	require.False(t, f.engine.IsActive(f.keys[0]))
	require.True(t, f.engine.HasBeenCreated(f.keys[0]))
	require.Zero(t, f.engine.TotalAllocation())

	value, err := f.venues[0].Valuation()
	require.NoError(t, err)
	require.True(t, value.IsZero())

	drainEvents := eventsOfType(f.engine.RecentEvents(0), types.EventStrategyDeactivated)
	require.Len(t, drainEvents, 1)
	require.Equal(t, "treasury", drainEvents[0].Recipient)

	// With the allocation now incomplete, reopening does not readmit flow.
	require.NoError(t, f.engine.ChangeStatus(adminAddr, types.StatusOpen))
	f.blocks.Mine(5)
	_, err = f.engine.Deposit(context.Background(), "bob", denom, "bob", usdc(100))
	require.ErrorIs(t, err, ErrAllocationIncomplete)
}

func TestCalculatePosition(t *testing.T) {
	f := newFixture(t, 10000)
	f.deposit(t, "alice", "alice", usdc(1000))

	position, err := f.engine.CalculatePosition("alice")
	require.NoError(t, err)
	require.Equal(t, usdc(1000), position)

	// A 10% pool gain is reflected pro rata, before fees.
	f.venues[0].ApplyGain(usdc(100))
	position, err = f.engine.CalculatePosition("alice")
	require.NoError(t, err)
	require.Equal(t, usdc(1100), position)

	none, err := f.engine.CalculatePosition("stranger")
	require.NoError(t, err)
	require.True(t, none.IsZero())
}

func TestTokenDisable(t *testing.T) {
	f := newFixture(t, 10000)
	require.True(t, f.engine.TokenEnabled(denom))

	require.NoError(t, f.engine.EnableTokens(adminAddr, false, denom))
	require.False(t, f.engine.TokenEnabled(denom))

	_, err := f.engine.Deposit(context.Background(), "alice", denom, "alice", usdc(100))
	require.ErrorIs(t, err, ErrAssetNotEnabled)
}

func TestStatusChangeEvents(t *testing.T) {
	f := newFixture(t, 10000)

	require.NoError(t, f.engine.ChangeStatus(adminAddr, types.StatusClosed))
	// Setting the same status again is a no-op, not an event.
	require.NoError(t, f.engine.ChangeStatus(adminAddr, types.StatusClosed))

	changes := eventsOfType(f.engine.RecentEvents(0), types.EventStatusChanged)
	require.Len(t, changes, 2) // fixture open + close
	require.Equal(t, types.StatusClosed.String(), changes[1].Note)

	require.Error(t, f.engine.ChangeStatus(adminAddr, types.VaultStatus(9)))
}
