package ledger

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func usdc(n int64) sdkmath.Int {
	return sdkmath.NewInt(n * 1_000_000)
}

func TestGenesisRate(t *testing.T) {
	l := New(6)

	shares, err := l.SharesToMint(usdc(7000), sdkmath.ZeroInt())
	require.NoError(t, err)

	// At genesis, 7000 USDC maps 1:1 into 18-decimal share units.
	expected, ok := sdkmath.NewIntFromString("7000000000000000000000")
	require.True(t, ok)
	require.Equal(t, expected, shares)
}

func TestProRataMintAfterGain(t *testing.T) {
	l := New(6)

	first, err := l.SharesToMint(usdc(1000), sdkmath.ZeroInt())
	require.NoError(t, err)
	require.NoError(t, l.Mint("alice", first))

	// Pool doubled in value; the same deposit now mints half the shares.
	second, err := l.SharesToMint(usdc(1000), usdc(2000))
	require.NoError(t, err)
	require.Equal(t, first.QuoRaw(2), second)
}

func TestAssetsOwedProRata(t *testing.T) {
	l := New(6)

	shares, err := l.SharesToMint(usdc(5000), sdkmath.ZeroInt())
	require.NoError(t, err)
	require.NoError(t, l.Mint("alice", shares))

	// Full redemption at an unchanged pool value pays back the deposit.
	owed, err := l.AssetsOwed(shares, usdc(5000))
	require.NoError(t, err)
	require.Equal(t, usdc(5000), owed)

	// Half the shares after a 10% gain: floor(half * 5500).
	owed, err = l.AssetsOwed(shares.QuoRaw(2), usdc(5500))
	require.NoError(t, err)
	require.Equal(t, usdc(2750), owed)
}

func TestSharesToMintRejectsValuelessSupply(t *testing.T) {
	l := New(6)
	require.NoError(t, l.Mint("alice", sdkmath.NewInt(1000)))

	_, err := l.SharesToMint(usdc(100), sdkmath.ZeroInt())
	require.ErrorIs(t, err, ErrValuelessSupply)
}

func TestAssetsOwedRequiresSupply(t *testing.T) {
	l := New(6)
	_, err := l.AssetsOwed(sdkmath.NewInt(100), usdc(100))
	require.ErrorIs(t, err, ErrNoSupply)
}

func TestSupplyMatchesBalances(t *testing.T) {
	l := New(6)

	require.NoError(t, l.Mint("alice", sdkmath.NewInt(600)))
	require.NoError(t, l.Mint("bob", sdkmath.NewInt(400)))
	require.Equal(t, sdkmath.NewInt(1000), l.TotalSupply())

	require.NoError(t, l.Burn("alice", sdkmath.NewInt(100)))
	require.Equal(t, sdkmath.NewInt(900), l.TotalSupply())
	require.Equal(t, sdkmath.NewInt(500), l.BalanceOf("alice"))
	require.Equal(t, sdkmath.NewInt(400), l.BalanceOf("bob"))

	sum := l.BalanceOf("alice").Add(l.BalanceOf("bob"))
	require.Equal(t, l.TotalSupply(), sum)
}

func TestBurnRejectsOverdraw(t *testing.T) {
	l := New(6)
	require.NoError(t, l.Mint("alice", sdkmath.NewInt(100)))

	err := l.Burn("alice", sdkmath.NewInt(101))
	require.ErrorIs(t, err, ErrInsufficientShares)
	require.Equal(t, sdkmath.NewInt(100), l.BalanceOf("alice"))
	require.Equal(t, sdkmath.NewInt(100), l.TotalSupply())
}

func TestMintBurnRejectNonPositive(t *testing.T) {
	l := New(6)

	require.ErrorIs(t, l.Mint("alice", sdkmath.ZeroInt()), ErrInvalidAmount)
	require.ErrorIs(t, l.Mint("alice", sdkmath.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, l.Burn("alice", sdkmath.ZeroInt()), ErrInvalidAmount)
}

func TestAllowanceLifecycle(t *testing.T) {
	l := New(6)

	require.Equal(t, sdkmath.ZeroInt(), l.Allowance("alice", "bob"))
	require.NoError(t, l.Approve("alice", "bob", sdkmath.NewInt(300)))
	require.Equal(t, sdkmath.NewInt(300), l.Allowance("alice", "bob"))

	require.NoError(t, l.SpendAllowance("alice", "bob", sdkmath.NewInt(120)))
	require.Equal(t, sdkmath.NewInt(180), l.Allowance("alice", "bob"))

	err := l.SpendAllowance("alice", "bob", sdkmath.NewInt(181))
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	// Re-approval overwrites, it does not accumulate.
	require.NoError(t, l.Approve("alice", "bob", sdkmath.NewInt(50)))
	require.Equal(t, sdkmath.NewInt(50), l.Allowance("alice", "bob"))

	require.ErrorIs(t, l.Approve("alice", "bob", sdkmath.NewInt(-1)), ErrInvalidAmount)
}

func TestSpendAllowanceRejectsNonPositive(t *testing.T) {
	l := New(6)

	// A zero spend against an owner who never approved anyone must fail
	// cleanly, not touch allowance bookkeeping.
	require.NotPanics(t, func() {
		err := l.SpendAllowance("alice", "bob", sdkmath.ZeroInt())
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	require.ErrorIs(t, l.SpendAllowance("alice", "bob", sdkmath.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, l.SpendAllowance("alice", "bob", sdkmath.Int{}), ErrInvalidAmount)
	require.Equal(t, sdkmath.ZeroInt(), l.Allowance("alice", "bob"))

	// A positive spend with no approval on record is an allowance failure.
	require.ErrorIs(t, l.SpendAllowance("alice", "bob", sdkmath.OneInt()), ErrInsufficientAllowance)
}

func TestDepositMarkers(t *testing.T) {
	l := New(6)

	_, deposited := l.LastDepositHeight("alice")
	require.False(t, deposited)

	l.NoteDeposit("alice", 77)
	height, deposited := l.LastDepositHeight("alice")
	require.True(t, deposited)
	require.Equal(t, uint64(77), height)

	l.NoteDeposit("alice", 90)
	height, _ = l.LastDepositHeight("alice")
	require.Equal(t, uint64(90), height)
}
