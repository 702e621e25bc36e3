package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/onevault-finance/onevault/internal/allocation"
	"github.com/onevault-finance/onevault/internal/chain"
	"github.com/onevault-finance/onevault/internal/config"
	"github.com/onevault-finance/onevault/internal/ledger"
	"github.com/onevault-finance/onevault/internal/logger"
	"github.com/onevault-finance/onevault/internal/strategy"
	"github.com/onevault-finance/onevault/internal/types"
)

// Error definitions for zero-tolerance error handling. Ledger, allocation and
// adapter packages contribute their own sentinels; together they cover the
// full failure taxonomy of the engine.
var (
	ErrUnauthorized         = errors.New("caller lacks the admin capability")
	ErrInvalidRecipient     = errors.New("recipient is the null identity")
	ErrAssetNotEnabled      = errors.New("asset is not in the enabled-token whitelist")
	ErrVaultNotOpen         = errors.New("vault is not open")
	ErrVaultNotClosed       = errors.New("vault must be closed for this operation")
	ErrAllocationIncomplete = errors.New("active allocation does not sum to 10000 bps")
	ErrDepositOutOfBounds   = errors.New("deposit amount is out of bounds")
	ErrDepositTooSoon       = errors.New("deposit cooldown has not elapsed")
	ErrWithdrawTooSoon      = errors.New("withdrawal cooldown has not elapsed")
	ErrExcessiveSlippage    = errors.New("recovered amount breaches the slippage tolerance")
	ErrAdapterMissing       = errors.New("no adapter registered for active strategy")
	ErrBlockHeight          = errors.New("block height is unavailable")
)

// Params carries the vault-wide configuration the engine reads on every
// operation. Everything is denominated in deposit-asset base units.
type Params struct {
	AdminAddress  string
	AssetDenom    string
	AssetDecimals int

	MinDeposit      sdkmath.Int
	MaxDeposit      sdkmath.Int
	MaxTotalDeposit sdkmath.Int

	CooldownBlocks uint64
	WithdrawFeeBps uint32
	MaxSlippageBps uint32
}

// ParamsFromConfig builds engine parameters from the loaded configuration.
func ParamsFromConfig() Params {
	return Params{
		AdminAddress:    config.AdminAddress,
		AssetDenom:      config.AssetDenom,
		AssetDecimals:   config.AssetDecimals,
		MinDeposit:      config.MinDeposit,
		MaxDeposit:      config.MaxDeposit,
		MaxTotalDeposit: config.MaxTotalDeposit,
		CooldownBlocks:  config.CooldownBlocks,
		WithdrawFeeBps:  config.WithdrawFeeBps,
		MaxSlippageBps:  config.MaxSlippageBps,
	}
}

// Store is the persistence surface the engine writes through. Persistence is
// best-effort: a failing store is logged, never allowed to abort accounting.
type Store interface {
	EventSink
	SaveSnapshot(snapshot types.VaultSnapshot) error
	UpsertStrategy(record types.StrategyRecord) error
}

// Engine is the vault controller: it orchestrates deposits and redemptions,
// routes asset flow across strategy adapters in allocation order, and owns
// the consolidated shared state (allocation table, share ledger, cash
// balance, vault globals).
//
// One mutex serializes every state-changing operation; adapter calls are the
// only suspension points and happen under the same lock, so no operation ever
// observes another operation's partial state.
type Engine struct {
	mu sync.Mutex

	params Params
	policy Policy

	status        types.VaultStatus
	enabledTokens map[string]bool
	feeExempt     map[string]bool
	cash          sdkmath.Int

	table    *allocation.Table
	ledger   *ledger.Ledger
	adapters map[types.PositionKey]strategy.Adapter

	blocks chain.BlockSource
	events *Recorder
	store  Store

	logger zerolog.Logger
}

// New creates a closed, empty vault engine. The store may be nil.
func New(params Params, blocks chain.BlockSource, store Store) (*Engine, error) {
	if blocks == nil {
		return nil, fmt.Errorf("%w: block source is required", ErrBlockHeight)
	}
	if params.AssetDenom == "" {
		return nil, errors.New("asset denom is required")
	}
	if params.MinDeposit.IsNil() || params.MaxDeposit.IsNil() || params.MaxTotalDeposit.IsNil() {
		return nil, errors.New("deposit bounds are required")
	}
	if params.MinDeposit.GT(params.MaxDeposit) {
		return nil, errors.New("minimum deposit exceeds maximum deposit")
	}

	var sink EventSink
	if store != nil {
		sink = store
	}

	engine := &Engine{
		params: params,
		policy: Policy{
			WithdrawFeeBps: params.WithdrawFeeBps,
			MaxSlippageBps: params.MaxSlippageBps,
		},
		status:        types.StatusClosed,
		enabledTokens: make(map[string]bool),
		feeExempt:     make(map[string]bool),
		cash:          sdkmath.ZeroInt(),
		table:         allocation.NewTable(),
		ledger:        ledger.New(params.AssetDecimals),
		adapters:      make(map[types.PositionKey]strategy.Adapter),
		blocks:        blocks,
		events:        NewRecorder(sink),
		store:         store,
		logger:        logger.GetForComponent("vault_engine"),
	}

	engine.logger.Info().
		Str("assetDenom", params.AssetDenom).
		Int("assetDecimals", params.AssetDecimals).
		Uint64("cooldownBlocks", params.CooldownBlocks).
		Uint32("withdrawFeeBps", params.WithdrawFeeBps).
		Uint32("maxSlippageBps", params.MaxSlippageBps).
		Msg("Vault engine initialized")

	return engine, nil
}

// RegisterAdapter attaches the adapter serving a strategy slot. Adapters must
// be registered before the strategy can carry capital.
func (e *Engine) RegisterAdapter(adapter strategy.Adapter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.adapters[adapter.Key()] = adapter
}

// Deposit pulls amount of the deposit asset from caller into vault custody
// and mints shares to recipient at the current exchange rate. Capital is not
// eagerly pushed into strategies; it sits as cash until a rebalancing sweep
// moves it.
func (e *Engine) Deposit(ctx context.Context, caller, denom, recipient string, amount sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	opID := uuid.New().String()
	opLogger := e.logger.With().Str("op_id", opID).Str("caller", caller).Logger()

	if e.status != types.StatusOpen {
		return sdkmath.ZeroInt(), ErrVaultNotOpen
	}
	if !e.enabledTokens[denom] {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrAssetNotEnabled, denom)
	}
	if !e.table.Complete() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: sum is %d", ErrAllocationIncomplete, e.table.TotalBps())
	}
	if recipient == "" {
		return sdkmath.ZeroInt(), ErrInvalidRecipient
	}
	if amount.IsNil() || amount.LT(e.params.MinDeposit) || amount.GT(e.params.MaxDeposit) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s not in [%s, %s]",
			ErrDepositOutOfBounds, amount, e.params.MinDeposit, e.params.MaxDeposit)
	}

	totalValue, err := e.totalPoolValue()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if totalValue.Add(amount).GT(e.params.MaxTotalDeposit) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: pool value %s + %s exceeds cap %s",
			ErrDepositOutOfBounds, totalValue, amount, e.params.MaxTotalDeposit)
	}

	height, err := e.currentHeight(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if last, deposited := e.ledger.LastDepositHeight(caller); deposited {
		if height < last+e.params.CooldownBlocks {
			return sdkmath.ZeroInt(), fmt.Errorf("%w: last deposit at height %d, now %d", ErrDepositTooSoon, last, height)
		}
	}

	shares, err := e.ledger.SharesToMint(amount, totalValue)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if !shares.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: deposit would mint zero shares", ledger.ErrInvalidAmount)
	}

	// Commit point: every check and external read succeeded.
	e.cash = e.cash.Add(amount)
	if err := e.ledger.Mint(recipient, shares); err != nil {
		e.cash = e.cash.Sub(amount)
		return sdkmath.ZeroInt(), err
	}
	e.ledger.NoteDeposit(caller, height)
	if recipient != caller {
		// The marker follows the shares too, so a recipient cannot redeem
		// against the stale rate in the same window.
		e.ledger.NoteDeposit(recipient, height)
	}

	e.events.Emit(types.Event{
		Type:        types.EventDeposit,
		OperationID: opID,
		Actor:       caller,
		Recipient:   recipient,
		Amount:      amount.String(),
		Shares:      shares.String(),
	})
	e.persistSnapshot(opID)

	opLogger.Info().
		Str("amount", amount.String()).
		Str("shares", shares.String()).
		Str("recipient", recipient).
		Uint64("height", height).
		Msg("Deposit completed")

	return shares, nil
}

// Redeem burns shares from owner and pays out the corresponding asset amount
// to owner, net of the withdrawal fee. If caller differs from owner, the
// delegated allowance from owner to caller is spent.
//
// Fund sourcing drains cash first, then sweeps active strategies in
// activation order. The operation is all-or-nothing: on an adapter failure or
// a slippage breach, asset already pulled from strategies is returned to them
// and no shared state changes.
func (e *Engine) Redeem(ctx context.Context, caller, owner string, shares sdkmath.Int) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	opID := uuid.New().String()
	opLogger := e.logger.With().Str("op_id", opID).Str("caller", caller).Str("owner", owner).Logger()

	if e.status != types.StatusOpen {
		return sdkmath.ZeroInt(), ErrVaultNotOpen
	}
	if !e.table.Complete() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: sum is %d", ErrAllocationIncomplete, e.table.TotalBps())
	}
	if owner == "" {
		return sdkmath.ZeroInt(), ErrInvalidRecipient
	}
	if shares.IsNil() || !shares.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: share amount must be positive", ledger.ErrInvalidAmount)
	}
	if e.ledger.BalanceOf(owner).LT(shares) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: balance %s, requested %s",
			ledger.ErrInsufficientShares, e.ledger.BalanceOf(owner), shares)
	}
	if caller != owner && e.ledger.Allowance(owner, caller).LT(shares) {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: allowance %s, requested %s",
			ledger.ErrInsufficientAllowance, e.ledger.Allowance(owner, caller), shares)
	}

	height, err := e.currentHeight(ctx)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if last, deposited := e.ledger.LastDepositHeight(owner); deposited {
		if height < last+e.params.CooldownBlocks {
			return sdkmath.ZeroInt(), fmt.Errorf("%w: last deposit at height %d, now %d", ErrWithdrawTooSoon, last, height)
		}
	}

	totalValue, err := e.totalPoolValue()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	owed, err := e.ledger.AssetsOwed(shares, totalValue)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	if !owed.IsPositive() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: redemption would pay zero", ledger.ErrInvalidAmount)
	}

	// Fund sourcing: cash first, then the active strategies in activation
	// order. Strategy pulls are journaled so an abort can put them back.
	cashUsed := sdkmath.MinInt(e.cash, owed)
	recovered := cashUsed
	var journal []pulledFunds

	if recovered.LT(owed) {
		shortfall := owed.Sub(recovered)
		for _, key := range e.table.ActiveKeys() {
			if !shortfall.IsPositive() {
				break
			}
			adapter, exists := e.adapters[key]
			if !exists {
				e.unwind(journal, opLogger)
				return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrAdapterMissing, key)
			}
			withdrawn, err := adapter.WithdrawFrom(shortfall)
			if err != nil {
				opLogger.Error().Err(err).Str("key", string(key)).Msg("Strategy withdrawal failed, aborting redeem")
				e.unwind(journal, opLogger)
				return sdkmath.ZeroInt(), err
			}
			if withdrawn.IsPositive() {
				journal = append(journal, pulledFunds{adapter: adapter, amount: withdrawn})
				recovered = recovered.Add(withdrawn)
				shortfall = shortfall.Sub(withdrawn)
			}
		}
	}

	if !e.policy.WithinTolerance(owed, recovered) {
		opLogger.Warn().
			Str("owed", owed.String()).
			Str("recovered", recovered.String()).
			Str("floor", e.policy.SlippageFloor(owed).String()).
			Msg("Slippage tolerance breached, aborting redeem")
		e.unwind(journal, opLogger)
		return sdkmath.ZeroInt(), fmt.Errorf("%w: owed %s, recovered %s", ErrExcessiveSlippage, owed, recovered)
	}

	fee := e.policy.FeeFor(recovered, e.feeExempt[owner])
	net := recovered.Sub(fee)

	// Commit point: the transfer of net to owner is confirmed by custody
	// before shares burn. The fee stays in vault cash.
	e.cash = e.cash.Sub(cashUsed).Add(fee)
	if caller != owner {
		if err := e.ledger.SpendAllowance(owner, caller, shares); err != nil {
			// Unreachable: checked above under the same lock.
			e.cash = e.cash.Add(cashUsed).Sub(fee)
			e.unwind(journal, opLogger)
			return sdkmath.ZeroInt(), err
		}
	}
	if err := e.ledger.Burn(owner, shares); err != nil {
		e.cash = e.cash.Add(cashUsed).Sub(fee)
		e.unwind(journal, opLogger)
		return sdkmath.ZeroInt(), err
	}

	e.events.Emit(types.Event{
		Type:        types.EventRedeem,
		OperationID: opID,
		Actor:       caller,
		Recipient:   owner,
		Amount:      net.String(),
		Shares:      shares.String(),
		Fee:         fee.String(),
	})
	e.persistSnapshot(opID)

	opLogger.Info().
		Str("shares", shares.String()).
		Str("owed", owed.String()).
		Str("recovered", recovered.String()).
		Str("fee", fee.String()).
		Str("net", net.String()).
		Msg("Redeem completed")

	return net, nil
}

// Approve sets the delegated share allowance from owner to spender.
func (e *Engine) Approve(owner, spender string, shares sdkmath.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if spender == "" {
		return ErrInvalidRecipient
	}
	return e.ledger.Approve(owner, spender, shares)
}

// pulledFunds journals a single strategy withdrawal during a redeem so an
// abort can return it.
type pulledFunds struct {
	adapter strategy.Adapter
	amount  sdkmath.Int
}

// unwind returns journaled strategy withdrawals to their venues after an
// aborted redeem. Best-effort: a venue that refuses the give-back is logged;
// the funds stay in custody and keep backing the pool value.
func (e *Engine) unwind(journal []pulledFunds, opLogger zerolog.Logger) {
	for _, entry := range journal {
		if err := entry.adapter.DepositInto(entry.amount); err != nil {
			opLogger.Error().Err(err).
				Str("key", string(entry.adapter.Key())).
				Str("amount", entry.amount.String()).
				Msg("Failed to return funds to strategy, retaining as cash")
			e.cash = e.cash.Add(entry.amount)
		}
	}
}

// totalPoolValue computes cash on hand plus the sum of active strategy
// valuations. Valuations are read fresh on every operation.
func (e *Engine) totalPoolValue() (sdkmath.Int, error) {
	total := e.cash
	for _, key := range e.table.ActiveKeys() {
		adapter, exists := e.adapters[key]
		if !exists {
			return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrAdapterMissing, key)
		}
		value, err := adapter.Valuation()
		if err != nil {
			return sdkmath.ZeroInt(), err
		}
		total = total.Add(value)
	}
	return total, nil
}

func (e *Engine) currentHeight(ctx context.Context) (uint64, error) {
	height, err := e.blocks.CurrentHeight(ctx)
	if err != nil {
		return 0, errors.Join(ErrBlockHeight, err)
	}
	return height, nil
}

// persistSnapshot writes the consolidated vault record through the store.
func (e *Engine) persistSnapshot(opID string) {
	if e.store == nil {
		return
	}
	totalValue, err := e.totalPoolValue()
	if err != nil {
		e.logger.Error().Err(err).Msg("Skipping snapshot: pool value unavailable")
		return
	}
	snapshot := types.VaultSnapshot{
		OperationID:    opID,
		Timestamp:      time.Now().UTC(),
		Status:         e.status.String(),
		CashOnHand:     e.cash.String(),
		TotalPoolValue: totalValue.String(),
		TotalShares:    e.ledger.TotalSupply().String(),
		ActiveCount:    e.table.ActiveCount(),
		AllocationBps:  e.table.TotalBps(),
	}
	if err := e.store.SaveSnapshot(snapshot); err != nil {
		e.logger.Error().Err(err).Msg("Failed to persist vault snapshot")
	}
}
