package vault

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/onevault-finance/onevault/internal/types"
)

/*
	Administrative operations. Every entry point here gates on the configured
	admin identity and runs under the engine mutex, so admin changes never
	interleave with in-flight deposits or redemptions.
*/

// CreateStrategy registers a new strategy slot derived from its venue triple.
// The slot starts inactive with a zero allocation; an adapter must be
// registered separately before activation routes capital through it.
func (e *Engine) CreateStrategy(caller, platform, protocol, pair, rewardDenom, poolID, gaugeID string, variant uint32) (types.PositionKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.AdminAddress {
		return "", ErrUnauthorized
	}

	record := types.StrategyRecord{
		Key:         types.PositionKeyFor(platform, protocol, pair),
		Platform:    platform,
		Protocol:    protocol,
		Pair:        pair,
		RewardDenom: rewardDenom,
		PoolID:      poolID,
		GaugeID:     gaugeID,
		Variant:     variant,
	}
	if err := e.table.Create(record); err != nil {
		return "", err
	}
	e.persistStrategy(record.Key)

	e.events.Emit(types.Event{
		Type:        types.EventStrategyCreated,
		OperationID: uuid.New().String(),
		Actor:       caller,
		Key:         record.Key,
		Note:        fmt.Sprintf("%s/%s/%s", platform, protocol, pair),
	})

	e.logger.Info().
		Str("key", string(record.Key)).
		Str("platform", platform).
		Str("protocol", protocol).
		Str("pair", pair).
		Msg("Strategy created")

	return record.Key, nil
}

// ActivateStrategy moves a created strategy into the active order with the
// given allocation weight. The vault must be closed: activation changes how
// redemptions route, so it cannot race live flow.
func (e *Engine) ActivateStrategy(caller string, key types.PositionKey, allocationBps uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.AdminAddress {
		return ErrUnauthorized
	}
	if e.status != types.StatusClosed {
		return ErrVaultNotClosed
	}
	if _, exists := e.adapters[key]; !exists {
		return fmt.Errorf("%w: %s", ErrAdapterMissing, key)
	}

	if err := e.table.Activate(key, allocationBps); err != nil {
		return err
	}
	e.persistStrategy(key)

	e.events.Emit(types.Event{
		Type:        types.EventStrategyActivated,
		OperationID: uuid.New().String(),
		Actor:       caller,
		Key:         key,
		Bps:         allocationBps,
	})

	e.logger.Info().
		Str("key", string(key)).
		Uint32("allocationBps", allocationBps).
		Uint32("totalBps", e.table.TotalBps()).
		Msg("Strategy activated")

	return nil
}

// DeactivateStrategy drains a strategy's holdings to recipient and removes it
// from the active order. Draining is forced: whatever the venue gives back is
// what leaves, and any shortfall against the carried valuation lands on the
// remaining shareholders.
func (e *Engine) DeactivateStrategy(caller string, key types.PositionKey, recipient string) (sdkmath.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	opID := uuid.New().String()

	if caller != e.params.AdminAddress {
		return sdkmath.ZeroInt(), ErrUnauthorized
	}
	if e.status != types.StatusClosed {
		return sdkmath.ZeroInt(), ErrVaultNotClosed
	}
	if recipient == "" {
		return sdkmath.ZeroInt(), ErrInvalidRecipient
	}

	adapter, exists := e.adapters[key]
	if !exists {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrAdapterMissing, key)
	}

	held, err := adapter.Valuation()
	if err != nil {
		return sdkmath.ZeroInt(), err
	}

	drained := sdkmath.ZeroInt()
	if held.IsPositive() {
		drained, err = adapter.WithdrawFrom(held)
		if err != nil {
			return sdkmath.ZeroInt(), err
		}
	}

	if err := e.table.Deactivate(key); err != nil {
		// Drained funds cannot go back once the venue released them; keep
		// them as vault cash rather than losing custody.
		if drained.IsPositive() {
			e.cash = e.cash.Add(drained)
		}
		return sdkmath.ZeroInt(), err
	}
	e.persistStrategy(key)

	e.events.Emit(types.Event{
		Type:        types.EventStrategyDeactivated,
		OperationID: opID,
		Actor:       caller,
		Recipient:   recipient,
		Key:         key,
		Amount:      drained.String(),
	})
	e.persistSnapshot(opID)

	e.logger.Info().
		Str("key", string(key)).
		Str("held", held.String()).
		Str("drained", drained.String()).
		Str("recipient", recipient).
		Msg("Strategy deactivated and drained")

	return drained, nil
}

// ClaimRewards harvests accrued rewards from every active strategy directly
// to recipient. Rewards never touch the share ledger; harvesting leaves the
// pool value untouched.
func (e *Engine) ClaimRewards(caller, recipient string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	opID := uuid.New().String()

	if caller != e.params.AdminAddress {
		return ErrUnauthorized
	}
	if recipient == "" {
		return ErrInvalidRecipient
	}

	for _, key := range e.table.ActiveKeys() {
		adapter, exists := e.adapters[key]
		if !exists {
			return fmt.Errorf("%w: %s", ErrAdapterMissing, key)
		}
		reward, err := adapter.Harvest(recipient)
		if err != nil {
			return fmt.Errorf("harvest of %s failed: %w", key, err)
		}
		if reward.Amount.IsNil() || !reward.Amount.IsPositive() {
			continue
		}
		e.events.Emit(types.Event{
			Type:        types.EventRewardsWithdrawn,
			OperationID: opID,
			Actor:       caller,
			Recipient:   recipient,
			Key:         key,
			Amount:      reward.Amount.String(),
			Note:        reward.Denom,
		})
		e.logger.Info().
			Str("key", string(key)).
			Str("reward", reward.String()).
			Str("recipient", recipient).
			Msg("Rewards harvested")
	}

	return nil
}

// EnableTokens adds denoms to or removes them from the deposit-asset
// whitelist.
func (e *Engine) EnableTokens(caller string, enabled bool, denoms ...string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.AdminAddress {
		return ErrUnauthorized
	}
	for _, denom := range denoms {
		if denom == "" {
			continue
		}
		e.enabledTokens[denom] = enabled
		e.events.Emit(types.Event{
			Type:        types.EventTokensEnabled,
			OperationID: uuid.New().String(),
			Actor:       caller,
			Note:        fmt.Sprintf("%s enabled=%t", denom, enabled),
		})
	}
	return nil
}

// ChangeStatus opens or closes the vault.
func (e *Engine) ChangeStatus(caller string, status types.VaultStatus) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.AdminAddress {
		return ErrUnauthorized
	}
	if status != types.StatusOpen && status != types.StatusClosed {
		return fmt.Errorf("unknown vault status %d", status)
	}
	if e.status == status {
		return nil
	}

	e.status = status
	e.events.Emit(types.Event{
		Type:        types.EventStatusChanged,
		OperationID: uuid.New().String(),
		Actor:       caller,
		Note:        status.String(),
	})
	e.logger.Info().Str("status", status.String()).Msg("Vault status changed")
	return nil
}

// ChangeMaxDeposit raises or lowers the aggregate pool-value cap. Lowering it
// below the current pool value blocks new deposits without affecting
// redemptions.
func (e *Engine) ChangeMaxDeposit(caller string, maxTotal sdkmath.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.AdminAddress {
		return ErrUnauthorized
	}
	if maxTotal.IsNil() || maxTotal.IsNegative() {
		return fmt.Errorf("%w: cap must be non-negative", ErrDepositOutOfBounds)
	}

	e.params.MaxTotalDeposit = maxTotal
	e.events.Emit(types.Event{
		Type:        types.EventMaxDepositChanged,
		OperationID: uuid.New().String(),
		Actor:       caller,
		Amount:      maxTotal.String(),
	})
	e.logger.Info().Str("maxTotalDeposit", maxTotal.String()).Msg("Aggregate deposit cap changed")
	return nil
}

// WhitelistAddress sets or clears an address's withdrawal-fee exemption.
func (e *Engine) WhitelistAddress(caller, address string, exempt bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.params.AdminAddress {
		return ErrUnauthorized
	}
	if address == "" {
		return ErrInvalidRecipient
	}

	e.feeExempt[address] = exempt
	e.events.Emit(types.Event{
		Type:        types.EventAddressWhitelisted,
		OperationID: uuid.New().String(),
		Actor:       caller,
		Recipient:   address,
		Note:        fmt.Sprintf("exempt=%t", exempt),
	})
	e.logger.Info().Str("address", address).Bool("exempt", exempt).Msg("Fee exemption updated")
	return nil
}

// RestoreStrategies replays persisted strategy records into the allocation
// table at boot. Records come back created but inactive: activation needs a
// live adapter, which only the deployment wiring can provide.
func (e *Engine) RestoreStrategies(records []types.StrategyRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, record := range records {
		if err := e.table.Create(record); err != nil {
			return fmt.Errorf("restore of %s failed: %w", record.Key, err)
		}
	}
	return nil
}

// persistStrategy writes the current record for key through the store.
func (e *Engine) persistStrategy(key types.PositionKey) {
	if e.store == nil {
		return
	}
	record, exists := e.table.Record(key)
	if !exists {
		return
	}
	if err := e.store.UpsertStrategy(record); err != nil {
		e.logger.Error().Err(err).Str("key", string(key)).Msg("Failed to persist strategy record")
	}
}
