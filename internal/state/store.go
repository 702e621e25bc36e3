// ./internal/state/store.go
package state

import (
	"fmt"

	"github.com/onevault-finance/onevault/internal/types"
)

// VaultStore implements the engine's persistence surface over the global
// connection pool. The zero value is usable once InitDB has run.
type VaultStore struct{}

// NewVaultStore returns a store backed by the global database connection.
func NewVaultStore() *VaultStore {
	return &VaultStore{}
}

// RecordEvent appends a vault event to the durable event log.
func (s *VaultStore) RecordEvent(event types.Event) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO vault_events (
			event_type, operation_id, event_timestamp,
			actor, recipient, position_key,
			amount, shares, fee, bps, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`

	_, err := DB.Exec(
		query,
		string(event.Type), event.OperationID, event.Timestamp,
		event.Actor, event.Recipient, string(event.Key),
		event.Amount, event.Shares, event.Fee, event.Bps, event.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to record vault event: %w", err)
	}
	return nil
}

// SaveSnapshot persists a consolidated accounting snapshot.
func (s *VaultStore) SaveSnapshot(snapshot types.VaultSnapshot) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO vault_snapshots (
			operation_id, snapshot_timestamp, status,
			cash_on_hand, total_pool_value, total_shares,
			active_count, allocation_bps
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`

	_, err := DB.Exec(
		query,
		snapshot.OperationID, snapshot.Timestamp, snapshot.Status,
		snapshot.CashOnHand, snapshot.TotalPoolValue, snapshot.TotalShares,
		snapshot.ActiveCount, snapshot.AllocationBps,
	)
	if err != nil {
		return fmt.Errorf("failed to save vault snapshot: %w", err)
	}
	return nil
}

// UpsertStrategy writes the current state of one strategy record.
func (s *VaultStore) UpsertStrategy(record types.StrategyRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO strategies (
			position_key, platform, protocol, pair, reward_denom,
			pool_id, gauge_id, variant, created, active, allocation_bps, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (position_key) DO UPDATE SET
			active = EXCLUDED.active,
			allocation_bps = EXCLUDED.allocation_bps,
			updated_at = NOW();
	`

	_, err := DB.Exec(
		query,
		string(record.Key), record.Platform, record.Protocol, record.Pair, record.RewardDenom,
		record.PoolID, record.GaugeID, record.Variant, record.Created, record.Active, record.AllocationBps,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert strategy %s: %w", record.Key, err)
	}
	return nil
}

// RecentEvents loads up to limit events from the durable log, newest first.
func RecentEvents(limit int) ([]types.Event, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT event_id, event_type, operation_id, event_timestamp,
		       actor, recipient, position_key, amount, shares, fee, bps, note
		FROM vault_events
		ORDER BY event_id DESC
		LIMIT $1;
	`

	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query vault events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var event types.Event
		var eventType, key string
		if err := rows.Scan(
			&event.EventID, &eventType, &event.OperationID, &event.Timestamp,
			&event.Actor, &event.Recipient, &key,
			&event.Amount, &event.Shares, &event.Fee, &event.Bps, &event.Note,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vault event: %w", err)
		}
		event.Type = types.EventType(eventType)
		event.Key = types.PositionKey(key)
		events = append(events, event)
	}
	return events, rows.Err()
}

// LatestSnapshot loads the most recent accounting snapshot, or nil when none
// has been written yet.
func LatestSnapshot() (*types.VaultSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT snapshot_id, operation_id, snapshot_timestamp, status,
		       cash_on_hand, total_pool_value, total_shares, active_count, allocation_bps
		FROM vault_snapshots
		ORDER BY snapshot_id DESC
		LIMIT 1;
	`

	var snapshot types.VaultSnapshot
	err := DB.QueryRow(query).Scan(
		&snapshot.SnapshotID, &snapshot.OperationID, &snapshot.Timestamp, &snapshot.Status,
		&snapshot.CashOnHand, &snapshot.TotalPoolValue, &snapshot.TotalShares,
		&snapshot.ActiveCount, &snapshot.AllocationBps,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	return &snapshot, nil
}

// LoadStrategies returns every persisted strategy record.
func LoadStrategies() ([]types.StrategyRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT position_key, platform, protocol, pair, reward_denom,
		       pool_id, gauge_id, variant, created, active, allocation_bps
		FROM strategies
		ORDER BY position_key;
	`

	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var records []types.StrategyRecord
	for rows.Next() {
		var record types.StrategyRecord
		var key string
		if err := rows.Scan(
			&key, &record.Platform, &record.Protocol, &record.Pair, &record.RewardDenom,
			&record.PoolID, &record.GaugeID, &record.Variant,
			&record.Created, &record.Active, &record.AllocationBps,
		); err != nil {
			return nil, fmt.Errorf("failed to scan strategy record: %w", err)
		}
		record.Key = types.PositionKey(key)
		records = append(records, record)
	}
	return records, rows.Err()
}
