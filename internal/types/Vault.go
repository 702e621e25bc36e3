/*

This file contains the vault-global types: the open/closed status enum and the
consolidated snapshot record the state store persists after every mutating
operation.

*/

package types

import (
	"time"
)

// VaultStatus is the deposit/redeem gate. Admin operations that would break
// the allocation-sum invariant are expected to close the vault first.
type VaultStatus uint8

const (
	StatusClosed VaultStatus = iota
	StatusOpen
)

func (s VaultStatus) String() string {
	if s == StatusOpen {
		return "open"
	}
	return "closed"
}

// VaultSnapshot is the consolidated configuration+ledger record: one row per
// state-changing operation, enough to audit exchange rates after the fact.
type VaultSnapshot struct {
	SnapshotID     int64     `json:"snapshot_id,omitempty"` // auto-incremented by DB
	OperationID    string    `json:"operation_id"`
	Timestamp      time.Time `json:"timestamp"`
	Status         string    `json:"status"`
	CashOnHand     string    `json:"cash_on_hand"`     // base units of the deposit asset
	TotalPoolValue string    `json:"total_pool_value"` // cash + sum of strategy valuations
	TotalShares    string    `json:"total_shares"`
	ActiveCount    int       `json:"active_count"`
	AllocationBps  uint32    `json:"allocation_bps"` // running sum across active strategies
}
