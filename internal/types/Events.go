/*

This file contains the event types emitted by the vault engine. Events are the
observable side effects the original facets reported on-chain; here they feed
the in-memory recorder, the structured logs and the database event log.

*/

package types

import (
	"time"
)

// EventType identifies one observable vault effect.
type EventType string

const (
	EventStrategyCreated     EventType = "STRATEGY_CREATED"
	EventStrategyActivated   EventType = "STRATEGY_ACTIVATED"
	EventStrategyDeactivated EventType = "STRATEGY_DEACTIVATED"
	EventDeposit             EventType = "DEPOSIT"
	EventRedeem              EventType = "REDEEM"
	EventRewardsWithdrawn    EventType = "REWARDS_WITHDRAWN"
	EventStatusChanged       EventType = "STATUS_CHANGED"
	EventTokensEnabled       EventType = "TOKENS_ENABLED"
	EventMaxDepositChanged   EventType = "MAX_DEPOSIT_CHANGED"
	EventAddressWhitelisted  EventType = "ADDRESS_WHITELISTED"
)

// Event is a single emitted notification. Amount fields are stringified base
// units so the struct marshals losslessly to JSON and JSONB.
type Event struct {
	EventID     int64     `json:"event_id,omitempty"` // auto-incremented by DB
	Type        EventType `json:"type"`
	OperationID string    `json:"operation_id"`
	Timestamp   time.Time `json:"timestamp"`

	Actor     string      `json:"actor,omitempty"`     // caller the effect is attributed to
	Recipient string      `json:"recipient,omitempty"` // share or asset recipient
	Key       PositionKey `json:"position_key,omitempty"`

	Amount string `json:"amount,omitempty"` // asset base units moved
	Shares string `json:"shares,omitempty"` // shares minted or burned
	Fee    string `json:"fee,omitempty"`    // withdrawal fee retained
	Bps    uint32 `json:"bps,omitempty"`    // allocation, for activation events
	Note   string `json:"note,omitempty"`
}
