/*

This file contains the types for strategy records: the registry entries the
allocation engine tracks for every yield position the vault can route capital
into.

*/

package types

import (
	"encoding/hex"
	"strings"

	"github.com/cometbft/cometbft/crypto/tmhash"
)

// PositionKey is the deterministic identifier of one (platform, protocol,
// asset-pair) strategy slot. It is the hex encoding of a 32-byte digest so it
// can be used directly as a map key and survive round-trips through the
// database and the HTTP API.
type PositionKey string

// PositionKeyFor derives the position key for a strategy slot. The same three
// identifiers always produce the same key, regardless of caller casing.
func PositionKeyFor(platform, protocol, pair string) PositionKey {
	preimage := strings.ToLower(platform) + "/" + strings.ToLower(protocol) + "/" + strings.ToLower(pair)
	return PositionKey(hex.EncodeToString(tmhash.Sum([]byte(preimage))))
}

// StrategyRecord is one entry in the strategy registry. Records are created
// once and never physically deleted; deactivation zeroes the allocation and
// removes the record from the active order.
type StrategyRecord struct {
	Key      PositionKey `json:"key"`
	Platform string      `json:"platform"` // e.g. "optimism"
	Protocol string      `json:"protocol"` // e.g. "velodrome"
	Pair     string      `json:"pair"`     // e.g. "usdcdai"

	RewardDenom string `json:"reward_denom"` // underlying reward asset paid out by harvest
	PoolID      string `json:"pool_id"`      // pool / liquidity-pair identifier at the venue
	GaugeID     string `json:"gauge_id"`     // staking gauge / contract identifier at the venue
	Variant     uint32 `json:"variant"`      // monotonically increasing version tag

	Created       bool   `json:"created"`
	Active        bool   `json:"active"`
	AllocationBps uint32 `json:"allocation_bps"` // 0..10000, zero while inactive
}
