/*

This file provides the block-height source the vault engine reads for its
deposit/redeem cooldown. Production connects to a CometBFT RPC endpoint; tests
use the manual source and mine heights themselves.

*/

package chain

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/rs/zerolog"

	"github.com/onevault-finance/onevault/internal/logger"
)

const statusTimeout = 10 * time.Second

// Error definitions for block-source failures.
var (
	ErrInvalidEndpoint = errors.New("RPC endpoint is invalid")
	ErrStatusFailed    = errors.New("node status query failed")
)

// BlockSource reports the current chain height. The engine treats calls as
// potentially long-running external interactions.
type BlockSource interface {
	CurrentHeight(ctx context.Context) (uint64, error)
}

// RPCBlockSource queries a CometBFT node for the latest block height.
type RPCBlockSource struct {
	client *rpchttp.HTTP
	logger zerolog.Logger
}

// NewRPCBlockSource connects to a CometBFT RPC endpoint.
func NewRPCBlockSource(endpoint string) (*RPCBlockSource, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is empty", ErrInvalidEndpoint)
	}
	client, err := rpchttp.New(endpoint, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEndpoint, err)
	}
	return &RPCBlockSource{
		client: client,
		logger: logger.GetForComponent("block_source"),
	}, nil
}

// CurrentHeight returns the node's latest block height.
func (b *RPCBlockSource) CurrentHeight(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, statusTimeout)
	defer cancel()

	status, err := b.client.Status(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to query node status")
		return 0, errors.Join(ErrStatusFailed, err)
	}
	height := status.SyncInfo.LatestBlockHeight
	if height < 0 {
		return 0, fmt.Errorf("%w: negative height %d", ErrStatusFailed, height)
	}
	return uint64(height), nil
}

// ManualBlockSource is a deterministic height counter for tests and dry runs.
type ManualBlockSource struct {
	height atomic.Uint64
}

// NewManualBlockSource starts a manual source at the given height.
func NewManualBlockSource(height uint64) *ManualBlockSource {
	source := &ManualBlockSource{}
	source.height.Store(height)
	return source
}

// CurrentHeight returns the manually set height.
func (m *ManualBlockSource) CurrentHeight(context.Context) (uint64, error) {
	return m.height.Load(), nil
}

// Mine advances the height by n blocks.
func (m *ManualBlockSource) Mine(n uint64) {
	m.height.Add(n)
}

// SetHeight pins the height to an absolute value.
func (m *ManualBlockSource) SetHeight(height uint64) {
	m.height.Store(height)
}
