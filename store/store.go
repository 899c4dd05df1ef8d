package store

import (
	"context"

	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	"github.com/xraph/token/transfer"
)

// Store is the unified storage interface for token deployments, balances
// and the transfer journal. Methods are declared explicitly rather than
// by embedding the sub-interfaces.
type Store interface {
	// Token methods
	CreateToken(ctx context.Context, t *contract.Token) error
	GetToken(ctx context.Context, tokenID id.TokenID) (*contract.Token, error)
	ListTokens(ctx context.Context, opts contract.ListOpts) ([]*contract.Token, error)

	// Balance methods
	Balance(ctx context.Context, tokenID id.TokenID, account address.Address) (uint64, error)
	Balances(ctx context.Context, tokenID id.TokenID) (map[address.Address]uint64, error)
	Move(ctx context.Context, tokenID id.TokenID, from, to address.Address, amount uint64) error

	// Journal methods
	RecordTransfers(ctx context.Context, recs []*transfer.Record) error
	QueryTransfers(ctx context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Record, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// compile-time checks that Store satisfies the sub-interfaces.
var (
	_ contract.Store        = (Store)(nil)
	_ contract.BalanceStore = (Store)(nil)
	_ transfer.Store        = (Store)(nil)
)
