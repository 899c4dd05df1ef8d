package contract

import (
	"context"

	"github.com/xraph/token/address"
	"github.com/xraph/token/id"
)

// Store persists deployments. Create must credit the owner with the full
// supply in the same atomic step that records the token.
type Store interface {
	CreateToken(ctx context.Context, t *Token) error
	GetToken(ctx context.Context, tokenID id.TokenID) (*Token, error)
	ListTokens(ctx context.Context, opts ListOpts) ([]*Token, error)
}

// BalanceStore reads and moves balances of a deployed token.
type BalanceStore interface {
	Balance(ctx context.Context, tokenID id.TokenID, account address.Address) (uint64, error)
	Balances(ctx context.Context, tokenID id.TokenID) (map[address.Address]uint64, error)

	// Move debits from and credits to by amount as one atomic step. It
	// returns an error wrapping token.ErrInsufficientBalance and leaves
	// state untouched when from holds less than amount. from != to.
	Move(ctx context.Context, tokenID id.TokenID, from, to address.Address, amount uint64) error
}

// ListOpts filters ListTokens.
type ListOpts struct {
	Owner  address.Address
	Symbol string
	Limit  int
	Offset int
}
