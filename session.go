package token

import (
	"context"

	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
)

// Session is a ledger bound to one token and one caller identity. It is
// how a host invokes operations "as" a given signer.
type Session struct {
	ledger  *Ledger
	tokenID id.TokenID
	caller  address.Address
}

// Connect binds caller to tokenID.
func (l *Ledger) Connect(tokenID id.TokenID, caller address.Address) *Session {
	return &Session{ledger: l, tokenID: tokenID, caller: caller}
}

// Caller returns the bound identity.
func (s *Session) Caller() address.Address { return s.caller }

// TokenID returns the bound token.
func (s *Session) TokenID() id.TokenID { return s.tokenID }

// Connect returns a session for the same token bound to another caller.
func (s *Session) Connect(caller address.Address) *Session {
	return s.ledger.Connect(s.tokenID, caller)
}

// Transfer sends amount from the bound caller to to.
func (s *Session) Transfer(ctx context.Context, to address.Address, amount uint64) error {
	return s.ledger.Transfer(ctx, s.tokenID, s.caller, to, amount)
}

// BalanceOf returns the balance of account.
func (s *Session) BalanceOf(ctx context.Context, account address.Address) (uint64, error) {
	return s.ledger.BalanceOf(ctx, s.tokenID, account)
}

// Balance returns the bound caller's balance.
func (s *Session) Balance(ctx context.Context) (uint64, error) {
	return s.ledger.BalanceOf(ctx, s.tokenID, s.caller)
}

// TotalSupply returns the token's fixed supply.
func (s *Session) TotalSupply(ctx context.Context) (uint64, error) {
	return s.ledger.TotalSupply(ctx, s.tokenID)
}

// Owner returns the token's deployer.
func (s *Session) Owner(ctx context.Context) (address.Address, error) {
	return s.ledger.Owner(ctx, s.tokenID)
}

// Token returns the bound token.
func (s *Session) Token(ctx context.Context) (*contract.Token, error) {
	return s.ledger.GetToken(ctx, s.tokenID)
}
