// Package contract defines a deployed token ledger: its fixed supply,
// owner and display metadata.
package contract

import (
	"github.com/xraph/token/address"
	"github.com/xraph/token/id"
	"github.com/xraph/token/types"
)

// Defaults applied by Default and by the engine when a deployment leaves
// fields empty.
const (
	DefaultName        = "Token"
	DefaultSymbol      = "TKN"
	DefaultDecimals    = 0
	DefaultTotalSupply = 1000000
)

// Token is a deployed ledger. TotalSupply and Owner never change after
// deployment.
type Token struct {
	types.Entity
	ID          id.TokenID        `json:"id"`
	Name        string            `json:"name"`
	Symbol      string            `json:"symbol"`
	Decimals    uint8             `json:"decimals"`
	TotalSupply uint64            `json:"total_supply"`
	Owner       address.Address   `json:"owner"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Default returns an undeployed token with the default metadata and supply.
func Default() Token {
	return Token{
		Name:        DefaultName,
		Symbol:      DefaultSymbol,
		Decimals:    DefaultDecimals,
		TotalSupply: DefaultTotalSupply,
	}
}

// Amount wraps a base-unit quantity with this token's display precision.
func (t *Token) Amount(units uint64) types.Amount {
	return types.NewAmount(units, t.Decimals, t.Symbol)
}

// Supply returns the total supply as an Amount.
func (t *Token) Supply() types.Amount {
	return t.Amount(t.TotalSupply)
}
