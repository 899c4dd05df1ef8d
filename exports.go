package token

import (
	"github.com/xraph/token/address"
	"github.com/xraph/token/types"
)

// Re-export common types for convenience so users don't have to import
// the types and address packages.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Address is re-exported from address package.
type Address = address.Address

// Re-export constructors
var (
	NewAmount    = types.NewAmount
	NewEntity    = types.NewEntity
	ParseAddress = address.Parse
)

// ZeroAddress is the null account identity.
var ZeroAddress = address.Zero
