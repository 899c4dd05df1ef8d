// Package transfer defines journaled transfer records.
package transfer

import (
	"time"

	"github.com/xraph/token/address"
	"github.com/xraph/token/id"
)

// Record is one successful transfer. Records are written to the store in
// batches after the balance change they describe has been applied.
type Record struct {
	ID        id.TransferID   `json:"id"`
	TokenID   id.TokenID      `json:"token_id"`
	From      address.Address `json:"from"`
	To        address.Address `json:"to"`
	Amount    uint64          `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Involves reports whether account is the sender or the recipient.
func (r *Record) Involves(account address.Address) bool {
	return r.From == account || r.To == account
}
