package transfer

import (
	"context"
	"time"

	"github.com/xraph/token/address"
	"github.com/xraph/token/id"
)

// Store persists the transfer journal. RecordTransfers skips records whose
// ID already exists.
type Store interface {
	RecordTransfers(ctx context.Context, recs []*Record) error
	QueryTransfers(ctx context.Context, tokenID id.TokenID, opts QueryOpts) ([]*Record, error)
}

// QueryOpts filters QueryTransfers. Results are ordered newest first.
// A zero Account matches every record.
type QueryOpts struct {
	Account address.Address
	Start   time.Time
	End     time.Time
	Limit   int
	Offset  int
}

// Matches reports whether r passes the Account and time filters.
func (o QueryOpts) Matches(r *Record) bool {
	if !o.Account.IsZero() && !r.Involves(o.Account) {
		return false
	}
	if !o.Start.IsZero() && r.Timestamp.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && r.Timestamp.After(o.End) {
		return false
	}
	return true
}
