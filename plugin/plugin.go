// Package plugin provides lifecycle hooks for the token ledger.
// A plugin implements Plugin plus any subset of the hook interfaces below;
// the Registry discovers the hooks at registration time.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	"github.com/xraph/token/transfer"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the ledger starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Token hooks
// ──────────────────────────────────────────────────

// OnTokenDeployed is called after a token is deployed and its owner credited.
type OnTokenDeployed interface {
	Plugin
	OnTokenDeployed(ctx context.Context, t *contract.Token) error
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnTransfer is called after a transfer has been applied.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, rec *transfer.Record) error
}

// OnTransferRejected is called when a transfer is rejected. State is unchanged.
type OnTransferRejected interface {
	Plugin
	OnTransferRejected(ctx context.Context, r *Rejection) error
}

// OnJournalFlushed is called after a batch of transfer records is persisted.
type OnJournalFlushed interface {
	Plugin
	OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error
}

// Rejection describes a rejected transfer.
type Rejection struct {
	TokenID id.TokenID
	From    address.Address
	To      address.Address
	Amount  uint64
	Reason  string
}
