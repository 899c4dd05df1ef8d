// Package audithook bridges token ledger events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit store. Callers inject a RecorderFunc adapter at
// wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/token/contract"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/transfer"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnTokenDeployed    = (*Extension)(nil)
	_ plugin.OnTransfer         = (*Extension)(nil)
	_ plugin.OnTransferRejected = (*Extension)(nil)
	_ plugin.OnJournalFlushed   = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Token hooks
// ──────────────────────────────────────────────────

// OnTokenDeployed implements plugin.OnTokenDeployed.
func (e *Extension) OnTokenDeployed(ctx context.Context, t *contract.Token) error {
	return e.record(ctx, ActionTokenDeployed, SeverityInfo, OutcomeSuccess,
		ResourceToken, t.ID.String(), CategoryDeployment, "",
		"symbol", t.Symbol,
		"owner", t.Owner.String(),
		"total_supply", t.TotalSupply,
	)
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnTransfer implements plugin.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, rec *transfer.Record) error {
	return e.record(ctx, ActionTransferApplied, SeverityInfo, OutcomeSuccess,
		ResourceTransfer, rec.ID.String(), CategoryTransfer, "",
		"token_id", rec.TokenID.String(),
		"from", rec.From.String(),
		"to", rec.To.String(),
		"amount", rec.Amount,
	)
}

// OnTransferRejected implements plugin.OnTransferRejected.
func (e *Extension) OnTransferRejected(ctx context.Context, r *plugin.Rejection) error {
	return e.record(ctx, ActionTransferRejected, SeverityWarning, OutcomeFailure,
		ResourceTransfer, "", CategoryTransfer, r.Reason,
		"token_id", r.TokenID.String(),
		"from", r.From.String(),
		"to", r.To.String(),
		"amount", r.Amount,
	)
}

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (e *Extension) OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error {
	return e.record(ctx, ActionJournalFlushed, SeverityInfo, OutcomeSuccess,
		ResourceJournal, "", CategoryStorage, "",
		"count", count,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// Recorder failures are logged and never returned.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	reason string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
