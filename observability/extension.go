// Package observability provides a metrics plugin for the token ledger
// that records deployment, transfer and journal activity through a
// MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/token/contract"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/transfer"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnTokenDeployed    = (*MetricsExtension)(nil)
	_ plugin.OnTransfer         = (*MetricsExtension)(nil)
	_ plugin.OnTransferRejected = (*MetricsExtension)(nil)
	_ plugin.OnJournalFlushed   = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records ledger activity metrics.
// Register it as a ledger plugin to track transfers automatically.
type MetricsExtension struct {
	factory MetricFactory

	// Token metrics
	TokensDeployed Counter

	// Transfer metrics
	Transfers        Counter
	TransferRejected Counter
	TransferAmount   Histogram

	// Journal metrics
	JournalRecords      Counter
	JournalBatchSize    Histogram
	JournalFlushLatency Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		TokensDeployed: factory.Counter("token.deployed"),

		Transfers:        factory.Counter("token.transfer.applied"),
		TransferRejected: factory.Counter("token.transfer.rejected"),
		TransferAmount:   factory.Histogram("token.transfer.amount"),

		JournalRecords:      factory.Counter("token.journal.records"),
		JournalBatchSize:    factory.Histogram("token.journal.batch.size"),
		JournalFlushLatency: factory.Histogram("token.journal.flush.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// OnTokenDeployed implements plugin.OnTokenDeployed.
func (m *MetricsExtension) OnTokenDeployed(_ context.Context, _ *contract.Token) error {
	m.TokensDeployed.Inc()
	return nil
}

// OnTransfer implements plugin.OnTransfer.
func (m *MetricsExtension) OnTransfer(_ context.Context, rec *transfer.Record) error {
	m.Transfers.Inc()
	m.TransferAmount.Observe(float64(rec.Amount))
	return nil
}

// OnTransferRejected implements plugin.OnTransferRejected.
func (m *MetricsExtension) OnTransferRejected(_ context.Context, _ *plugin.Rejection) error {
	m.TransferRejected.Inc()
	return nil
}

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (m *MetricsExtension) OnJournalFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.JournalRecords.Add(float64(count))
	m.JournalBatchSize.Observe(float64(count))
	m.JournalFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
