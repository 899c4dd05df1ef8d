package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/token"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/store"
)

// Option configures the token Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB builds the store on db using the backend named by driver
// ("sqlite", "postgres" or "mongo"). An empty driver defers to the
// configured one, which must then name one of those backends.
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		if driver != "" {
			e.config.Driver = driver
		}
	}
}

// WithLedgerOption passes a token.Option through to the underlying engine.
func WithLedgerOption(opt token.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, token.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithJournalBatchSize sets the number of transfer records to buffer before flushing.
func WithJournalBatchSize(size int) Option {
	return func(e *Extension) { e.config.JournalBatchSize = size }
}

// WithJournalFlushInterval sets how frequently the journal buffer is flushed.
func WithJournalFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.JournalFlushInterval = d }
}

// WithRejectZeroRecipient makes transfers to the zero address fail.
func WithRejectZeroRecipient() Option {
	return func(e *Extension) { e.config.RejectZeroRecipient = true }
}

// WithPluginTimeout bounds every plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
