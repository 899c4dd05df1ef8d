package extension

import "time"

// Supported values for Config.Driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the token extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.token" or "token" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend built around the grove.DB passed
	// with WithGroveDB: "sqlite", "postgres" or "mongo". Ignored when a
	// store is supplied directly or no grove.DB is set (default: "memory").
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// JournalBatchSize is the number of transfer records to buffer before
	// flushing to the store (default: 100).
	JournalBatchSize int `json:"journal_batch_size" mapstructure:"journal_batch_size" yaml:"journal_batch_size"`

	// JournalFlushInterval is how frequently the journal buffer is flushed
	// even if the batch size has not been reached (default: 5s).
	JournalFlushInterval time.Duration `json:"journal_flush_interval" mapstructure:"journal_flush_interval" yaml:"journal_flush_interval"`

	// RejectZeroRecipient makes transfers to the zero address fail.
	RejectZeroRecipient bool `json:"reject_zero_recipient" mapstructure:"reject_zero_recipient" yaml:"reject_zero_recipient"`

	// PluginTimeout bounds every plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:               DriverMemory,
		JournalBatchSize:     100,
		JournalFlushInterval: 5 * time.Second,
		PluginTimeout:        5 * time.Second,
	}
}
