// Package extension provides the Forge extension adapter for the token
// ledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration, store selection and
// lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.token" or "token" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/token"
	"github.com/xraph/token/store"
	"github.com/xraph/token/store/memory"
	"github.com/xraph/token/store/mongo"
	"github.com/xraph/token/store/postgres"
	"github.com/xraph/token/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "token"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Fixed-supply token ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the token ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *token.Ledger
	store      store.Store
	groveDB    *grove.DB
	ledgerOpts []token.Option
}

// New creates a new token Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Engine() *token.Ledger { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the ledger engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := buildStore(e.config.Driver, e.groveDB)
		if err != nil {
			return err
		}
		e.store = s
	}

	e.engine = token.New(e.store, e.buildLedgerOpts()...)

	return vessel.Provide(fapp.Container(), func() (*token.Ledger, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return fmt.Errorf("token: extension not registered: %w", token.ErrStoreNotReady)
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return token.ErrStoreNotReady
	}
	return e.store.Ping(ctx)
}

// buildStore picks the backend for driver. Without a grove.DB the ledger
// runs in memory; a grove.DB needs one of the grove drivers.
func buildStore(driver string, db *grove.DB) (store.Store, error) {
	if db == nil {
		if driver != "" && driver != DriverMemory {
			return nil, fmt.Errorf("token: driver %q needs a grove.DB; use WithGroveDB", driver)
		}
		return memory.New(), nil
	}

	switch driver {
	case "", DriverMemory:
		return nil, fmt.Errorf("token: a grove.DB needs driver %q, %q or %q, got %q",
			DriverSQLite, DriverPostgres, DriverMongo, driver)
	case DriverSQLite:
		return sqlite.New(db), nil
	case DriverPostgres:
		return postgres.New(db), nil
	case DriverMongo:
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("token: unsupported store driver %q", driver)
	}
}

// buildLedgerOpts constructs token.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []token.Option {
	opts := make([]token.Option, 0, len(e.ledgerOpts)+4)

	// Apply config-derived options.
	if e.config.JournalBatchSize > 0 || e.config.JournalFlushInterval > 0 {
		opts = append(opts, token.WithJournalConfig(e.config.JournalBatchSize, e.config.JournalFlushInterval))
	}
	if e.config.PluginTimeout > 0 {
		opts = append(opts, token.WithPluginTimeout(e.config.PluginTimeout))
	}
	if e.config.RejectZeroRecipient {
		opts = append(opts, token.WithRejectZeroRecipient())
	}
	if e.config.DisableMigrate {
		opts = append(opts, token.WithSkipMigrate())
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("token: configuration is required but not found in config files; " +
				"ensure 'extensions.token' or 'token' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("token: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("driver", e.config.Driver),
		forge.F("journal_batch_size", e.config.JournalBatchSize),
		forge.F("journal_flush_interval", e.config.JournalFlushInterval),
		forge.F("reject_zero_recipient", e.config.RejectZeroRecipient),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.token", "token"} {
		if !cm.IsSet(key) {
			continue
		}
		err := cm.Bind(key, &cfg)
		if err == nil {
			e.Logger().Debug("token: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("token: failed to bind config",
			forge.F("key", key),
			forge.F("error", err),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.JournalBatchSize == 0 {
		cfg.JournalBatchSize = defaults.JournalBatchSize
	}
	if cfg.JournalFlushInterval == 0 {
		cfg.JournalFlushInterval = defaults.JournalFlushInterval
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.RejectZeroRecipient {
		yamlConfig.RejectZeroRecipient = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Driver == "" && programmaticConfig.Driver != "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.JournalBatchSize == 0 && programmaticConfig.JournalBatchSize != 0 {
		yamlConfig.JournalBatchSize = programmaticConfig.JournalBatchSize
	}
	if yamlConfig.JournalFlushInterval == 0 && programmaticConfig.JournalFlushInterval != 0 {
		yamlConfig.JournalFlushInterval = programmaticConfig.JournalFlushInterval
	}
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
