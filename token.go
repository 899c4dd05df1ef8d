package token

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/store"
	"github.com/xraph/token/transfer"
	"github.com/xraph/token/types"
)

// Ledger is the token ledger engine.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// mu serializes every mutating call.
	mu sync.Mutex

	// lifecycle is held for reading by every call and for writing by
	// Start and Stop. stopped is guarded by it.
	lifecycle sync.RWMutex
	stopped   bool

	// Background journal
	journal  chan *transfer.Record
	flushReq chan chan struct{}
	stopChan chan struct{}
	running  atomic.Bool
	wg       sync.WaitGroup

	// Configuration
	journalBatchSize     int
	journalFlushInterval time.Duration
	rejectZeroRecipient  bool
	skipMigrate          bool
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:                s,
		plugins:              plugin.NewRegistry(),
		logger:               slog.Default(),
		journal:              make(chan *transfer.Record, 10000),
		flushReq:             make(chan chan struct{}),
		stopChan:             make(chan struct{}),
		journalBatchSize:     100,
		journalFlushInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithJournalConfig configures transfer journal batching.
func WithJournalConfig(batchSize int, flushInterval time.Duration) Option {
	return func(l *Ledger) {
		if batchSize > 0 {
			l.journalBatchSize = batchSize
		}
		if flushInterval > 0 {
			l.journalFlushInterval = flushInterval
		}
	}
}

// WithRejectZeroRecipient makes transfers to the zero address fail with
// ErrInvalidRecipient.
func WithRejectZeroRecipient() Option {
	return func(l *Ledger) {
		l.rejectZeroRecipient = true
	}
}

// WithSkipMigrate makes Start leave the store schema alone.
func WithSkipMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// Start migrates the store and begins the journal worker. Calling Start on
// a running ledger does nothing; a stopped ledger cannot be restarted and
// returns ErrStoreClosed.
func (l *Ledger) Start(ctx context.Context) error {
	l.lifecycle.Lock()
	if l.stopped {
		l.lifecycle.Unlock()
		return ErrStoreClosed
	}
	if l.running.Load() {
		l.lifecycle.Unlock()
		return nil
	}

	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			l.lifecycle.Unlock()
			return err
		}
	}

	l.wg.Add(1)
	l.running.Store(true)
	go l.journalWorker(context.WithoutCancel(ctx))
	l.lifecycle.Unlock()

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("token ledger started",
		"journal_batch_size", l.journalBatchSize,
		"journal_flush_interval", l.journalFlushInterval,
		"reject_zero_recipient", l.rejectZeroRecipient,
	)

	return nil
}

// Stop flushes the journal, shuts plugins down and closes the store. It
// waits for in-flight calls to finish; later calls fail with
// ErrStoreClosed. Stopping twice is a no-op.
func (l *Ledger) Stop() error {
	l.lifecycle.Lock()
	if l.stopped {
		l.lifecycle.Unlock()
		return nil
	}
	l.stopped = true
	wasRunning := l.running.Swap(false)
	l.lifecycle.Unlock()

	if wasRunning {
		close(l.stopChan)
		l.wg.Wait()
	}

	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// acquire takes a read hold on the lifecycle. The caller must call the
// returned release once it is done with the store.
func (l *Ledger) acquire() (release func(), err error) {
	l.lifecycle.RLock()
	if l.stopped {
		l.lifecycle.RUnlock()
		return nil, ErrStoreClosed
	}
	return l.lifecycle.RUnlock, nil
}

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// ──────────────────────────────────────────────────
// Deployment
// ──────────────────────────────────────────────────

// Deploy creates a token owned by owner and credits owner with the whole
// supply. Empty name and symbol take the contract defaults.
func (l *Ledger) Deploy(ctx context.Context, owner address.Address, def contract.Token) (*contract.Token, error) {
	if owner.IsZero() {
		return nil, ValidationError{Field: "owner", Message: "must not be the zero address"}
	}

	t := def
	t.Metadata = maps.Clone(def.Metadata)
	t.ID = id.NewTokenID()
	t.Entity = types.NewEntity()
	t.Owner = owner
	if t.Name == "" {
		t.Name = contract.DefaultName
	}
	if t.Symbol == "" {
		t.Symbol = contract.DefaultSymbol
	}

	release, err := l.acquire()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	err = l.store.CreateToken(ctx, &t)
	l.mu.Unlock()
	release()
	if err != nil {
		return nil, err
	}

	l.logger.Info("token deployed",
		"token_id", t.ID.String(),
		"symbol", t.Symbol,
		"owner", owner.String(),
		"total_supply", t.TotalSupply,
	)

	l.plugins.EmitTokenDeployed(ctx, &t)
	return &t, nil
}

// GetToken retrieves a deployed token.
func (l *Ledger) GetToken(ctx context.Context, tokenID id.TokenID) (*contract.Token, error) {
	release, err := l.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return l.store.GetToken(ctx, tokenID)
}

// ListTokens lists deployed tokens.
func (l *Ledger) ListTokens(ctx context.Context, opts contract.ListOpts) ([]*contract.Token, error) {
	release, err := l.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return l.store.ListTokens(ctx, opts)
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// BalanceOf returns the balance of account, 0 if it never held tokens.
func (l *Ledger) BalanceOf(ctx context.Context, tokenID id.TokenID, account address.Address) (uint64, error) {
	release, err := l.acquire()
	if err != nil {
		return 0, err
	}
	defer release()

	if _, err := l.store.GetToken(ctx, tokenID); err != nil {
		return 0, err
	}
	return l.store.Balance(ctx, tokenID, account)
}

// TotalSupply returns the supply fixed at deployment.
func (l *Ledger) TotalSupply(ctx context.Context, tokenID id.TokenID) (uint64, error) {
	t, err := l.GetToken(ctx, tokenID)
	if err != nil {
		return 0, err
	}
	return t.TotalSupply, nil
}

// Owner returns the deployer of the token.
func (l *Ledger) Owner(ctx context.Context, tokenID id.TokenID) (address.Address, error) {
	t, err := l.GetToken(ctx, tokenID)
	if err != nil {
		return address.Zero, err
	}
	return t.Owner, nil
}

// Holders returns every account with a non-zero balance.
func (l *Ledger) Holders(ctx context.Context, tokenID id.TokenID) (map[address.Address]uint64, error) {
	release, err := l.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := l.store.GetToken(ctx, tokenID); err != nil {
		return nil, err
	}

	all, err := l.store.Balances(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	holders := make(map[address.Address]uint64, len(all))
	for acct, bal := range all {
		if bal > 0 {
			holders[acct] = bal
		}
	}
	return holders, nil
}

// History returns journaled transfers, newest first. Transfers still queued
// in the journal are not visible until the next flush; see Flush.
func (l *Ledger) History(ctx context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Record, error) {
	release, err := l.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	return l.store.QueryTransfers(ctx, tokenID, opts)
}

// ──────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────

// Transfer moves amount from caller to to. When caller holds less than
// amount it returns a *RevertError with reason "Not enough tokens" and
// leaves every balance unchanged. A self-transfer succeeds without
// changing the balance.
func (l *Ledger) Transfer(ctx context.Context, tokenID id.TokenID, caller, to address.Address, amount uint64) error {
	release, err := l.acquire()
	if err != nil {
		return err
	}
	rec, rej, err := l.applyTransfer(ctx, tokenID, caller, to, amount)
	if rec != nil {
		// Journaled before Stop can run, so no applied transfer is lost.
		l.enqueue(ctx, rec)
	}
	release()
	if err != nil {
		return err
	}

	if rej != nil {
		l.logger.Debug("transfer rejected",
			"token_id", tokenID.String(),
			"from", caller.String(),
			"to", to.String(),
			"amount", amount,
			"reason", rej.Reason,
		)
		l.plugins.EmitTransferRejected(ctx, rej)
		if rej.Reason == ReasonInvalidRecipient {
			return revert(rej.Reason, ErrInvalidRecipient)
		}
		return revert(rej.Reason, ErrInsufficientBalance)
	}

	l.logger.Debug("transfer applied",
		"token_id", tokenID.String(),
		"from", caller.String(),
		"to", to.String(),
		"amount", amount,
	)

	l.plugins.EmitTransfer(ctx, rec)
	return nil
}

// applyTransfer checks preconditions and mutates state under l.mu. Exactly
// one of rec, rej and err is non-nil.
func (l *Ledger) applyTransfer(ctx context.Context, tokenID id.TokenID, caller, to address.Address, amount uint64) (*transfer.Record, *plugin.Rejection, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.store.GetToken(ctx, tokenID); err != nil {
		return nil, nil, err
	}

	rejection := func(reason string) *plugin.Rejection {
		return &plugin.Rejection{TokenID: tokenID, From: caller, To: to, Amount: amount, Reason: reason}
	}

	if l.rejectZeroRecipient && to.IsZero() {
		return nil, rejection(ReasonInvalidRecipient), nil
	}

	if caller == to {
		bal, err := l.store.Balance(ctx, tokenID, caller)
		if err != nil {
			return nil, nil, err
		}
		if bal < amount {
			return nil, rejection(ReasonInsufficientBalance), nil
		}
	} else if err := l.store.Move(ctx, tokenID, caller, to, amount); err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, rejection(ReasonInsufficientBalance), nil
		}
		return nil, nil, err
	}

	return &transfer.Record{
		ID:        id.NewTransferID(),
		TokenID:   tokenID,
		From:      caller,
		To:        to,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}, nil, nil
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

// enqueue hands rec to the journal worker, writing it directly when the
// worker is not running or its buffer is full. The caller holds the
// lifecycle read lock, so Stop cannot retire the worker in between.
func (l *Ledger) enqueue(ctx context.Context, rec *transfer.Record) {
	if l.running.Load() {
		select {
		case l.journal <- rec:
			return
		default:
		}
	}
	l.flushJournalBatch(ctx, []*transfer.Record{rec})
}

// Flush blocks until every queued transfer record has been written.
func (l *Ledger) Flush(ctx context.Context) error {
	if !l.running.Load() {
		return nil
	}

	done := make(chan struct{})
	select {
	case l.flushReq <- done:
	case <-l.stopChan:
		// Stop is draining the journal; wait for the worker to finish.
		l.wg.Wait()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// journalWorker flushes transfer records to the store.
func (l *Ledger) journalWorker(ctx context.Context) {
	defer l.wg.Done()

	batch := make([]*transfer.Record, 0, l.journalBatchSize)
	ticker := time.NewTicker(l.journalFlushInterval)
	defer ticker.Stop()

	drain := func() {
		for {
			select {
			case rec := <-l.journal:
				batch = append(batch, rec)
			default:
				return
			}
		}
	}

	flush := func() {
		if len(batch) > 0 {
			l.flushJournalBatch(ctx, batch)
			batch = make([]*transfer.Record, 0, l.journalBatchSize)
		}
	}

	for {
		select {
		case <-l.stopChan:
			// Final flush
			drain()
			flush()
			return

		case done := <-l.flushReq:
			drain()
			flush()
			close(done)

		case rec := <-l.journal:
			batch = append(batch, rec)
			if len(batch) >= l.journalBatchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

func (l *Ledger) flushJournalBatch(ctx context.Context, batch []*transfer.Record) {
	start := time.Now()

	if err := l.store.RecordTransfers(ctx, batch); err != nil {
		l.logger.Error("failed to flush transfer journal",
			"error", err,
			"batch_size", len(batch),
		)
		return
	}

	elapsed := time.Since(start)
	l.plugins.EmitJournalFlushed(ctx, len(batch), elapsed)

	l.logger.Debug("flushed transfer journal",
		"batch_size", len(batch),
		"elapsed_ms", elapsed.Milliseconds(),
	)
}
