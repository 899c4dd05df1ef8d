package token_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xraph/token"
	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/signer"
	"github.com/xraph/token/store/memory"
	"github.com/xraph/token/transfer"
)

const supply = 1000

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedger(t *testing.T, opts ...token.Option) *token.Ledger {
	t.Helper()
	opts = append([]token.Option{token.WithLogger(quietLogger())}, opts...)
	l := token.New(memory.New(), opts...)
	require.NoError(t, l.Start(context.Background()))
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

func deploy(t *testing.T, l *token.Ledger, owner address.Address) *contract.Token {
	t.Helper()
	tok, err := l.Deploy(context.Background(), owner, contract.Token{TotalSupply: supply})
	require.NoError(t, err)
	return tok
}

func balance(t *testing.T, l *token.Ledger, tokenID id.TokenID, acct address.Address) uint64 {
	t.Helper()
	bal, err := l.BalanceOf(context.Background(), tokenID, acct)
	require.NoError(t, err)
	return bal
}

func sumHolders(t *testing.T, l *token.Ledger, tokenID id.TokenID) uint64 {
	t.Helper()
	holders, err := l.Holders(context.Background(), tokenID)
	require.NoError(t, err)
	var sum uint64
	for _, bal := range holders {
		sum += bal
	}
	return sum
}

func requireNotEnough(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, "Not enough tokens", err.Error())
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	require.True(t, token.IsRejection(err))

	reason, ok := token.RevertReason(err)
	require.True(t, ok)
	require.Equal(t, token.ReasonInsufficientBalance, reason)
}

// ──────────────────────────────────────────────────
// Deployment
// ──────────────────────────────────────────────────

func TestDeployCreditsOwner(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	accts := signer.Addresses(signer.Dev(3))
	owner := accts[0]

	tok := deploy(t, l, owner)
	require.Equal(t, id.PrefixToken, tok.ID.Prefix())

	require.Equal(t, uint64(supply), balance(t, l, tok.ID, owner))
	require.Zero(t, balance(t, l, tok.ID, accts[1]))
	require.Zero(t, balance(t, l, tok.ID, accts[2]))

	total, err := l.TotalSupply(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, uint64(supply), total)

	got, err := l.Owner(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, owner, got)
}

func TestDeployAppliesDefaults(t *testing.T) {
	l := newLedger(t)
	owner := signer.Dev(1)[0].Address

	tok, err := l.Deploy(context.Background(), owner, contract.Token{TotalSupply: 5})
	require.NoError(t, err)
	require.Equal(t, contract.DefaultName, tok.Name)
	require.Equal(t, contract.DefaultSymbol, tok.Symbol)
	require.Equal(t, "5 TKN", tok.Supply().String())

	tok, err = l.Deploy(context.Background(), owner, contract.Token{Name: "My Token", Symbol: "MHT", Decimals: 2, TotalSupply: 150})
	require.NoError(t, err)
	require.Equal(t, "MHT", tok.Symbol)
	require.Equal(t, "1.50 MHT", tok.Supply().String())
}

func TestDeployCopiesMetadata(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	owner := signer.Dev(1)[0].Address

	def := contract.Token{TotalSupply: 5, Metadata: map[string]string{"k": "v"}}
	tok, err := l.Deploy(ctx, owner, def)
	require.NoError(t, err)

	def.Metadata["k"] = "mutated"
	tok.Metadata["x"] = "injected"

	got, err := l.GetToken(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"k": "v"}, got.Metadata)
}

func TestDeployRejectsZeroOwner(t *testing.T) {
	l := newLedger(t)

	_, err := l.Deploy(context.Background(), address.Zero, contract.Default())
	require.ErrorIs(t, err, token.ErrInvalidInput)

	var ve token.ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "owner", ve.Field)
}

func TestDeploymentsAreIsolated(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	accts := signer.Addresses(signer.Dev(2))

	first := deploy(t, l, accts[0])
	second := deploy(t, l, accts[0])
	require.NotEqual(t, first.ID.String(), second.ID.String())

	require.NoError(t, l.Transfer(ctx, first.ID, accts[0], accts[1], 300))

	require.Equal(t, uint64(300), balance(t, l, first.ID, accts[1]))
	require.Zero(t, balance(t, l, second.ID, accts[1]))
	require.Equal(t, uint64(supply), balance(t, l, second.ID, accts[0]))

	list, err := l.ListTokens(ctx, contract.ListOpts{Owner: accts[0]})
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = l.ListTokens(ctx, contract.ListOpts{Limit: -1, Offset: -1})
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestUnknownToken(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	acct := signer.Dev(1)[0].Address
	missing := id.NewTokenID()

	_, err := l.BalanceOf(ctx, missing, acct)
	require.ErrorIs(t, err, token.ErrTokenNotFound)
	require.True(t, token.IsNotFound(err))

	_, err = l.TotalSupply(ctx, missing)
	require.ErrorIs(t, err, token.ErrTokenNotFound)

	_, err = l.Owner(ctx, missing)
	require.ErrorIs(t, err, token.ErrTokenNotFound)

	_, err = l.Holders(ctx, missing)
	require.ErrorIs(t, err, token.ErrTokenNotFound)

	err = l.Transfer(ctx, missing, acct, acct, 0)
	require.ErrorIs(t, err, token.ErrTokenNotFound)
	require.False(t, token.IsRejection(err))
}

// ──────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────

func TestTransferScenarios(t *testing.T) {
	type step struct {
		from, to int
		amount   uint64
		wantErr  bool
	}

	tests := []struct {
		name  string
		steps []step
		want  map[int]uint64
	}{
		{
			name:  "owner to A then A to B",
			steps: []step{{0, 1, 50, false}, {1, 2, 50, false}},
			want:  map[int]uint64{0: supply - 50, 1: 0, 2: 50},
		},
		{
			name:  "owner pays A and B",
			steps: []step{{0, 1, 100, false}, {0, 2, 50, false}},
			want:  map[int]uint64{0: supply - 150, 1: 100, 2: 50},
		},
		{
			name:  "empty account pays owner",
			steps: []step{{1, 0, 1, true}},
			want:  map[int]uint64{0: supply, 1: 0},
		},
		{
			name:  "whole balance",
			steps: []step{{0, 1, supply, false}},
			want:  map[int]uint64{0: 0, 1: supply},
		},
		{
			name:  "one more than balance",
			steps: []step{{0, 1, 10, false}, {1, 2, 11, true}},
			want:  map[int]uint64{0: supply - 10, 1: 10, 2: 0},
		},
		{
			name:  "zero amount from empty account",
			steps: []step{{1, 2, 0, false}},
			want:  map[int]uint64{0: supply, 1: 0, 2: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			l := newLedger(t)
			accts := signer.Addresses(signer.Dev(3))
			tok := deploy(t, l, accts[0])

			for _, s := range tt.steps {
				err := l.Transfer(ctx, tok.ID, accts[s.from], accts[s.to], s.amount)
				if s.wantErr {
					requireNotEnough(t, err)
				} else {
					require.NoError(t, err)
				}
			}

			for i, want := range tt.want {
				require.Equal(t, want, balance(t, l, tok.ID, accts[i]), "account %d", i)
			}
			require.Equal(t, uint64(supply), sumHolders(t, l, tok.ID))
		})
	}
}

func TestOverdraftLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	accts := signer.Addresses(signer.Dev(2))
	tok := deploy(t, l, accts[0])
	require.NoError(t, l.Transfer(ctx, tok.ID, accts[0], accts[1], 10))

	before, err := l.Holders(ctx, tok.ID)
	require.NoError(t, err)

	for range 3 {
		requireNotEnough(t, l.Transfer(ctx, tok.ID, accts[1], accts[0], 11))
	}

	after, err := l.Holders(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSelfTransfer(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	owner := signer.Dev(1)[0].Address
	tok := deploy(t, l, owner)

	require.NoError(t, l.Transfer(ctx, tok.ID, owner, owner, 400))
	require.Equal(t, uint64(supply), balance(t, l, tok.ID, owner))

	requireNotEnough(t, l.Transfer(ctx, tok.ID, owner, owner, supply+1))
	require.Equal(t, uint64(supply), balance(t, l, tok.ID, owner))
}

func TestZeroRecipient(t *testing.T) {
	ctx := context.Background()
	owner := signer.Dev(1)[0].Address

	t.Run("accepted by default", func(t *testing.T) {
		l := newLedger(t)
		tok := deploy(t, l, owner)

		require.NoError(t, l.Transfer(ctx, tok.ID, owner, address.Zero, 5))
		require.Equal(t, uint64(5), balance(t, l, tok.ID, address.Zero))
		require.Equal(t, uint64(supply), sumHolders(t, l, tok.ID))
	})

	t.Run("rejected when configured", func(t *testing.T) {
		l := newLedger(t, token.WithRejectZeroRecipient())
		tok := deploy(t, l, owner)

		err := l.Transfer(ctx, tok.ID, owner, address.Zero, 5)
		require.Error(t, err)
		require.Equal(t, "Invalid recipient", err.Error())
		require.ErrorIs(t, err, token.ErrInvalidRecipient)
		require.True(t, token.IsRejection(err))
		require.Equal(t, uint64(supply), balance(t, l, tok.ID, owner))
	})
}

func TestHoldersOmitsEmptyAccounts(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	accts := signer.Addresses(signer.Dev(2))
	tok := deploy(t, l, accts[0])

	require.NoError(t, l.Transfer(ctx, tok.ID, accts[0], accts[1], supply))

	holders, err := l.Holders(ctx, tok.ID)
	require.NoError(t, err)
	require.Equal(t, map[address.Address]uint64{accts[1]: supply}, holders)
}

func TestRandomTransfersConserveSupply(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	accts := signer.Addresses(signer.Dev(5))
	tok := deploy(t, l, accts[0])

	rng := rand.New(rand.NewPCG(7, 11))
	model := map[address.Address]uint64{accts[0]: supply}

	for i := range 500 {
		from := accts[rng.IntN(len(accts))]
		to := accts[rng.IntN(len(accts))]
		amount := rng.Uint64N(300)

		err := l.Transfer(ctx, tok.ID, from, to, amount)
		if model[from] < amount {
			requireNotEnough(t, err)
		} else {
			require.NoError(t, err, "step %d", i)
			model[from] -= amount
			model[to] += amount
		}

		require.Equal(t, uint64(supply), sumHolders(t, l, tok.ID), "step %d", i)
	}

	for _, acct := range accts {
		require.Equal(t, model[acct], balance(t, l, tok.ID, acct))
	}
}

func TestConcurrentTransfersConserveSupply(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	accts := signer.Addresses(signer.Dev(4))
	tok := deploy(t, l, accts[0])

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from := accts[i%len(accts)]
			to := accts[(i+1)%len(accts)]
			err := l.Transfer(ctx, tok.ID, from, to, uint64(10+i%20))
			if err != nil && !errors.Is(err, token.ErrInsufficientBalance) {
				t.Errorf("transfer %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, uint64(supply), sumHolders(t, l, tok.ID))
}

// ──────────────────────────────────────────────────
// Sessions
// ──────────────────────────────────────────────────

func TestSessionActsAsCaller(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t)
	accts := signer.Addresses(signer.Dev(3))
	owner, a, b := accts[0], accts[1], accts[2]
	tok := deploy(t, l, owner)

	asOwner := l.Connect(tok.ID, owner)
	require.Equal(t, owner, asOwner.Caller())
	require.Equal(t, tok.ID.String(), asOwner.TokenID().String())
	require.NoError(t, asOwner.Transfer(ctx, a, 50))

	asA := asOwner.Connect(a)
	require.NoError(t, asA.Transfer(ctx, b, 50))

	bal, err := asA.Balance(ctx)
	require.NoError(t, err)
	require.Zero(t, bal)

	bal, err = asA.BalanceOf(ctx, b)
	require.NoError(t, err)
	require.Equal(t, uint64(50), bal)

	requireNotEnough(t, asA.Transfer(ctx, owner, 1))

	gotOwner, err := asA.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, owner, gotOwner)

	total, err := asA.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(supply), total)

	info, err := asA.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, contract.DefaultSymbol, info.Symbol)
}

// ──────────────────────────────────────────────────
// Journal
// ──────────────────────────────────────────────────

func TestHistoryAfterFlush(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, token.WithJournalConfig(1000, time.Hour))
	accts := signer.Addresses(signer.Dev(3))
	tok := deploy(t, l, accts[0])

	require.NoError(t, l.Transfer(ctx, tok.ID, accts[0], accts[1], 100))
	require.NoError(t, l.Transfer(ctx, tok.ID, accts[0], accts[2], 50))
	requireNotEnough(t, l.Transfer(ctx, tok.ID, accts[2], accts[1], 51))

	require.NoError(t, l.Flush(ctx))

	all, err := l.History(ctx, tok.ID, transfer.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, uint64(50), all[0].Amount)
	require.Equal(t, uint64(100), all[1].Amount)
	require.Equal(t, id.PrefixTransfer, all[0].ID.Prefix())

	forB, err := l.History(ctx, tok.ID, transfer.QueryOpts{Account: accts[2]})
	require.NoError(t, err)
	require.Len(t, forB, 1)
	require.Equal(t, accts[2], forB[0].To)
}

func TestHistoryWithoutWorker(t *testing.T) {
	ctx := context.Background()
	l := token.New(memory.New(), token.WithLogger(quietLogger()))
	accts := signer.Addresses(signer.Dev(2))

	tok, err := l.Deploy(ctx, accts[0], contract.Default())
	require.NoError(t, err)
	require.NoError(t, l.Transfer(ctx, tok.ID, accts[0], accts[1], 1))
	require.NoError(t, l.Flush(ctx))

	recs, err := l.History(ctx, tok.ID, transfer.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestStopFlushesJournal(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := token.New(s, token.WithLogger(quietLogger()), token.WithJournalConfig(1000, time.Hour))
	require.NoError(t, l.Start(ctx))

	accts := signer.Addresses(signer.Dev(2))
	tok, err := l.Deploy(ctx, accts[0], contract.Default())
	require.NoError(t, err)
	require.NoError(t, l.Transfer(ctx, tok.ID, accts[0], accts[1], 1))

	require.NoError(t, l.Stop())

	recs, err := s.QueryTransfers(ctx, tok.ID, transfer.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

type shutdownCounter struct {
	inits     atomic.Int32
	shutdowns atomic.Int32
}

func (c *shutdownCounter) Name() string { return "shutdown-counter" }

func (c *shutdownCounter) OnInit(context.Context, interface{}) error {
	c.inits.Add(1)
	return nil
}

func (c *shutdownCounter) OnShutdown(context.Context) error {
	c.shutdowns.Add(1)
	return nil
}

func TestStartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	counter := &shutdownCounter{}
	l := newLedger(t, token.WithPlugin(counter), token.WithJournalConfig(1000, time.Hour))
	require.NoError(t, l.Start(ctx))
	require.Equal(t, int32(1), counter.inits.Load())

	accts := signer.Addresses(signer.Dev(2))
	tok := deploy(t, l, accts[0])
	require.NoError(t, l.Transfer(ctx, tok.ID, accts[0], accts[1], 5))
	require.NoError(t, l.Flush(ctx))

	recs, err := l.History(ctx, tok.ID, transfer.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestStopIsTerminal(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	counter := &shutdownCounter{}
	l := token.New(s,
		token.WithLogger(quietLogger()),
		token.WithPlugin(counter),
		token.WithJournalConfig(1000, time.Hour),
	)
	require.NoError(t, l.Start(ctx))

	accts := signer.Addresses(signer.Dev(2))
	tok := deploy(t, l, accts[0])
	require.NoError(t, l.Transfer(ctx, tok.ID, accts[0], accts[1], 5))

	require.NoError(t, l.Stop())
	require.NoError(t, l.Stop())
	require.Equal(t, int32(1), counter.shutdowns.Load())

	require.ErrorIs(t, l.Start(ctx), token.ErrStoreClosed)
	require.ErrorIs(t, l.Transfer(ctx, tok.ID, accts[0], accts[1], 5), token.ErrStoreClosed)
	_, err := l.BalanceOf(ctx, tok.ID, accts[1])
	require.ErrorIs(t, err, token.ErrStoreClosed)
	_, err = l.Deploy(ctx, accts[0], contract.Default())
	require.ErrorIs(t, err, token.ErrStoreClosed)
	require.NoError(t, l.Flush(ctx))

	// Only the transfer made before Stop reached the store.
	recs, err := s.QueryTransfers(ctx, tok.ID, transfer.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	bal, err := s.Balance(ctx, tok.ID, accts[1])
	require.NoError(t, err)
	require.Equal(t, uint64(5), bal)
}

func TestStopDuringTransfersKeepsJournal(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := token.New(s, token.WithLogger(quietLogger()), token.WithJournalConfig(1000, time.Hour))
	require.NoError(t, l.Start(ctx))

	accts := signer.Addresses(signer.Dev(4))
	tok := deploy(t, l, accts[0])

	var (
		wg      sync.WaitGroup
		applied atomic.Int64
	)
	for w := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				err := l.Transfer(ctx, tok.ID, accts[0], accts[w+1], 1)
				if errors.Is(err, token.ErrStoreClosed) {
					return
				}
				if err == nil {
					applied.Add(1)
				}
			}
		}()
	}

	time.Sleep(time.Millisecond)
	require.NoError(t, l.Stop())
	wg.Wait()

	recs, err := s.QueryTransfers(ctx, tok.ID, transfer.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, recs, int(applied.Load()))

	bal, err := s.Balance(ctx, tok.ID, accts[0])
	require.NoError(t, err)
	require.Equal(t, uint64(supply)-uint64(applied.Load()), bal)
}

// ──────────────────────────────────────────────────
// Plugins
// ──────────────────────────────────────────────────

type eventCounter struct {
	mu       sync.Mutex
	deployed int
	applied  int
	rejected []string
	flushed  int
}

func (c *eventCounter) Name() string { return "event-counter" }

func (c *eventCounter) OnTokenDeployed(context.Context, *contract.Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deployed++
	return nil
}

func (c *eventCounter) OnTransfer(context.Context, *transfer.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied++
	return nil
}

func (c *eventCounter) OnTransferRejected(_ context.Context, r *plugin.Rejection) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejected = append(c.rejected, r.Reason)
	return nil
}

func (c *eventCounter) OnJournalFlushed(_ context.Context, count int, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushed += count
	return nil
}

func TestPluginsObserveLedger(t *testing.T) {
	ctx := context.Background()
	counter := &eventCounter{}
	l := newLedger(t, token.WithPlugin(counter), token.WithJournalConfig(1000, time.Hour))
	require.Equal(t, 1, l.Plugins().Count())

	accts := signer.Addresses(signer.Dev(2))
	tok := deploy(t, l, accts[0])
	require.NoError(t, l.Transfer(ctx, tok.ID, accts[0], accts[1], 10))
	require.NoError(t, l.Transfer(ctx, tok.ID, accts[1], accts[0], 10))
	requireNotEnough(t, l.Transfer(ctx, tok.ID, accts[1], accts[0], 1))
	require.NoError(t, l.Flush(ctx))

	counter.mu.Lock()
	defer counter.mu.Unlock()
	require.Equal(t, 1, counter.deployed)
	require.Equal(t, 2, counter.applied)
	require.Equal(t, []string{"Not enough tokens"}, counter.rejected)
	require.Equal(t, 2, counter.flushed)
}
