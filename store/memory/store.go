// Package memory implements store.Store in process memory. It is the
// default backend and the one used by tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/xraph/token"
	"github.com/xraph/token/address"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	"github.com/xraph/token/store"
	"github.com/xraph/token/transfer"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store holds all state behind one RWMutex, so every method is atomic.
type Store struct {
	mu sync.RWMutex

	// Token storage, keyed by token ID string
	tokens map[string]*contract.Token
	order  []string

	// Balance storage
	balances map[string]map[address.Address]uint64

	// Journal storage
	transfers map[string][]transfer.Record
	seen      map[string]struct{}
}

// New creates an empty memory store.
func New() *Store {
	return &Store{
		tokens:    make(map[string]*contract.Token),
		balances:  make(map[string]map[address.Address]uint64),
		transfers: make(map[string][]transfer.Record),
		seen:      make(map[string]struct{}),
	}
}

// Token Store implementation
func (s *Store) CreateToken(_ context.Context, t *contract.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := t.ID.String()
	if _, exists := s.tokens[key]; exists {
		return token.ErrAlreadyExists
	}

	s.tokens[key] = cloneToken(t)
	s.order = append(s.order, key)
	s.balances[key] = map[address.Address]uint64{t.Owner: t.TotalSupply}
	return nil
}

func (s *Store) GetToken(_ context.Context, tokenID id.TokenID) (*contract.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tokens[tokenID.String()]; ok {
		return cloneToken(t), nil
	}
	return nil, token.ErrTokenNotFound
}

func (s *Store) ListTokens(_ context.Context, opts contract.ListOpts) ([]*contract.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*contract.Token, 0)
	for _, key := range s.order {
		t := s.tokens[key]
		if !opts.Owner.IsZero() && t.Owner != opts.Owner {
			continue
		}
		if opts.Symbol != "" && t.Symbol != opts.Symbol {
			continue
		}
		result = append(result, cloneToken(t))
	}

	return paginate(result, opts.Offset, opts.Limit), nil
}

// Balance Store implementation
func (s *Store) Balance(_ context.Context, tokenID id.TokenID, account address.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bals, ok := s.balances[tokenID.String()]
	if !ok {
		return 0, token.ErrTokenNotFound
	}
	return bals[account], nil
}

func (s *Store) Balances(_ context.Context, tokenID id.TokenID) (map[address.Address]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bals, ok := s.balances[tokenID.String()]
	if !ok {
		return nil, token.ErrTokenNotFound
	}

	result := make(map[address.Address]uint64, len(bals))
	for acct, bal := range bals {
		result[acct] = bal
	}
	return result, nil
}

func (s *Store) Move(_ context.Context, tokenID id.TokenID, from, to address.Address, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bals, ok := s.balances[tokenID.String()]
	if !ok {
		return token.ErrTokenNotFound
	}
	if bals[from] < amount {
		return fmt.Errorf("memory: move %d from %s: %w", amount, from, token.ErrInsufficientBalance)
	}
	if from == to {
		return nil
	}

	bals[from] -= amount
	bals[to] += amount
	return nil
}

// Journal Store implementation
func (s *Store) RecordTransfers(_ context.Context, recs []*transfer.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range recs {
		key := r.ID.String()
		if _, dup := s.seen[key]; dup {
			continue
		}
		s.seen[key] = struct{}{}
		tokenKey := r.TokenID.String()
		s.transfers[tokenKey] = append(s.transfers[tokenKey], *r)
	}
	return nil
}

func (s *Store) QueryTransfers(_ context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.transfers[tokenID.String()]
	result := make([]*transfer.Record, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		if opts.Matches(&recs[i]) {
			cp := recs[i]
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// cloneToken copies t so callers never share its Metadata map with the store.
func cloneToken(t *contract.Token) *contract.Token {
	cp := *t
	cp.Metadata = maps.Clone(t.Metadata)
	return &cp
}

// paginate ignores a non-positive limit or offset, as the SQL backends do.
func paginate[T any](items []T, offset, limit int) []T {
	start := max(offset, 0)
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
