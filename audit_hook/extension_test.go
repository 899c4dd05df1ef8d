package audithook_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	audithook "github.com/xraph/token/audit_hook"
	"github.com/xraph/token/contract"
	"github.com/xraph/token/id"
	"github.com/xraph/token/plugin"
	"github.com/xraph/token/signer"
	"github.com/xraph/token/transfer"
)

type sink struct {
	events []*audithook.AuditEvent
}

func (s *sink) Record(_ context.Context, evt *audithook.AuditEvent) error {
	s.events = append(s.events, evt)
	return nil
}

func TestRecordsTransferEvents(t *testing.T) {
	ctx := context.Background()
	accts := signer.Addresses(signer.Dev(2))
	s := &sink{}
	ext := audithook.New(s)

	rec := &transfer.Record{ID: id.NewTransferID(), TokenID: id.NewTokenID(), From: accts[0], To: accts[1], Amount: 50}
	require.NoError(t, ext.OnTransfer(ctx, rec))
	require.NoError(t, ext.OnTransferRejected(ctx, &plugin.Rejection{
		TokenID: rec.TokenID, From: accts[1], To: accts[0], Amount: 1000, Reason: "Not enough tokens",
	}))

	require.Len(t, s.events, 2)

	applied := s.events[0]
	require.Equal(t, audithook.ActionTransferApplied, applied.Action)
	require.Equal(t, audithook.OutcomeSuccess, applied.Outcome)
	require.Equal(t, rec.ID.String(), applied.ResourceID)
	require.Equal(t, uint64(50), applied.Metadata["amount"])

	rejected := s.events[1]
	require.Equal(t, audithook.ActionTransferRejected, rejected.Action)
	require.Equal(t, audithook.OutcomeFailure, rejected.Outcome)
	require.Equal(t, "Not enough tokens", rejected.Reason)
}

func TestRecordsDeployAndFlush(t *testing.T) {
	ctx := context.Background()
	s := &sink{}
	ext := audithook.New(s)

	tok := contract.Default()
	tok.ID = id.NewTokenID()
	tok.Owner = signer.Dev(1)[0].Address

	require.NoError(t, ext.OnTokenDeployed(ctx, &tok))
	require.NoError(t, ext.OnJournalFlushed(ctx, 3, 2*time.Millisecond))

	require.Len(t, s.events, 2)
	require.Equal(t, audithook.ActionTokenDeployed, s.events[0].Action)
	require.Equal(t, tok.ID.String(), s.events[0].ResourceID)
	require.Equal(t, audithook.ActionJournalFlushed, s.events[1].Action)
	require.Equal(t, 3, s.events[1].Metadata["count"])
}

func TestActionFiltering(t *testing.T) {
	ctx := context.Background()
	rec := &transfer.Record{ID: id.NewTransferID(), TokenID: id.NewTokenID()}

	tests := []struct {
		name string
		opts []audithook.Option
		want int
	}{
		{"all enabled", nil, 2},
		{"only rejections", []audithook.Option{audithook.WithEnabledActions(audithook.ActionTransferRejected)}, 1},
		{"applied disabled", []audithook.Option{audithook.WithDisabledActions(audithook.ActionTransferApplied)}, 1},
		{"both disabled", []audithook.Option{audithook.WithDisabledActions(audithook.ActionTransferApplied, audithook.ActionTransferRejected)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &sink{}
			ext := audithook.New(s, tt.opts...)
			require.NoError(t, ext.OnTransfer(ctx, rec))
			require.NoError(t, ext.OnTransferRejected(ctx, &plugin.Rejection{Reason: "Not enough tokens"}))
			require.Len(t, s.events, tt.want)
		})
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	ext := audithook.New(failing, audithook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	err := ext.OnTransfer(context.Background(), &transfer.Record{ID: id.NewTransferID()})
	require.NoError(t, err)
}
