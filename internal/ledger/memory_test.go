package ledger

import (
	"context"
	"testing"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"
)

func TestAssetLedgerOwnership(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryAssetLedger()
	l.Seed("gallery", "mona-lisa")

	own, err := l.Ownership(ctx, "gallery", "mona-lisa")
	require.NoError(t, err)
	require.Equal(t, "gallery", own.Owner)
	require.NotEmpty(t, own.RecordID)

	_, err = l.Ownership(ctx, "gallery", "starry-night")
	require.ErrorIs(t, err, ErrAssetNotFound)

	_, err = l.Ownership(ctx, "bob", "mona-lisa")
	require.ErrorIs(t, err, ErrAssetNotFound)
}

func TestAssetLedgerTransferLifecycle(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryAssetLedger()
	l.Seed("gallery", "mona-lisa")

	own, err := l.Ownership(ctx, "gallery", "mona-lisa")
	require.NoError(t, err)

	unsigned, err := l.CreateTransfer(ctx, "gallery", "bob", own)
	require.NoError(t, err)
	require.NotEmpty(t, unsigned.Payload)

	// preparing a transfer has no ledger effect
	still, err := l.Ownership(ctx, "gallery", "mona-lisa")
	require.NoError(t, err)
	require.Equal(t, own.RecordID, still.RecordID)

	proof, err := l.FinalizeTransfer(ctx, "gallery", unsigned)
	require.NoError(t, err)
	require.NotEmpty(t, proof.TxID)
	require.Equal(t, unsigned.Digest(), proof.TransferDigest)

	moved, err := l.Ownership(ctx, "bob", "mona-lisa")
	require.NoError(t, err)
	require.Equal(t, "bob", moved.Owner)
}

func TestAssetLedgerRejectsDoubleFinalize(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryAssetLedger()
	l.Seed("gallery", "mona-lisa")

	own, err := l.Ownership(ctx, "gallery", "mona-lisa")
	require.NoError(t, err)

	first, err := l.CreateTransfer(ctx, "gallery", "bob", own)
	require.NoError(t, err)
	second, err := l.CreateTransfer(ctx, "gallery", "carol", own)
	require.NoError(t, err)

	_, err = l.FinalizeTransfer(ctx, "gallery", first)
	require.NoError(t, err)

	// carol's transfer was built against the consumed record
	_, err = l.FinalizeTransfer(ctx, "gallery", second)
	require.ErrorIs(t, err, ErrStaleTransfer)
}

func TestPaymentLedgerLockClaimBinding(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryPaymentLedger()
	l.Fund("bob", sdk.NewInt64Coin("GBP", 500))

	cond := LockCondition{TransferDigest: "digest-a"}
	ref, err := l.Lock(ctx, "bob", "gallery", sdk.NewInt64Coin("GBP", 100), cond)
	require.NoError(t, err)

	// locking debits the payer up front
	require.Equal(t, sdk.NewInt64Coin("GBP", 400), l.Balance("bob", "GBP"))

	// a proof for a different transfer cannot claim the lock
	_, err = l.Claim(ctx, "gallery", ref, TransferProof{TxID: "tx", TransferDigest: "digest-b"})
	require.ErrorIs(t, err, ErrBadProof)

	claimID, err := l.Claim(ctx, "gallery", ref, TransferProof{TxID: "tx", TransferDigest: "digest-a"})
	require.NoError(t, err)
	require.NotEmpty(t, claimID)
	require.Equal(t, sdk.NewInt64Coin("GBP", 100), l.Balance("gallery", "GBP"))

	// a claimed lock is gone
	_, err = l.Claim(ctx, "gallery", ref, TransferProof{TxID: "tx", TransferDigest: "digest-a"})
	require.ErrorIs(t, err, ErrLockNotFound)
}

func TestPaymentLedgerRelease(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryPaymentLedger()
	l.Fund("bob", sdk.NewInt64Coin("GBP", 100))

	ref, err := l.Lock(ctx, "bob", "gallery", sdk.NewInt64Coin("GBP", 100), LockCondition{TransferDigest: "d"})
	require.NoError(t, err)
	require.True(t, l.Balance("bob", "GBP").IsZero())

	releaseID, err := l.Release(ctx, "gallery", "bob", ref)
	require.NoError(t, err)
	require.NotEmpty(t, releaseID)
	require.Equal(t, sdk.NewInt64Coin("GBP", 100), l.Balance("bob", "GBP"))

	_, err = l.Release(ctx, "gallery", "bob", ref)
	require.ErrorIs(t, err, ErrLockNotFound)
}

func TestPaymentLedgerInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryPaymentLedger()
	l.Fund("bob", sdk.NewInt64Coin("GBP", 50))

	_, err := l.Lock(ctx, "bob", "gallery", sdk.NewInt64Coin("GBP", 100), LockCondition{TransferDigest: "d"})
	require.ErrorIs(t, err, ErrUnavailable)
	require.Equal(t, sdk.NewInt64Coin("GBP", 50), l.Balance("bob", "GBP"))
}
