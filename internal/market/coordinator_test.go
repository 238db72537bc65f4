package market

import (
	"context"
	"sync"
	"testing"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"artmarket/broker/internal/identity"
	"artmarket/broker/internal/ledger"
	"artmarket/broker/internal/receipt"
	"artmarket/broker/internal/swap"
)

type fixture struct {
	coord  *Coordinator
	assets *ledger.MemoryAssetLedger
	pay    *ledger.MemoryPaymentLedger
}

func newFixture(t *testing.T, assetIDs ...string) fixture {
	t.Helper()
	reg := identity.NewRegistry(
		identity.Entry{Name: "gallery", AssetParty: "asset-gallery", PaymentParty: "pay-gallery"},
		identity.Entry{Name: "alice", AssetParty: "asset-alice", PaymentParty: "pay-alice"},
		identity.Entry{Name: "bob", AssetParty: "asset-bob", PaymentParty: "pay-bob"},
		identity.Entry{Name: "carol", AssetParty: "asset-carol", PaymentParty: "pay-carol"},
	)
	assets := ledger.NewMemoryAssetLedger()
	assets.Seed("asset-gallery", assetIDs...)
	pay := ledger.NewMemoryPaymentLedger()
	for _, p := range []string{"pay-alice", "pay-bob", "pay-carol"} {
		pay.Fund(p, sdk.NewInt64Coin("GBP", 1000))
	}
	orch := swap.NewOrchestrator(reg, assets, pay, pay, "gallery", zerolog.Nop())
	coord := NewCoordinator(orch, reg, assets, "gallery", zerolog.Nop())
	return fixture{coord: coord, assets: assets, pay: pay}
}

func TestPlaceBidThenAward(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "asset-x")

	bid, err := f.coord.PlaceBid(ctx, "bob", "asset-x", sdk.NewInt64Coin("GBP", 100))
	require.NoError(t, err)
	require.Equal(t, "bob", bid.Bidder)

	result, err := f.coord.AwardArtwork(ctx, "bob", "asset-x", "GBP")
	require.NoError(t, err)
	require.Len(t, result.Receipts(), 1)
	require.Equal(t, receipt.KindSale, result.Sale.Kind())
	require.Equal(t, sdk.NewInt64Coin("GBP", 100), result.Sale.Amount)
	require.Empty(t, result.Failed)

	// the open bid transitioned to its terminal receipt
	require.Empty(t, f.coord.OpenBids("asset-x"))
}

func TestAwardCancelsLosingBids(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "asset-y")

	_, err := f.coord.PlaceBid(ctx, "alice", "asset-y", sdk.NewInt64Coin("GBP", 50))
	require.NoError(t, err)
	_, err = f.coord.PlaceBid(ctx, "carol", "asset-y", sdk.NewInt64Coin("GBP", 60))
	require.NoError(t, err)

	result, err := f.coord.AwardArtwork(ctx, "alice", "asset-y", "GBP")
	require.NoError(t, err)
	require.Len(t, result.Receipts(), 2)
	require.Equal(t, "alice", result.Sale.Bidder)
	require.Len(t, result.Cancellations, 1)
	require.Equal(t, "carol", result.Cancellations[0].Bidder)
	require.Empty(t, result.Failed)

	// carol got her lock back, alice paid
	require.Equal(t, sdk.NewInt64Coin("GBP", 1000), f.pay.Balance("pay-carol", "GBP"))
	require.Equal(t, sdk.NewInt64Coin("GBP", 950), f.pay.Balance("pay-alice", "GBP"))
	require.Equal(t, sdk.NewInt64Coin("GBP", 50), f.pay.Balance("pay-gallery", "GBP"))
	require.Empty(t, f.coord.OpenBids("asset-y"))
}

type releaseRefusingLedger struct {
	*ledger.MemoryPaymentLedger
}

func (l releaseRefusingLedger) Release(context.Context, string, string, string) (string, error) {
	return "", errorsmod.Wrap(ledger.ErrUnavailable, "gateway down")
}

func TestAwardReportsFailedCancellationsAndLeavesBidOpen(t *testing.T) {
	ctx := context.Background()
	reg := identity.NewRegistry(
		identity.Entry{Name: "gallery", AssetParty: "asset-gallery", PaymentParty: "pay-gallery"},
		identity.Entry{Name: "alice", AssetParty: "asset-alice", PaymentParty: "pay-alice"},
		identity.Entry{Name: "carol", AssetParty: "asset-carol", PaymentParty: "pay-carol"},
	)
	assets := ledger.NewMemoryAssetLedger()
	assets.Seed("asset-gallery", "asset-y")
	pay := ledger.NewMemoryPaymentLedger()
	pay.Fund("pay-alice", sdk.NewInt64Coin("GBP", 1000))
	pay.Fund("pay-carol", sdk.NewInt64Coin("GBP", 1000))
	orch := swap.NewOrchestrator(reg, assets, pay, releaseRefusingLedger{pay}, "gallery", zerolog.Nop())
	coord := NewCoordinator(orch, reg, assets, "gallery", zerolog.Nop())

	_, err := coord.PlaceBid(ctx, "alice", "asset-y", sdk.NewInt64Coin("GBP", 50))
	require.NoError(t, err)
	_, err = coord.PlaceBid(ctx, "carol", "asset-y", sdk.NewInt64Coin("GBP", 60))
	require.NoError(t, err)

	result, err := coord.AwardArtwork(ctx, "alice", "asset-y", "GBP")
	require.NoError(t, err)

	// the winning sale completes even though the compensation leg failed
	require.Equal(t, "alice", result.Sale.Bidder)
	require.NotEmpty(t, result.Sale.ClaimTxID)
	require.Empty(t, result.Cancellations)

	require.Len(t, result.Failed, 1)
	require.Equal(t, "carol", result.Failed[0].Bid.Bidder)
	require.ErrorIs(t, result.Failed[0].Err, swap.ErrSwapFailed)

	// carol's bid stays open with her payment still locked
	open := coord.OpenBids("asset-y")
	require.Len(t, open, 1)
	require.Equal(t, "carol", open[0].Key().Bidder)
	require.Equal(t, sdk.NewInt64Coin("GBP", 940), pay.Balance("pay-carol", "GBP"))
}

func TestAwardWithoutBid(t *testing.T) {
	f := newFixture(t, "asset-z")
	_, err := f.coord.AwardArtwork(context.Background(), "dave", "asset-z", "GBP")
	require.ErrorIs(t, err, ErrBidNotFound)
}

func TestDuplicateBidRejectedAndLockReleased(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "asset-x")

	_, err := f.coord.PlaceBid(ctx, "bob", "asset-x", sdk.NewInt64Coin("GBP", 100))
	require.NoError(t, err)

	_, err = f.coord.PlaceBid(ctx, "bob", "asset-x", sdk.NewInt64Coin("GBP", 120))
	require.ErrorIs(t, err, receipt.ErrDuplicate)

	// only the first bid's lock is outstanding
	require.Equal(t, sdk.NewInt64Coin("GBP", 900), f.pay.Balance("pay-bob", "GBP"))
}

func TestCancelBid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "asset-x")

	_, err := f.coord.PlaceBid(ctx, "bob", "asset-x", sdk.NewInt64Coin("GBP", 100))
	require.NoError(t, err)

	cancellation, err := f.coord.CancelBid(ctx, "bob", "asset-x", "GBP")
	require.NoError(t, err)
	require.NotEmpty(t, cancellation.ReleaseTxID)
	require.Equal(t, sdk.NewInt64Coin("GBP", 1000), f.pay.Balance("pay-bob", "GBP"))

	_, err = f.coord.CancelBid(ctx, "bob", "asset-x", "GBP")
	require.ErrorIs(t, err, ErrBidNotFound)
}

func TestConcurrentAwardsSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "asset-x")

	bidders := []string{"alice", "bob", "carol"}
	for _, b := range bidders {
		_, err := f.coord.PlaceBid(ctx, b, "asset-x", sdk.NewInt64Coin("GBP", 100))
		require.NoError(t, err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, b := range bidders {
		wg.Add(1)
		go func(bidder string) {
			defer wg.Done()
			if _, err := f.coord.AwardArtwork(ctx, bidder, "asset-x", "GBP"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(b)
	}
	wg.Wait()

	// exactly one award succeeds, every other bid ends cancelled
	require.Equal(t, 1, wins)
	require.Empty(t, f.coord.OpenBids("asset-x"))
	require.Equal(t, sdk.NewInt64Coin("GBP", 100), f.pay.Balance("pay-gallery", "GBP"))
	total := f.pay.Balance("pay-alice", "GBP").
		Add(f.pay.Balance("pay-bob", "GBP")).
		Add(f.pay.Balance("pay-carol", "GBP"))
	require.Equal(t, sdk.NewInt64Coin("GBP", 2900), total)
}

func TestListArtworksJoinsReceipts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "asset-a", "asset-b")

	_, err := f.coord.PlaceBid(ctx, "alice", "asset-a", sdk.NewInt64Coin("GBP", 75))
	require.NoError(t, err)

	pending, err := f.coord.ListArtworks(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, "asset-a", pending[0].AssetID)
	require.Equal(t, "asset-b", pending[1].AssetID)

	listing, err := pending[0].Resolve(ctx)
	require.NoError(t, err)
	require.Equal(t, "asset-gallery", listing.Owner)
	require.Len(t, listing.Bids, 1)
	require.Equal(t, "alice", listing.Bids[0].Bidder)
	require.Equal(t, "pay-alice", listing.Bids[0].PaymentParty)
	require.Equal(t, "open", listing.Bids[0].Status)

	empty, err := pending[1].Resolve(ctx)
	require.NoError(t, err)
	require.Empty(t, empty.Bids)
}

func TestListArtworksReplacesSnapshotWholesale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "asset-a", "asset-b")

	first, err := f.coord.ListArtworks(ctx)
	require.NoError(t, err)
	for _, p := range first {
		_, err := p.Resolve(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, first, f.coord.Snapshot())

	second, err := f.coord.ListArtworks(ctx)
	require.NoError(t, err)
	for _, p := range second {
		_, err := p.Resolve(ctx)
		require.NoError(t, err)
	}

	// the refresh swapped the snapshot as a unit
	require.Equal(t, second, f.coord.Snapshot())
	require.NotSame(t, first[0], second[0])
}
