package market

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"artmarket/broker/internal/identity"
	"artmarket/broker/internal/ledger"
	"artmarket/broker/internal/receipt"
	"artmarket/broker/internal/swap"
)

const codespace = "market"

var ErrBidNotFound = errorsmod.Register(codespace, 2, "no open bid for key")

// Coordinator sits above the orchestrator: it tracks competing bids per
// asset, awards exactly one and compensates the rest, and keeps the listing
// snapshot current.
type Coordinator struct {
	orch     *swap.Orchestrator
	registry *identity.Registry
	assets   ledger.AssetLedger
	gallery  string
	log      zerolog.Logger

	bids    *receipt.Store
	sales   *receipt.Store
	cancels *receipt.Store

	// one mutex per asset so unrelated awards stay concurrent
	assetMu    sync.Mutex
	assetLocks map[string]*sync.Mutex

	listMu   sync.Mutex
	listings []*PendingListing
}

func NewCoordinator(
	orch *swap.Orchestrator,
	registry *identity.Registry,
	assets ledger.AssetLedger,
	gallery string,
	log zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		orch:       orch,
		registry:   registry,
		assets:     assets,
		gallery:    gallery,
		log:        log.With().Str("component", "market").Logger(),
		bids:       receipt.NewStore(),
		sales:      receipt.NewStore(),
		cancels:    receipt.NewStore(),
		assetLocks: map[string]*sync.Mutex{},
	}
}

func (c *Coordinator) lockAsset(assetID string) func() {
	c.assetMu.Lock()
	mu, ok := c.assetLocks[assetID]
	if !ok {
		mu = &sync.Mutex{}
		c.assetLocks[assetID] = mu
	}
	c.assetMu.Unlock()
	mu.Lock()
	return mu.Unlock
}

// PlaceBid runs the bid protocol and records the open bid. A second open bid
// for the same (bidder, asset, denom) key is rejected; its stray payment lock
// is released before the rejection is surfaced.
func (c *Coordinator) PlaceBid(ctx context.Context, bidder, assetID string, price sdk.Coin) (receipt.Bid, error) {
	bid, err := c.orch.Bid(ctx, bidder, assetID, price)
	if err != nil {
		return receipt.Bid{}, err
	}
	if err := c.bids.Put(bid); err != nil {
		if _, cancelErr := c.orch.Cancel(ctx, bid); cancelErr != nil {
			c.log.Error().
				Str("bidder", bidder).
				Str("asset", assetID).
				Err(cancelErr).
				Msg("failed to release lock of rejected duplicate bid")
		}
		return receipt.Bid{}, err
	}
	return bid, nil
}

// CancelFailure reports one losing bid whose payment release failed. The bid
// stays open.
type CancelFailure struct {
	Bid receipt.Bid
	Err error
}

// AwardResult is the outcome of AwardArtwork: the winning sale plus the
// compensation results for every other bid on the asset.
type AwardResult struct {
	Sale          receipt.Sale
	Cancellations []receipt.Cancellation
	Failed        []CancelFailure
}

// Receipts flattens the result into the sale followed by the cancellations.
func (r AwardResult) Receipts() []receipt.Receipt {
	out := make([]receipt.Receipt, 0, 1+len(r.Cancellations))
	out = append(out, r.Sale)
	for _, c := range r.Cancellations {
		out = append(out, c)
	}
	return out
}

// AwardArtwork settles the named bid and cancels every other open bid on the
// same asset. Awards for the same asset are mutually exclusive; the
// cancellation fan-out is best effort per bid and runs concurrently.
func (c *Coordinator) AwardArtwork(ctx context.Context, bidder, assetID, denom string) (AwardResult, error) {
	unlock := c.lockAsset(assetID)
	defer unlock()

	stored, err := c.bids.Get(bidder, assetID, denom)
	if err != nil {
		return AwardResult{}, errorsmod.Wrapf(ErrBidNotFound, "%s/%s/%s", bidder, assetID, denom)
	}
	winning := stored.(receipt.Bid)

	sale, err := c.orch.Award(ctx, winning)
	if err != nil {
		return AwardResult{}, err
	}
	if err := c.sales.Put(sale); err != nil {
		return AwardResult{}, err
	}
	c.bids.Remove(bidder, assetID, denom)

	result := AwardResult{Sale: sale}
	losers := c.bids.ForAsset(assetID)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, r := range losers {
		bid := r.(receipt.Bid)
		wg.Add(1)
		go func() {
			defer wg.Done()
			cancellation, err := c.cancelOne(ctx, bid)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, CancelFailure{Bid: bid, Err: err})
				return
			}
			result.Cancellations = append(result.Cancellations, cancellation)
		}()
	}
	wg.Wait()

	for _, f := range result.Failed {
		c.log.Error().
			Str("bidder", f.Bid.Bidder).
			Str("asset", assetID).
			Err(f.Err).
			Msg("losing bid not cancelled, left open")
	}
	return result, nil
}

// CancelBid withdraws a single open bid and releases its locked payment.
func (c *Coordinator) CancelBid(ctx context.Context, bidder, assetID, denom string) (receipt.Cancellation, error) {
	unlock := c.lockAsset(assetID)
	defer unlock()

	stored, err := c.bids.Get(bidder, assetID, denom)
	if err != nil {
		return receipt.Cancellation{}, errorsmod.Wrapf(ErrBidNotFound, "%s/%s/%s", bidder, assetID, denom)
	}
	return c.cancelOne(ctx, stored.(receipt.Bid))
}

func (c *Coordinator) cancelOne(ctx context.Context, bid receipt.Bid) (receipt.Cancellation, error) {
	cancellation, err := c.orch.Cancel(ctx, bid)
	if err != nil {
		return receipt.Cancellation{}, err
	}
	if err := c.cancels.Put(cancellation); err != nil {
		return receipt.Cancellation{}, err
	}
	key := bid.Key()
	c.bids.Remove(key.Bidder, key.AssetID, key.Denom)
	return cancellation, nil
}

// OpenBids reports the open bids for an asset. Order is unspecified.
func (c *Coordinator) OpenBids(assetID string) []receipt.Receipt {
	return c.bids.ForAsset(assetID)
}
