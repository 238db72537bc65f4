package market

import (
	"context"
	"sort"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"artmarket/broker/internal/receipt"
)

// BidRecord is one bid or sale on a listed artwork, annotated with the
// bidder's payment identity for display.
type BidRecord struct {
	Bidder       string   `json:"bidder"`
	PaymentParty string   `json:"payment_party"`
	Price        sdk.Coin `json:"price"`
	Status       string   `json:"status"`
}

// Listing is one artwork currently held by the gallery, joined against its
// bid and sale receipts.
type Listing struct {
	AssetID string      `json:"asset_id"`
	Owner   string      `json:"owner"`
	Bids    []BidRecord `json:"bids"`
}

// PendingListing resolves to a Listing once its ledger round trip and
// receipt join complete.
type PendingListing struct {
	AssetID string

	done    chan struct{}
	listing Listing
	err     error
}

func newPendingListing(assetID string) *PendingListing {
	return &PendingListing{AssetID: assetID, done: make(chan struct{})}
}

func (p *PendingListing) complete(l Listing, err error) {
	p.listing = l
	p.err = err
	close(p.done)
}

// Resolve blocks until the listing is computed or ctx ends.
func (p *PendingListing) Resolve(ctx context.Context) (Listing, error) {
	select {
	case <-ctx.Done():
		return Listing{}, ctx.Err()
	case <-p.done:
		return p.listing, p.err
	}
}

// ListArtworks rebuilds the listing snapshot: it enumerates the gallery's
// holdings and kicks off one computation per asset. The published snapshot
// is replaced as a unit, so a reader holds either the complete previous set
// or the complete new one.
func (c *Coordinator) ListArtworks(ctx context.Context) ([]*PendingListing, error) {
	galleryParty, err := c.registry.AssetParty(c.gallery)
	if err != nil {
		return nil, err
	}
	holdings, err := c.assets.ListHoldings(ctx, galleryParty)
	if err != nil {
		return nil, err
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].AssetID < holdings[j].AssetID })

	pending := make([]*PendingListing, 0, len(holdings))
	for _, own := range holdings {
		p := newPendingListing(own.AssetID)
		pending = append(pending, p)
		go func(assetID string) {
			p.complete(c.buildListing(ctx, galleryParty, assetID))
		}(own.AssetID)
	}

	c.listMu.Lock()
	c.listings = pending
	c.listMu.Unlock()
	return pending, nil
}

// Snapshot returns the most recently published listing set without
// refreshing it.
func (c *Coordinator) Snapshot() []*PendingListing {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	return c.listings
}

func (c *Coordinator) buildListing(ctx context.Context, galleryParty, assetID string) (Listing, error) {
	own, err := c.assets.Ownership(ctx, galleryParty, assetID)
	if err != nil {
		return Listing{}, err
	}

	var records []BidRecord
	for _, r := range c.bids.ForAsset(assetID) {
		records = append(records, c.bidRecord(r, "open"))
	}
	for _, r := range c.sales.ForAsset(assetID) {
		records = append(records, c.bidRecord(r, "sold"))
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].Bidder == records[j].Bidder {
			return records[i].Price.Denom < records[j].Price.Denom
		}
		return records[i].Bidder < records[j].Bidder
	})
	return Listing{AssetID: assetID, Owner: own.Owner, Bids: records}, nil
}

func (c *Coordinator) bidRecord(r receipt.Receipt, status string) BidRecord {
	key := r.Key()
	payParty, err := c.registry.PaymentParty(key.Bidder)
	if err != nil {
		// a receipt always names a registered participant; keep the row
		// with the name alone if the registry disagrees
		payParty = ""
	}
	return BidRecord{
		Bidder:       key.Bidder,
		PaymentParty: payParty,
		Price:        r.Price(),
		Status:       status,
	}
}
