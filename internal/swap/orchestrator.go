package swap

import (
	"context"
	"fmt"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"artmarket/broker/internal/identity"
	"artmarket/broker/internal/ledger"
	"artmarket/broker/internal/receipt"
)

const codespace = "swap"

var (
	ErrSwapFailed = errorsmod.Register(codespace, 2, "swap step failed")
	// ErrPartialAward marks the inconsistent state where the asset transfer
	// settled but the payment claim did not. There is no automatic
	// compensation; the caller gets the settled transfer id so the claim can
	// be re-driven.
	ErrPartialAward = errorsmod.Register(codespace, 3, "asset transferred but payment unclaimed")
)

// PartialAwardError carries the settled transfer id through an award that
// failed at the claim step.
type PartialAwardError struct {
	TransferTxID string
	Err          error
}

func (e *PartialAwardError) Error() string {
	return fmt.Sprintf("payment claim failed after transfer %s settled: %v", e.TransferTxID, e.Err)
}

func (e *PartialAwardError) Unwrap() []error {
	return []error{ErrPartialAward, e.Err}
}

// Orchestrator drives the fixed lock / proof / claim-or-release sequences
// across the two ledgers. It never retries a ledger call and persists
// nothing; receipts are the caller's to store.
type Orchestrator struct {
	registry  *identity.Registry
	assets    ledger.AssetLedger
	buyerPay  ledger.PaymentLedger
	sellerPay ledger.PaymentLedger
	gallery   string
	log       zerolog.Logger
}

func NewOrchestrator(
	registry *identity.Registry,
	assets ledger.AssetLedger,
	buyerPay, sellerPay ledger.PaymentLedger,
	gallery string,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry:  registry,
		assets:    assets,
		buyerPay:  buyerPay,
		sellerPay: sellerPay,
		gallery:   gallery,
		log:       log.With().Str("component", "swap").Logger(),
	}
}

// Bid prepares an exchange: an unsigned asset transfer from the gallery to
// the bidder, and a payment lock bound to exactly that transfer. Nothing
// settles. If the lock fails the prepared transfer is discarded and the bid
// fails as a whole.
func (o *Orchestrator) Bid(ctx context.Context, bidder, assetID string, price sdk.Coin) (receipt.Bid, error) {
	buyerAsset, err := o.registry.AssetParty(bidder)
	if err != nil {
		return receipt.Bid{}, err
	}
	buyerPayParty, err := o.registry.PaymentParty(bidder)
	if err != nil {
		return receipt.Bid{}, err
	}
	sellerAsset, err := o.registry.AssetParty(o.gallery)
	if err != nil {
		return receipt.Bid{}, err
	}
	sellerPayParty, err := o.registry.PaymentParty(o.gallery)
	if err != nil {
		return receipt.Bid{}, err
	}

	own, err := o.assets.Ownership(ctx, sellerAsset, assetID)
	if err != nil {
		return receipt.Bid{}, err
	}
	unsigned, err := o.assets.CreateTransfer(ctx, sellerAsset, buyerAsset, own)
	if err != nil {
		return receipt.Bid{}, errorsmod.Wrapf(ErrSwapFailed, "create transfer for %s: %v", assetID, err)
	}
	cond := ledger.LockCondition{TransferDigest: unsigned.Digest()}
	lockRef, err := o.buyerPay.Lock(ctx, buyerPayParty, sellerPayParty, price, cond)
	if err != nil {
		// the unsigned transfer was never submitted, dropping it is enough
		return receipt.Bid{}, errorsmod.Wrapf(ErrSwapFailed, "lock %s for %s: %v", price, bidder, err)
	}

	o.log.Info().
		Str("bidder", bidder).
		Str("asset", assetID).
		Str("price", price.String()).
		Str("lock_ref", lockRef).
		Msg("bid prepared")

	return receipt.Bid{
		Bidder:           bidder,
		AssetID:          assetID,
		Amount:           price,
		UnsignedTransfer: unsigned.Payload,
		LockRef:          lockRef,
	}, nil
}

// Award settles a bid: finalize the recorded transfer on the asset ledger,
// then claim the locked payment with the resulting proof. The order is fixed
// because the lock condition is defined in terms of the settlement. A claim
// failure after the transfer settled is reported as *PartialAwardError and
// is not rolled back.
func (o *Orchestrator) Award(ctx context.Context, bid receipt.Bid) (receipt.Sale, error) {
	buyerAsset, err := o.registry.AssetParty(bid.Bidder)
	if err != nil {
		return receipt.Sale{}, err
	}
	sellerAsset, err := o.registry.AssetParty(o.gallery)
	if err != nil {
		return receipt.Sale{}, err
	}
	sellerPayParty, err := o.registry.PaymentParty(o.gallery)
	if err != nil {
		return receipt.Sale{}, err
	}

	unsigned := ledger.UnsignedTransfer{
		AssetID: bid.AssetID,
		Seller:  sellerAsset,
		Buyer:   buyerAsset,
		Payload: bid.UnsignedTransfer,
	}
	proof, err := o.assets.FinalizeTransfer(ctx, sellerAsset, unsigned)
	if err != nil {
		return receipt.Sale{}, errorsmod.Wrapf(ErrSwapFailed, "finalize transfer for %s: %v", bid.AssetID, err)
	}
	claimID, err := o.sellerPay.Claim(ctx, sellerPayParty, bid.LockRef, proof)
	if err != nil {
		o.log.Error().
			Str("asset", bid.AssetID).
			Str("transfer_tx", proof.TxID).
			Err(err).
			Msg("claim failed after transfer settled")
		return receipt.Sale{}, &PartialAwardError{TransferTxID: proof.TxID, Err: err}
	}

	o.log.Info().
		Str("bidder", bid.Bidder).
		Str("asset", bid.AssetID).
		Str("transfer_tx", proof.TxID).
		Str("claim_tx", claimID).
		Msg("bid awarded")

	return receipt.Sale{
		Bidder:       bid.Bidder,
		AssetID:      bid.AssetID,
		Amount:       bid.Amount,
		TransferTxID: proof.TxID,
		ClaimTxID:    claimID,
	}, nil
}

// Cancel releases a bid's locked payment back to the bidder. The unsigned
// transfer is abandoned; it never had ledger effect.
func (o *Orchestrator) Cancel(ctx context.Context, bid receipt.Bid) (receipt.Cancellation, error) {
	buyerPayParty, err := o.registry.PaymentParty(bid.Bidder)
	if err != nil {
		return receipt.Cancellation{}, err
	}
	sellerPayParty, err := o.registry.PaymentParty(o.gallery)
	if err != nil {
		return receipt.Cancellation{}, err
	}

	releaseID, err := o.sellerPay.Release(ctx, sellerPayParty, buyerPayParty, bid.LockRef)
	if err != nil {
		return receipt.Cancellation{}, errorsmod.Wrapf(ErrSwapFailed, "release lock %s: %v", bid.LockRef, err)
	}

	o.log.Info().
		Str("bidder", bid.Bidder).
		Str("asset", bid.AssetID).
		Str("release_tx", releaseID).
		Msg("bid cancelled")

	return receipt.Cancellation{
		Bidder:      bid.Bidder,
		AssetID:     bid.AssetID,
		Amount:      bid.Amount,
		ReleaseTxID: releaseID,
	}, nil
}
