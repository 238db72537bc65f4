package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

const codespace = "ledger"

var (
	ErrAssetNotFound = errorsmod.Register(codespace, 2, "asset not found")
	ErrUnavailable   = errorsmod.Register(codespace, 3, "ledger unavailable")
	ErrLockNotFound  = errorsmod.Register(codespace, 4, "payment lock not found")
	ErrBadProof      = errorsmod.Register(codespace, 5, "proof does not satisfy lock condition")
	ErrStaleTransfer = errorsmod.Register(codespace, 6, "transfer input already consumed")
)

// Ownership is the asset ledger's current record for one asset. RecordID
// changes on every transfer, so a prepared transfer built against an old
// record cannot finalize after the asset has moved.
type Ownership struct {
	AssetID  string `json:"asset_id"`
	Owner    string `json:"owner"`
	RecordID string `json:"record_id"`
}

// UnsignedTransfer is a proposed change of ownership. It has no ledger effect
// until finalized; an abandoned one can simply be discarded.
type UnsignedTransfer struct {
	AssetID string `json:"asset_id"`
	Seller  string `json:"seller"`
	Buyer   string `json:"buyer"`
	Payload []byte `json:"payload"`
}

// Digest identifies the exact transfer a payment lock is bound to.
func (t UnsignedTransfer) Digest() string {
	sum := sha256.Sum256(t.Payload)
	return hex.EncodeToString(sum[:])
}

// TransferProof is settlement evidence produced when a transfer finalizes.
type TransferProof struct {
	TxID           string `json:"tx_id"`
	TransferDigest string `json:"transfer_digest"`
	Signature      []byte `json:"signature,omitempty"`
}

// LockCondition gates a locked payment on finalization of one specific
// transfer: only a proof carrying the matching digest can claim it.
type LockCondition struct {
	TransferDigest string `json:"transfer_digest"`
}

type AssetLedger interface {
	// Ownership returns the current record for assetID, failing with
	// ErrAssetNotFound if the asset is absent or not held by owner.
	Ownership(ctx context.Context, owner, assetID string) (Ownership, error)
	ListHoldings(ctx context.Context, owner string) ([]Ownership, error)
	CreateTransfer(ctx context.Context, seller, buyer string, own Ownership) (UnsignedTransfer, error)
	FinalizeTransfer(ctx context.Context, seller string, unsigned UnsignedTransfer) (TransferProof, error)
}

type PaymentLedger interface {
	Lock(ctx context.Context, payer, payee string, amount sdk.Coin, cond LockCondition) (string, error)
	Claim(ctx context.Context, payee, lockRef string, proof TransferProof) (string, error)
	Release(ctx context.Context, payee, payer, lockRef string) (string, error)
}
