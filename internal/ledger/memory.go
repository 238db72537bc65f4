package ledger

import (
	"context"
	"encoding/json"
	"sync"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/google/uuid"
)

// transferBody is what an unsigned transfer's opaque payload decodes to on
// the asset ledger. The nonce makes two transfers of the same record distinct
// so their digests, and therefore their lock conditions, differ.
type transferBody struct {
	AssetID  string `json:"asset_id"`
	Seller   string `json:"seller"`
	Buyer    string `json:"buyer"`
	RecordID string `json:"record_id"`
	Nonce    string `json:"nonce"`
}

// MemoryAssetLedger is a process-local asset register with real transfer
// semantics: a prepared transfer only moves the asset on finalize, and each
// ownership record can be consumed by exactly one finalize.
type MemoryAssetLedger struct {
	mu     sync.Mutex
	assets map[string]Ownership
}

func NewMemoryAssetLedger() *MemoryAssetLedger {
	return &MemoryAssetLedger{assets: map[string]Ownership{}}
}

// Seed registers assets as held by owner. Intended for process start and
// tests; existing records are overwritten.
func (l *MemoryAssetLedger) Seed(owner string, assetIDs ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range assetIDs {
		l.assets[id] = Ownership{AssetID: id, Owner: owner, RecordID: uuid.NewString()}
	}
}

func (l *MemoryAssetLedger) Ownership(_ context.Context, owner, assetID string) (Ownership, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	own, ok := l.assets[assetID]
	if !ok || own.Owner != owner {
		return Ownership{}, errorsmod.Wrapf(ErrAssetNotFound, "%s held by %s", assetID, owner)
	}
	return own, nil
}

func (l *MemoryAssetLedger) ListHoldings(_ context.Context, owner string) ([]Ownership, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Ownership
	for _, own := range l.assets {
		if own.Owner == owner {
			out = append(out, own)
		}
	}
	return out, nil
}

func (l *MemoryAssetLedger) CreateTransfer(_ context.Context, seller, buyer string, own Ownership) (UnsignedTransfer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.assets[own.AssetID]
	if !ok || current.Owner != seller {
		return UnsignedTransfer{}, errorsmod.Wrapf(ErrAssetNotFound, "%s held by %s", own.AssetID, seller)
	}
	if current.RecordID != own.RecordID {
		return UnsignedTransfer{}, errorsmod.Wrapf(ErrStaleTransfer, "record %s superseded", own.RecordID)
	}
	payload, err := json.Marshal(transferBody{
		AssetID:  own.AssetID,
		Seller:   seller,
		Buyer:    buyer,
		RecordID: own.RecordID,
		Nonce:    uuid.NewString(),
	})
	if err != nil {
		return UnsignedTransfer{}, errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	return UnsignedTransfer{AssetID: own.AssetID, Seller: seller, Buyer: buyer, Payload: payload}, nil
}

func (l *MemoryAssetLedger) FinalizeTransfer(_ context.Context, seller string, unsigned UnsignedTransfer) (TransferProof, error) {
	var body transferBody
	if err := json.Unmarshal(unsigned.Payload, &body); err != nil {
		return TransferProof{}, errorsmod.Wrap(ErrUnavailable, "malformed transfer payload")
	}
	if body.Seller != seller {
		return TransferProof{}, errorsmod.Wrapf(ErrUnavailable, "transfer not signed by %s", seller)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	current, ok := l.assets[body.AssetID]
	if !ok || current.Owner != seller {
		return TransferProof{}, errorsmod.Wrapf(ErrAssetNotFound, "%s held by %s", body.AssetID, seller)
	}
	if current.RecordID != body.RecordID {
		// the record this transfer was built against was already consumed,
		// e.g. by a concurrent award
		return TransferProof{}, errorsmod.Wrapf(ErrStaleTransfer, "record %s superseded", body.RecordID)
	}
	l.assets[body.AssetID] = Ownership{AssetID: body.AssetID, Owner: body.Buyer, RecordID: uuid.NewString()}
	return TransferProof{TxID: uuid.NewString(), TransferDigest: unsigned.Digest()}, nil
}

type lockState string

const (
	lockOpen     lockState = "open"
	lockClaimed  lockState = "claimed"
	lockReleased lockState = "released"
)

type lockEntry struct {
	payer  string
	payee  string
	amount sdk.Coin
	cond   LockCondition
	state  lockState
}

// MemoryPaymentLedger is a process-local payment ledger with balances and
// hash-locked holds. A lock debits the payer immediately; claim pays the
// payee only against a proof matching the lock condition, release refunds
// the payer.
type MemoryPaymentLedger struct {
	mu       sync.Mutex
	balances map[string]sdk.Coins
	locks    map[string]*lockEntry
}

func NewMemoryPaymentLedger() *MemoryPaymentLedger {
	return &MemoryPaymentLedger{
		balances: map[string]sdk.Coins{},
		locks:    map[string]*lockEntry{},
	}
}

// Fund credits party with coins. Intended for process start and tests.
func (l *MemoryPaymentLedger) Fund(party string, coins ...sdk.Coin) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[party] = l.balances[party].Add(coins...)
}

// Balance reports party's spendable amount of denom, excluding locked funds.
func (l *MemoryPaymentLedger) Balance(party, denom string) sdk.Coin {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sdk.NewCoin(denom, l.balances[party].AmountOf(denom))
}

func (l *MemoryPaymentLedger) Lock(_ context.Context, payer, payee string, amount sdk.Coin, cond LockCondition) (string, error) {
	if !amount.IsPositive() {
		return "", errorsmod.Wrapf(ErrUnavailable, "non-positive lock amount %s", amount)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balances[payer]
	if !bal.IsAllGTE(sdk.NewCoins(amount)) {
		return "", errorsmod.Wrapf(ErrUnavailable, "%s has insufficient %s", payer, amount.Denom)
	}
	l.balances[payer] = bal.Sub(amount)
	ref := uuid.NewString()
	l.locks[ref] = &lockEntry{payer: payer, payee: payee, amount: amount, cond: cond, state: lockOpen}
	return ref, nil
}

func (l *MemoryPaymentLedger) Claim(_ context.Context, payee, lockRef string, proof TransferProof) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[lockRef]
	if !ok || entry.state != lockOpen {
		return "", errorsmod.Wrap(ErrLockNotFound, lockRef)
	}
	if entry.payee != payee {
		return "", errorsmod.Wrapf(ErrLockNotFound, "%s not payable to %s", lockRef, payee)
	}
	if proof.TransferDigest == "" || proof.TransferDigest != entry.cond.TransferDigest {
		return "", errorsmod.Wrapf(ErrBadProof, "lock %s", lockRef)
	}
	entry.state = lockClaimed
	l.balances[payee] = l.balances[payee].Add(entry.amount)
	return uuid.NewString(), nil
}

func (l *MemoryPaymentLedger) Release(_ context.Context, payee, payer, lockRef string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.locks[lockRef]
	if !ok || entry.state != lockOpen {
		return "", errorsmod.Wrap(ErrLockNotFound, lockRef)
	}
	if entry.payee != payee || entry.payer != payer {
		return "", errorsmod.Wrapf(ErrLockNotFound, "%s does not match parties", lockRef)
	}
	entry.state = lockReleased
	l.balances[payer] = l.balances[payer].Add(entry.amount)
	return uuid.NewString(), nil
}
