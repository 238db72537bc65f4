package receipt

import (
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Kind discriminates the receipt variants. The set is closed: bid is the open
// state, sale and cancellation are terminal.
type Kind string

const (
	KindBid          Kind = "bid"
	KindSale         Kind = "sale"
	KindCancellation Kind = "cancellation"
)

// Key is the natural key shared by every receipt variant.
type Key struct {
	Bidder  string
	AssetID string
	Denom   string
}

type Receipt interface {
	Kind() Kind
	Key() Key
	Price() sdk.Coin
}

// Bid records a placed, not yet settled bid: the prepared (unsigned) asset
// transfer and the reference to the payment locked against it.
type Bid struct {
	Bidder           string
	AssetID          string
	Amount           sdk.Coin
	UnsignedTransfer []byte
	LockRef          string
}

func (b Bid) Kind() Kind      { return KindBid }
func (b Bid) Key() Key        { return Key{Bidder: b.Bidder, AssetID: b.AssetID, Denom: b.Amount.Denom} }
func (b Bid) Price() sdk.Coin { return b.Amount }

// Sale records a settled exchange: the finalized asset transfer and the
// claimed payment.
type Sale struct {
	Bidder       string
	AssetID      string
	Amount       sdk.Coin
	TransferTxID string
	ClaimTxID    string
}

func (s Sale) Kind() Kind      { return KindSale }
func (s Sale) Key() Key        { return Key{Bidder: s.Bidder, AssetID: s.AssetID, Denom: s.Amount.Denom} }
func (s Sale) Price() sdk.Coin { return s.Amount }

// Cancellation records a withdrawn bid whose locked payment was released back
// to the bidder. The unsigned transfer is simply abandoned.
type Cancellation struct {
	Bidder      string
	AssetID     string
	Amount      sdk.Coin
	ReleaseTxID string
}

func (c Cancellation) Kind() Kind      { return KindCancellation }
func (c Cancellation) Key() Key        { return Key{Bidder: c.Bidder, AssetID: c.AssetID, Denom: c.Amount.Denom} }
func (c Cancellation) Price() sdk.Coin { return c.Amount }
