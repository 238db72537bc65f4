package receipt

import (
	"sync"

	errorsmod "cosmossdk.io/errors"
)

const codespace = "receipt"

var (
	ErrDuplicate = errorsmod.Register(codespace, 2, "receipt already stored for key")
	ErrNotFound  = errorsmod.Register(codespace, 3, "no receipt for key")
)

// Store keeps receipts of one kind keyed by (bidder, asset, denom). Receipts
// are never mutated in place: only inserted and removed.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]Receipt
}

func NewStore() *Store {
	return &Store{entries: map[Key]Receipt{}}
}

func (s *Store) Put(r Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := r.Key()
	if _, ok := s.entries[key]; ok {
		return errorsmod.Wrapf(ErrDuplicate, "%s %s/%s/%s", r.Kind(), key.Bidder, key.AssetID, key.Denom)
	}
	s.entries[key] = r
	return nil
}

func (s *Store) Get(bidder, assetID, denom string) (Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.entries[Key{Bidder: bidder, AssetID: assetID, Denom: denom}]
	if !ok {
		return nil, errorsmod.Wrapf(ErrNotFound, "%s/%s/%s", bidder, assetID, denom)
	}
	return r, nil
}

// ForAsset returns every stored receipt for assetID, any bidder and denom.
// Order is unspecified.
func (s *Store) ForAsset(assetID string) []Receipt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Receipt
	for key, r := range s.entries {
		if key.AssetID == assetID {
			out = append(out, r)
		}
	}
	return out
}

// Remove deletes the entry for the key if present. Removing an absent key is
// a no-op.
func (s *Store) Remove(bidder, assetID, denom string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, Key{Bidder: bidder, AssetID: assetID, Denom: denom})
}
