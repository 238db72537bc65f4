package keys

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cosmos/cosmos-sdk/crypto/keys/secp256k1"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// PartyKey is the stored identity material for one participant. The bech32
// address doubles as the party id on both ledgers. The broker never signs
// anything itself (settlement signing lives behind the ledger gateways), so
// only the public half is persisted.
type PartyKey struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	PubKeyHex string `json:"pubkey_hex"`
	CreatedAt string `json:"created_at"`
}

// Ensure loads the key for name from the keystore directory, minting and
// saving a fresh one if it does not exist yet. The second return reports
// whether a key was created.
func Ensure(base, name string) (PartyKey, bool, error) {
	path := PartyKeyPath(base, name)
	if key, err := Load(path); err == nil {
		return key, false, nil
	}
	key := Mint(name)
	if err := Save(path, key); err != nil {
		return PartyKey{}, false, err
	}
	return key, true, nil
}

// Mint derives a new party identity from a throwaway secp256k1 keypair. The
// private half is discarded once the address exists.
func Mint(name string) PartyKey {
	pub := secp256k1.GenPrivKey().PubKey()
	return PartyKey{
		Name:      name,
		Address:   sdk.AccAddress(pub.Address()).String(),
		PubKeyHex: hex.EncodeToString(pub.Bytes()),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

func Save(path string, key PartyKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	bz, err := json.MarshalIndent(key, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, bz, 0o600)
}

func Load(path string) (PartyKey, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return PartyKey{}, err
	}
	var key PartyKey
	if err := json.Unmarshal(bz, &key); err != nil {
		return PartyKey{}, err
	}
	if _, err := sdk.AccAddressFromBech32(key.Address); err != nil {
		return PartyKey{}, fmt.Errorf("invalid key file %s: %w", path, err)
	}
	return key, nil
}

// PartyKeyPath is where the key for the named participant lives inside the
// keystore directory.
func PartyKeyPath(base, name string) string {
	return filepath.Join(base, name+".json")
}
