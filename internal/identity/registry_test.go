package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesBothParties(t *testing.T) {
	reg := NewRegistry(
		Entry{Name: "bob", AssetParty: "asset-bob", PaymentParty: "pay-bob"},
		Entry{Name: "gallery", AssetParty: "asset-gallery", PaymentParty: "pay-gallery"},
	)

	asset, err := reg.AssetParty("bob")
	require.NoError(t, err)
	require.Equal(t, "asset-bob", asset)

	pay, err := reg.PaymentParty("gallery")
	require.NoError(t, err)
	require.Equal(t, "pay-gallery", pay)

	require.Equal(t, []string{"bob", "gallery"}, reg.Names())
}

func TestRegistryUnknownParticipant(t *testing.T) {
	reg := NewRegistry(Entry{Name: "bob", AssetParty: "a", PaymentParty: "p"})

	_, err := reg.AssetParty("mallory")
	require.ErrorIs(t, err, ErrUnknownParticipant)

	_, err = reg.PaymentParty("")
	require.ErrorIs(t, err, ErrUnknownParticipant)
}
