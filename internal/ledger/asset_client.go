package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
)

// AssetClient talks to an asset-ledger gateway over HTTP. Connection
// management, signing and notarization live behind the gateway.
type AssetClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAssetClient(baseURL string) *AssetClient {
	return &AssetClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type createTransferRequest struct {
	Seller    string    `json:"seller"`
	Buyer     string    `json:"buyer"`
	Ownership Ownership `json:"ownership"`
}

type finalizeTransferRequest struct {
	Seller   string           `json:"seller"`
	Unsigned UnsignedTransfer `json:"unsigned"`
}

func (c *AssetClient) Ownership(ctx context.Context, owner, assetID string) (Ownership, error) {
	var own Ownership
	path := "/v1/ownerships/" + url.PathEscape(owner) + "/" + url.PathEscape(assetID)
	if err := c.getJSON(ctx, path, &own); err != nil {
		return Ownership{}, err
	}
	return own, nil
}

func (c *AssetClient) ListHoldings(ctx context.Context, owner string) ([]Ownership, error) {
	var owns []Ownership
	if err := c.getJSON(ctx, "/v1/ownerships/"+url.PathEscape(owner), &owns); err != nil {
		return nil, err
	}
	return owns, nil
}

func (c *AssetClient) CreateTransfer(ctx context.Context, seller, buyer string, own Ownership) (UnsignedTransfer, error) {
	var unsigned UnsignedTransfer
	req := createTransferRequest{Seller: seller, Buyer: buyer, Ownership: own}
	if err := c.postJSON(ctx, "/v1/transfers", req, &unsigned); err != nil {
		return UnsignedTransfer{}, err
	}
	return unsigned, nil
}

func (c *AssetClient) FinalizeTransfer(ctx context.Context, seller string, unsigned UnsignedTransfer) (TransferProof, error) {
	var proof TransferProof
	req := finalizeTransferRequest{Seller: seller, Unsigned: unsigned}
	if err := c.postJSON(ctx, "/v1/transfers/finalize", req, &proof); err != nil {
		return TransferProof{}, err
	}
	return proof, nil
}

func (c *AssetClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	return c.do(req, out)
}

func (c *AssetClient) postJSON(ctx context.Context, path string, body, out any) error {
	bz, err := json.Marshal(body)
	if err != nil {
		return errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(bz))
	if err != nil {
		return errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *AssetClient) do(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errorsmod.Wrap(ErrAssetNotFound, readErrBody(resp.Body))
	}
	if resp.StatusCode >= 300 {
		return errorsmod.Wrapf(ErrUnavailable, "%s (status %d)", readErrBody(resp.Body), resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	return nil
}

func readErrBody(r io.Reader) string {
	msg := "ledger request failed"
	if body, err := io.ReadAll(io.LimitReader(r, 4096)); err == nil {
		trimmed := strings.TrimSpace(string(body))
		if trimmed != "" {
			msg = fmt.Sprintf("%s: %s", msg, trimmed)
		}
	}
	return msg
}
