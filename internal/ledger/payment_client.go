package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// PaymentClient talks to one party's payment-ledger gateway over HTTP. The
// buyer and the seller each run their own gateway, so the orchestrator holds
// two instances of this client.
type PaymentClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewPaymentClient(baseURL string) *PaymentClient {
	return &PaymentClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type lockRequest struct {
	Payer     string        `json:"payer"`
	Payee     string        `json:"payee"`
	Amount    sdk.Coin      `json:"amount"`
	Condition LockCondition `json:"condition"`
}

type lockResponse struct {
	LockRef string `json:"lock_ref"`
}

type claimRequest struct {
	Payee   string        `json:"payee"`
	LockRef string        `json:"lock_ref"`
	Proof   TransferProof `json:"proof"`
}

type releaseRequest struct {
	Payee   string `json:"payee"`
	Payer   string `json:"payer"`
	LockRef string `json:"lock_ref"`
}

type settlementResponse struct {
	TxID string `json:"tx_id"`
}

func (c *PaymentClient) Lock(ctx context.Context, payer, payee string, amount sdk.Coin, cond LockCondition) (string, error) {
	var resp lockResponse
	req := lockRequest{Payer: payer, Payee: payee, Amount: amount, Condition: cond}
	if err := c.postJSON(ctx, "/v1/locks", req, &resp); err != nil {
		return "", err
	}
	return resp.LockRef, nil
}

func (c *PaymentClient) Claim(ctx context.Context, payee, lockRef string, proof TransferProof) (string, error) {
	var resp settlementResponse
	req := claimRequest{Payee: payee, LockRef: lockRef, Proof: proof}
	if err := c.postJSON(ctx, "/v1/claims", req, &resp); err != nil {
		return "", err
	}
	return resp.TxID, nil
}

func (c *PaymentClient) Release(ctx context.Context, payee, payer, lockRef string) (string, error) {
	var resp settlementResponse
	req := releaseRequest{Payee: payee, Payer: payer, LockRef: lockRef}
	if err := c.postJSON(ctx, "/v1/releases", req, &resp); err != nil {
		return "", err
	}
	return resp.TxID, nil
}

func (c *PaymentClient) postJSON(ctx context.Context, path string, body, out any) error {
	bz, err := json.Marshal(body)
	if err != nil {
		return errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(bz))
	if err != nil {
		return errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errorsmod.Wrap(ErrLockNotFound, readErrBody(resp.Body))
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return errorsmod.Wrap(ErrBadProof, readErrBody(resp.Body))
	case resp.StatusCode >= 300:
		return errorsmod.Wrapf(ErrUnavailable, "%s (status %d)", readErrBody(resp.Body), resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorsmod.Wrap(ErrUnavailable, err.Error())
	}
	return nil
}
