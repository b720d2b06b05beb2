// Package client is the HTTP implementation of ledger.Ledger, talking to a
// server from package httpapi.
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"

	"github.com/Amr-9/powfaucet/pkg/generator/solana"
	"github.com/Amr-9/powfaucet/pkg/ledger"
	"github.com/Amr-9/powfaucet/pkg/ledger/httpapi"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Client talks to a remote ledger.
type Client struct {
	http *resty.Client
}

var _ ledger.Ledger = (*Client)(nil)

// New creates a client for the ledger API at baseURL.
func New(baseURL string) *Client {
	return NewWithResty(resty.New().SetHostURL(baseURL).SetTimeout(DefaultTimeout))
}

// NewWithResty wraps a configured resty client.
func NewWithResty(rc *resty.Client) *Client {
	rc.SetHeader("Accept", "application/json")
	return &Client{http: rc}
}

// GenesisHash returns the network identifier.
func (c *Client) GenesisHash(ctx context.Context) (string, error) {
	var out httpapi.GenesisResponse
	if err := c.get(ctx, "/v1/genesis", nil, &out); err != nil {
		return "", err
	}
	return out.GenesisHash, nil
}

// GetAccount returns ledger.ErrAccountNotFound for empty addresses.
func (c *Client) GetAccount(ctx context.Context, addr solana.PublicKey) (*ledger.Account, error) {
	var out ledger.Account
	if err := c.get(ctx, "/v1/accounts/"+addr.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalance returns 0 for missing accounts.
func (c *Client) GetBalance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	var out httpapi.BalanceResponse
	if err := c.get(ctx, "/v1/accounts/"+addr.String()+"/balance", nil, &out); err != nil {
		return 0, err
	}
	return out.Lamports, nil
}

// AccountsByOwner lists accounts owned by program.
func (c *Client) AccountsByOwner(ctx context.Context, program solana.PublicKey) ([]*ledger.Account, error) {
	var out []*ledger.Account
	if err := c.get(ctx, "/v1/accounts", map[string]string{"owner": program.String()}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendTransaction submits tx. Refusals come back as *ledger.Rejection.
func (c *Client) SendTransaction(ctx context.Context, tx *ledger.Transaction) (string, error) {
	var out httpapi.SignatureResponse
	if err := c.post(ctx, "/v1/transactions", tx, &out); err != nil {
		return "", err
	}
	return out.Signature, nil
}

// RequestAirdrop asks the ledger to mint lamports into addr.
func (c *Client) RequestAirdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) (string, error) {
	var out httpapi.SignatureResponse
	req := httpapi.AirdropRequest{Address: addr, Lamports: lamports}
	if err := c.post(ctx, "/v1/airdrop", req, &out); err != nil {
		return "", err
	}
	return out.Signature, nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, result interface{}) error {
	var apiErr httpapi.ErrorResponse
	req := c.http.R().SetContext(ctx).SetResult(result).SetError(&apiErr)
	if query != nil {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(path)
	return checkResponse(resp, err, &apiErr, "GET "+path)
}

func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	var apiErr httpapi.ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(result).
		SetError(&apiErr).
		Post(path)
	return checkResponse(resp, err, &apiErr, "POST "+path)
}

// checkResponse maps transport failures and HTTP status codes onto the
// ledger's error vocabulary.
func checkResponse(resp *resty.Response, err error, apiErr *httpapi.ErrorResponse, op string) error {
	if err != nil {
		return errors.Wrap(err, op)
	}
	if !resp.IsError() {
		return nil
	}

	switch resp.StatusCode() {
	case http.StatusNotFound:
		return errors.Wrap(ledger.ErrAccountNotFound, apiErr.Error)
	case http.StatusTooManyRequests:
		if apiErr.Rejection != nil {
			return apiErr.Rejection
		}
		return &ledger.Rejection{Code: ledger.CodeCongested, Instruction: -1, Message: "rate limited"}
	case http.StatusUnprocessableEntity:
		if apiErr.Rejection != nil {
			return apiErr.Rejection
		}
	}
	msg := apiErr.Error
	if msg == "" {
		msg = resp.Status()
	}
	return errors.Newf("%s: ledger responded %d: %s", op, resp.StatusCode(), msg)
}
