package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SignerClient submits transactions through an external signer service
// that holds the account key. The service receives the unsigned
// transaction JSON, signs it, submits it to the ledger, and returns the
// transaction hash. Keys never touch this process.
type SignerClient struct {
	url        string
	address    string
	httpClient *http.Client
}

// NewSignerClient creates a submitter backed by the signer service at
// url, signing for the given classic address.
func NewSignerClient(url, address string) *SignerClient {
	return &SignerClient{
		url:        url,
		address:    address,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *SignerClient) Address() string {
	return c.address
}

type signRequest struct {
	Account     string       `json:"account"`
	Transaction TxDescriptor `json:"transaction"`
}

type signResponse struct {
	Hash  string `json:"hash"`
	Error string `json:"error,omitempty"`
}

// SignAndSubmit sends the transaction to the signer service and waits
// for the submission result.
func (c *SignerClient) SignAndSubmit(ctx context.Context, tx TxDescriptor) (*SubmitResult, error) {
	body, err := json.Marshal(signRequest{Account: c.address, Transaction: tx})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/sign-and-submit", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signer request failed: %w", err)
	}
	defer resp.Body.Close()

	var result signResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode signer response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if result.Error != "" {
			return nil, fmt.Errorf("signer rejected transaction: %s", result.Error)
		}
		return nil, fmt.Errorf("signer returned status %d", resp.StatusCode)
	}
	if result.Hash == "" {
		return nil, fmt.Errorf("signer response missing transaction hash")
	}

	return &SubmitResult{Hash: result.Hash}, nil
}
