package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/SicomCt/XPRL-Hackathon-2026/internal/auction"
)

// DefaultTestnetURL is the XRPL testnet JSON-RPC endpoint.
const DefaultTestnetURL = "https://s.altnet.rippletest.net:51234"

// Client is a thin JSON-RPC reader over the XRPL HTTP API. Read calls
// propagate failures as-is: no retry lives at this layer.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a ledger client against the given JSON-RPC URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params,omitempty"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: []any{params}})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s request failed: unexpected status %d", method, resp.StatusCode)
	}

	var envelope rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}

	var status rpcStatus
	if err := json.Unmarshal(envelope.Result, &status); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	if status.Status == "error" {
		return fmt.Errorf("%s rejected: %s %s", method, status.ErrorCode, status.ErrorMessage)
	}

	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// AccountTransactions fetches an account's transaction history, most
// recent first as the ledger's account_tx query returns it. Callers
// folding events must reverse into chronological order themselves.
func (c *Client) AccountTransactions(ctx context.Context, account string, limit int) ([]auction.RawTxRecord, error) {
	var result struct {
		Transactions []struct {
			Tx          json.RawMessage `json:"tx"`
			TxJSON      json.RawMessage `json:"tx_json"`
			Hash        string          `json:"hash"`
			LedgerIndex uint32          `json:"ledger_index"`
		} `json:"transactions"`
	}
	params := map[string]any{
		"account": account,
		"limit":   limit,
	}
	if err := c.call(ctx, "account_tx", params, &result); err != nil {
		return nil, err
	}

	records := make([]auction.RawTxRecord, 0, len(result.Transactions))
	for _, t := range result.Transactions {
		// Older servers return "tx", newer API versions "tx_json".
		tx := t.Tx
		if len(tx) == 0 {
			tx = t.TxJSON
		}
		records = append(records, auction.RawTxRecord{
			Tx:          tx,
			Hash:        t.Hash,
			LedgerIndex: t.LedgerIndex,
		})
	}
	return records, nil
}

// LedgerCloseTime returns the validated ledger's close time in Ripple
// epoch seconds, used for FinishAfter checks.
func (c *Client) LedgerCloseTime(ctx context.Context) (int64, error) {
	var result struct {
		Ledger struct {
			CloseTime int64 `json:"close_time"`
		} `json:"ledger"`
	}
	params := map[string]any{"ledger_index": "validated"}
	if err := c.call(ctx, "ledger", params, &result); err != nil {
		return 0, err
	}
	return result.Ledger.CloseTime, nil
}

// TxResult is the subset of a tx lookup the settlement protocol needs.
type TxResult struct {
	Hash      string `json:"hash"`
	Sequence  uint32 `json:"Sequence"`
	Validated bool   `json:"validated"`
}

// Tx looks up a transaction by hash. Fails while the transaction is not
// yet known to the queried server.
func (c *Client) Tx(ctx context.Context, hash string) (*TxResult, error) {
	var result TxResult
	params := map[string]any{"transaction": hash}
	if err := c.call(ctx, "tx", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EscrowObject is one open escrow from an account_objects scan.
type EscrowObject struct {
	Destination   string `json:"Destination"`
	Amount        string `json:"Amount"`
	PreviousTxnID string `json:"PreviousTxnID"`
	FinishAfter   int64  `json:"FinishAfter"`
	CancelAfter   int64  `json:"CancelAfter"`
	Index         string `json:"index"`
}

// AccountEscrows lists the open escrow objects owned by an account.
func (c *Client) AccountEscrows(ctx context.Context, owner string) ([]EscrowObject, error) {
	var result struct {
		AccountObjects []EscrowObject `json:"account_objects"`
	}
	params := map[string]any{
		"account": owner,
		"type":    "escrow",
	}
	if err := c.call(ctx, "account_objects", params, &result); err != nil {
		return nil, err
	}
	return result.AccountObjects, nil
}

// AccountSequence reads the account's current sequence number. The bid
// path does not rely on this: the sequence a submitted transaction ends
// up with is resolved from the validated transaction itself.
func (c *Client) AccountSequence(ctx context.Context, address string) (uint32, error) {
	var result struct {
		AccountData struct {
			Sequence uint32 `json:"Sequence"`
		} `json:"account_data"`
	}
	params := map[string]any{"account": address}
	if err := c.call(ctx, "account_info", params, &result); err != nil {
		return 0, err
	}
	return result.AccountData.Sequence, nil
}
