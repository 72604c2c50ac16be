// Package ledger implements domain.Ledger over the coin daemon's JSON-RPC
// wallet interface. The daemon owns the keys; this client only describes
// transactions and asks the daemon to sign and submit them.
package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bitdex/dexnode/internal/domain"
)

// Client is a bitcoin-style JSON-RPC client with basic auth.
type Client struct {
	url        string
	user       string
	password   string
	httpClient *http.Client
}

// Config holds the daemon connection parameters.
type Config struct {
	// URL is the daemon RPC endpoint, e.g. "http://127.0.0.1:8332".
	URL      string
	User     string
	Password string
	Timeout  time.Duration
}

// New creates a Client for the given daemon.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:      cfg.URL,
		user:     cfg.User,
		password: cfg.Password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// SignAndBroadcast asks the daemon to fund, sign, and submit a carrier
// transaction through the senddatatx wallet call: the named inputs are spent,
// the payload lands in the data output, and change handling stays with the
// daemon.
func (c *Client) SignAndBroadcast(ctx context.Context, tx domain.RawTransaction) (domain.Hash256, error) {
	inputs := make([]map[string]any, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		inputs = append(inputs, map[string]any{
			"txid": in.TxID.Hex(),
			"vout": in.Vout,
		})
	}
	params := []any{inputs, tx.Amount, tx.Fee, hex.EncodeToString(tx.Payload)}

	var txIDHex string
	if err := c.call(ctx, "senddatatx", params, &txIDHex); err != nil {
		return domain.Hash256{}, fmt.Errorf("ledger: senddatatx: %w", err)
	}
	txID, err := domain.Hash256FromHex(txIDHex)
	if err != nil {
		return domain.Hash256{}, fmt.Errorf("ledger: senddatatx returned bad txid %q: %w", txIDHex, err)
	}
	return txID, nil
}

// Confirmations reports the confirmation depth of a transaction. Transactions
// the daemon has seen but not mined report 0.
func (c *Client) Confirmations(ctx context.Context, txID domain.Hash256) (int, error) {
	var result struct {
		Confirmations int `json:"confirmations"`
	}
	if err := c.call(ctx, "gettransaction", []any{txID.Hex()}, &result); err != nil {
		return 0, fmt.Errorf("ledger: gettransaction %s: %w", txID, err)
	}
	return result.Confirmations, nil
}

// ListUnspent returns wallet coins with at least minConf confirmations.
// Amounts come back in the smallest currency unit.
func (c *Client) ListUnspent(ctx context.Context, minConf int) ([]domain.Unspent, error) {
	var result []struct {
		TxID          string `json:"txid"`
		Vout          uint32 `json:"vout"`
		Amount        uint64 `json:"amount"`
		Confirmations int    `json:"confirmations"`
	}
	if err := c.call(ctx, "listunspent", []any{minConf}, &result); err != nil {
		return nil, fmt.Errorf("ledger: listunspent: %w", err)
	}

	out := make([]domain.Unspent, 0, len(result))
	for _, u := range result {
		txID, err := domain.Hash256FromHex(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("ledger: listunspent returned bad txid %q: %w", u.TxID, err)
		}
		out = append(out, domain.Unspent{
			Outpoint:      domain.Outpoint{TxID: txID, Vout: u.Vout},
			Amount:        u.Amount,
			Confirmations: u.Confirmations,
		})
	}
	return out, nil
}

// call performs one JSON-RPC round trip, decoding result into out when out is
// non-nil.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if params == nil {
		params = []any{}
	}
	reqBody, err := json.Marshal(rpcRequest{
		JSONRPC: "1.0",
		ID:      time.Now().UnixNano(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	// Daemons return RPC errors with non-200 statuses and a JSON body; fall
	// through to the decoded error when the body parses.
	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("http status %d", resp.StatusCode)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.Ledger = (*Client)(nil)
