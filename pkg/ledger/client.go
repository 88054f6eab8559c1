// Package ledger is a small Solana JSON-RPC client covering the two calls
// sasinspect needs: getAccountInfo and getBlock.
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/ssargent/sasinspect/pkg/codec"
	"github.com/ssargent/sasinspect/pkg/scan"
)

const (
	DefaultEndpoint   = "https://api.mainnet-beta.solana.com"
	DefaultCommitment = "confirmed"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxElapsed = 2 * time.Minute
)

var (
	// ErrAccountNotFound is returned when the node reports no account at an address
	ErrAccountNotFound = errors.New("account not found")

	// ErrUnsupportedEncoding is returned for account data the client cannot decode
	ErrUnsupportedEncoding = errors.New("unsupported account data encoding")
)

// Node error codes for slots that hold no block
const (
	CodeBlockNotAvailable          = -32004
	CodeSlotSkipped                = -32007
	CodeLongTermStorageSlotSkipped = -32009
)

// RPCError is an error object returned by the node
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// HTTPError is a non-2xx response from the endpoint
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("rpc endpoint returned HTTP %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether the status is worth another attempt
func (e *HTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Config holds client settings
type Config struct {
	Endpoint   string
	Commitment string
	Timeout    time.Duration
	MaxElapsed time.Duration // total retry budget; 0 disables retries
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// AccountInfo is the state of an account
type AccountInfo struct {
	Owner      codec.Identifier `json:"owner"`
	Lamports   uint64           `json:"lamports"`
	Executable bool             `json:"executable"`
	RentEpoch  uint64           `json:"rentEpoch"`
	Data       []byte           `json:"data"`
}

// Ledger is what the inspector needs from a node
type Ledger interface {
	GetAccountInfo(ctx context.Context, address codec.Identifier) (*AccountInfo, error)
	GetBlock(ctx context.Context, slot uint64) (*scan.Block, error)
}

// Factory creates ledger clients
type Factory interface {
	NewLedger(cfg Config) (Ledger, error)
}

// DefaultFactory creates JSON-RPC clients
type DefaultFactory struct{}

// NewLedger implements Factory
func (f *DefaultFactory) NewLedger(cfg Config) (Ledger, error) {
	return NewClient(cfg)
}

// Client talks JSON-RPC 2.0 over HTTP
type Client struct {
	endpoint   string
	commitment string
	maxElapsed time.Duration
	http       *http.Client
	logger     *zap.SugaredLogger
	nextID     uint64
}

// NewClient creates a client, filling in defaults for empty settings
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Commitment == "" {
		cfg.Commitment = DefaultCommitment
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxElapsed < 0 {
		return nil, fmt.Errorf("max elapsed must not be negative")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	return &Client{
		endpoint:   cfg.Endpoint,
		commitment: cfg.Commitment,
		maxElapsed: cfg.MaxElapsed,
		http:       cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// Endpoint returns the RPC URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// GetAccountInfo fetches an account with base64 encoded data
func (c *Client) GetAccountInfo(ctx context.Context, address codec.Identifier) (*AccountInfo, error) {
	params := []interface{}{
		address.String(),
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}

	var result struct {
		Value *struct {
			Owner      string          `json:"owner"`
			Lamports   uint64          `json:"lamports"`
			Executable bool            `json:"executable"`
			RentEpoch  uint64          `json:"rentEpoch"`
			Data       json.RawMessage `json:"data"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		return nil, err
	}
	if result.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}

	owner, err := codec.ParseIdentifier(result.Value.Owner)
	if err != nil {
		return nil, fmt.Errorf("invalid owner for %s: %w", address, err)
	}
	data, err := DecodeAccountData(result.Value.Data)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", address, err)
	}

	return &AccountInfo{
		Owner:      owner,
		Lamports:   result.Value.Lamports,
		Executable: result.Value.Executable,
		RentEpoch:  result.Value.RentEpoch,
		Data:       data,
	}, nil
}

// GetBlock fetches a block with parsed instructions. A skipped or
// unavailable slot is reported by the node as an RPC error.
func (c *Client) GetBlock(ctx context.Context, slot uint64) (*scan.Block, error) {
	params := []interface{}{
		slot,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"maxSupportedTransactionVersion": 0,
			"transactionDetails":             "full",
			"rewards":                        false,
			"commitment":                     c.commitment,
		},
	}

	var raw json.RawMessage
	if err := c.call(ctx, "getBlock", params, &raw); err != nil {
		return nil, err
	}

	block, err := scan.DecodeBlock(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("slot %d: %w", slot, err)
	}
	block.Slot = slot
	return block, nil
}

// DecodeAccountData decodes the data field of an account: a
// [payload, encoding] pair where encoding is base64 or base58.
func DecodeAccountData(raw json.RawMessage) ([]byte, error) {
	var pair []string
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, truncate(string(raw), 64))
	}

	switch pair[1] {
	case "base64":
		data, err := base64.StdEncoding.DecodeString(pair[0])
		if err != nil {
			return nil, fmt.Errorf("invalid base64 account data: %w", err)
		}
		return data, nil
	case "base58":
		data, err := base58.Decode(pair[0])
		if err != nil {
			return nil, fmt.Errorf("invalid base58 account data: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, pair[1])
	}
}

// call performs one JSON-RPC request, retrying transport failures, 429 and
// 5xx responses until the retry budget is spent
func (c *Client) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      atomic.AddUint64(&c.nextID, 1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	var resp rpcResponse
	operation := func() error {
		resp = rpcResponse{}
		err := c.do(ctx, body, &resp)
		if err == nil {
			return nil
		}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !httpErr.retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, next time.Duration) {
		c.logger.Warnw("rpc call failed, retrying",
			"method", method,
			"error", err,
			"retry_in", next)
	}

	if err := backoff.RetryNotify(operation, c.policy(ctx), notify); err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%s failed: %w", method, resp.Error)
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func (c *Client) policy(ctx context.Context) backoff.BackOff {
	if c.maxElapsed == 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = c.maxElapsed
	return backoff.WithContext(b, ctx)
}

func (c *Client) do(ctx context.Context, body []byte, resp *rpcResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &HTTPError{StatusCode: res.StatusCode, Body: truncate(string(payload), 256)}
	}
	if err := json.Unmarshal(payload, resp); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
