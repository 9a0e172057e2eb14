package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"smartswap/observability"
	"smartswap/observability/logging"
)

const (
	// DefaultRPCURL is the public mainnet endpoint.
	DefaultRPCURL = "https://api.mainnet-beta.solana.com"
	// DefaultBalanceTTL is how long a balance lookup is served from cache.
	DefaultBalanceTTL = 30 * time.Second

	nativeMint       = "So11111111111111111111111111111111111111112"
	lamportsPerSOL   = 1_000_000_000
	dasPageLimit     = 100
	endpointPrimary  = "primary"
	endpointFallback = "fallback"
)

var (
	// ErrNotConfigured is returned when the client has no endpoint.
	ErrNotConfigured = errors.New("chain: client not configured")
	// ErrInvalidAmount is returned when an RPC reports a token amount that is
	// negative or not a finite number.
	ErrInvalidAmount = errors.New("chain: invalid token amount")
)

// Config configures the RPC client.
type Config struct {
	PrimaryURL  string
	FallbackURL string
	Timeout     time.Duration
	BalanceTTL  time.Duration
	HTTPClient  *http.Client
	Logger      *slog.Logger
	Metrics     *observability.SwapdMetrics
	Now         func() time.Time
}

type cachedBalance struct {
	balance float64
	at      time.Time
}

// Client is a JSON-RPC client with primary/fallback failover and a short
// balance cache.
type Client struct {
	endpoints  []string
	httpClient *http.Client
	ttl        time.Duration
	logger     *slog.Logger
	metrics    *observability.SwapdMetrics
	now        func() time.Time
	nextID     atomic.Int64

	mu    sync.Mutex
	cache map[string]cachedBalance
}

// New constructs a client. An empty primary URL selects the public endpoint.
func New(cfg Config) *Client {
	primary := strings.TrimSpace(cfg.PrimaryURL)
	if primary == "" {
		primary = DefaultRPCURL
	}
	endpoints := []string{primary}
	if fallback := strings.TrimSpace(cfg.FallbackURL); fallback != "" && fallback != primary {
		endpoints = append(endpoints, fallback)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	ttl := cfg.BalanceTTL
	if ttl <= 0 {
		ttl = DefaultBalanceTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		endpoints:  endpoints,
		httpClient: httpClient,
		ttl:        ttl,
		logger:     logger,
		metrics:    cfg.Metrics,
		now:        now,
		cache:      make(map[string]cachedBalance),
	}
}

// HasFailover reports whether a fallback endpoint is configured.
func (c *Client) HasFailover() bool {
	return len(c.endpoints) > 1
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call tries each endpoint in order. When all fail the primary's error is
// returned since it is the more relevant one.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if c == nil || len(c.endpoints) == 0 {
		return ErrNotConfigured
	}
	var firstErr error
	for i, endpoint := range c.endpoints {
		role := endpointPrimary
		if i > 0 {
			role = endpointFallback
		}
		err := c.callEndpoint(ctx, endpoint, method, params, out)
		c.metrics.RecordRPC(role, method, err)
		if err == nil {
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
		if ctx.Err() != nil {
			break
		}
		if i+1 < len(c.endpoints) {
			c.logger.Warn("primary rpc failed, trying fallback", slog.String("method", method), slog.Any("error", err))
		}
	}
	return firstErr
}

func (c *Client) callEndpoint(ctx context.Context, endpoint, method string, params any, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chain: %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("chain: %s: unexpected status %d", method, resp.StatusCode)
	}
	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("chain: %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("chain: %s: error %d %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out == nil {
		return nil
	}
	if len(rpcResp.Result) == 0 {
		return fmt.Errorf("chain: %s: empty result", method)
	}
	return json.Unmarshal(rpcResp.Result, out)
}

type balanceResult struct {
	Value uint64 `json:"value"`
}

type tokenAccountsResult struct {
	Value []struct {
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						Mint        string `json:"mint"`
						TokenAmount struct {
							Amount         string `json:"amount"`
							Decimals       int    `json:"decimals"`
							UIAmountString string `json:"uiAmountString"`
						} `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

// TokenBalance returns the wallet's balance of mint in whole-token units,
// summed over all of the wallet's accounts for that mint. Results are cached
// per wallet and mint.
func (c *Client) TokenBalance(ctx context.Context, wallet, mint string) (float64, error) {
	wallet = strings.TrimSpace(wallet)
	mint = strings.TrimSpace(mint)
	if wallet == "" || mint == "" {
		return 0, nil
	}
	key := wallet + ":" + mint
	now := c.now()
	c.mu.Lock()
	if cached, ok := c.cache[key]; ok && now.Sub(cached.at) < c.ttl {
		c.mu.Unlock()
		c.metrics.RecordBalanceCache(true)
		return cached.balance, nil
	}
	c.mu.Unlock()
	c.metrics.RecordBalanceCache(false)

	var balance float64
	if mint == nativeMint {
		var result balanceResult
		if err := c.call(ctx, "getBalance", []any{wallet, map[string]string{"commitment": "confirmed"}}, &result); err != nil {
			return 0, err
		}
		balance = float64(result.Value) / lamportsPerSOL
	} else {
		var result tokenAccountsResult
		params := []any{
			wallet,
			map[string]string{"mint": mint},
			map[string]string{"encoding": "jsonParsed", "commitment": "confirmed"},
		}
		if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
			return 0, err
		}
		for _, account := range result.Value {
			amount := account.Account.Data.Parsed.Info.TokenAmount.UIAmountString
			if amount == "" {
				continue
			}
			parsed, err := strconv.ParseFloat(amount, 64)
			if err != nil {
				return 0, fmt.Errorf("chain: parse token amount %q: %w", amount, err)
			}
			if math.IsNaN(parsed) || math.IsInf(parsed, 0) || parsed < 0 {
				return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
			}
			balance += parsed
		}
	}

	c.mu.Lock()
	c.cache[key] = cachedBalance{balance: balance, at: now}
	c.mu.Unlock()
	c.logger.Debug("balance fetched", logging.Wallet(wallet), slog.String("mint", logging.ShortAddress(mint)), slog.Float64("balance", balance))
	return balance, nil
}

// Invalidate drops cached balances for wallet, e.g. after a swap settles.
func (c *Client) Invalidate(wallet string) {
	prefix := strings.TrimSpace(wallet) + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.cache {
		if strings.HasPrefix(key, prefix) {
			delete(c.cache, key)
		}
	}
}

type assetsResult struct {
	Items []struct {
		Authorities []struct {
			Address string `json:"address"`
		} `json:"authorities"`
		Grouping []struct {
			GroupKey   string `json:"group_key"`
			GroupValue string `json:"group_value"`
		} `json:"grouping"`
	} `json:"items"`
}

// HoldsCollection reports whether wallet owns an asset in the collection
// group or minted by authority, using the DAS getAssetsByOwner method.
func (c *Client) HoldsCollection(ctx context.Context, wallet, group, authority string) (bool, error) {
	if strings.TrimSpace(wallet) == "" {
		return false, nil
	}
	params := map[string]any{
		"ownerAddress": wallet,
		"page":         1,
		"limit":        dasPageLimit,
		"displayOptions": map[string]bool{
			"showFungible":      false,
			"showNativeBalance": false,
		},
	}
	var result assetsResult
	if err := c.call(ctx, "getAssetsByOwner", params, &result); err != nil {
		return false, err
	}
	for _, item := range result.Items {
		for _, auth := range item.Authorities {
			if authority != "" && auth.Address == authority {
				return true, nil
			}
		}
		for _, g := range item.Grouping {
			if g.GroupKey == "collection" && group != "" && g.GroupValue == group {
				return true, nil
			}
		}
	}
	return false, nil
}
