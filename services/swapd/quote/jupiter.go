package quote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Jupiter API.
	DefaultBaseURL = "https://api.jup.ag"

	quotePath = "/swap/v1/quote"
	swapPath  = "/swap/v1/swap"

	maxErrorBody = 4 << 10
)

// JupiterConfig configures the Jupiter client.
type JupiterConfig struct {
	BaseURL string
	APIKey  string
	// FeeAccount receives the platform fee. Without it no fee is attached to
	// quotes, whatever the requested fee.
	FeeAccount string
	Timeout    time.Duration
	// RequestsPerSecond throttles outbound calls; zero disables throttling.
	RequestsPerSecond float64
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Jupiter implements Provider over the Jupiter swap API.
type Jupiter struct {
	baseURL    string
	apiKey     string
	feeAccount string
	client     *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

var _ Provider = (*Jupiter)(nil)

// NewJupiter constructs a client.
func NewJupiter(cfg JupiterConfig) *Jupiter {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return &Jupiter{
		baseURL:    base,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		feeAccount: strings.TrimSpace(cfg.FeeAccount),
		client:     client,
		limiter:    limiter,
		logger:     logger,
	}
}

// FeeEnabled reports whether quotes carry a platform fee.
func (j *Jupiter) FeeEnabled() bool {
	return j.feeAccount != ""
}

// Quote fetches a route for req.
func (j *Jupiter) Quote(ctx context.Context, req Request) (*Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("inputMint", req.InputMint)
	params.Set("outputMint", req.OutputMint)
	params.Set("amount", req.Amount)
	params.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	if j.feeAccount != "" && req.PlatformFeeBps > 0 {
		params.Set("platformFeeBps", strconv.Itoa(req.PlatformFeeBps))
	}

	body, err := j.do(ctx, http.MethodGet, quotePath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var q Quote
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, &Error{Kind: KindAPI, Status: http.StatusOK, Message: "malformed quote response", Err: err}
	}
	if q.OutAmount == "" {
		return nil, &Error{Kind: KindNoRoute, Message: "provider returned an empty route"}
	}
	q.Raw = append(json.RawMessage(nil), body...)
	j.logger.Debug("quote received",
		slog.String("input_mint", req.InputMint),
		slog.String("output_mint", req.OutputMint),
		slog.String("out_amount", q.OutAmount))
	return &q, nil
}

type swapRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
	FeeAccount       string          `json:"feeAccount,omitempty"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// SwapTransaction asks the provider to build the serialized transaction for q.
func (j *Jupiter) SwapTransaction(ctx context.Context, q *Quote, userPublicKey string) ([]byte, error) {
	if q == nil {
		return nil, validationError("quote", "", "quote required")
	}
	if err := ValidateMint("userPublicKey", userPublicKey); err != nil {
		return nil, err
	}
	raw := q.Raw
	if len(raw) == 0 {
		encoded, err := json.Marshal(q)
		if err != nil {
			return nil, &Error{Kind: KindValidation, Field: "quote", Message: "quote not encodable", Err: err}
		}
		raw = encoded
	}
	payload, err := json.Marshal(swapRequest{
		QuoteResponse:    raw,
		UserPublicKey:    userPublicKey,
		WrapAndUnwrapSol: true,
		FeeAccount:       j.feeAccount,
	})
	if err != nil {
		return nil, fmt.Errorf("encode swap request: %w", err)
	}
	body, err := j.do(ctx, http.MethodPost, swapPath, payload)
	if err != nil {
		return nil, err
	}
	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Kind: KindAPI, Status: http.StatusOK, Message: "malformed swap response", Err: err}
	}
	tx, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil || len(tx) == 0 {
		return nil, &Error{Kind: KindAPI, Status: http.StatusOK, Message: "swap transaction is not valid base64", Err: err}
	}
	return tx, nil
}

type apiErrorBody struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

func (j *Jupiter) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if j.limiter != nil {
		if err := j.limiter.Wait(ctx); err != nil {
			return nil, &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
		}
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, j.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if j.apiKey != "" {
		req.Header.Set("x-api-key", j.apiKey)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{Kind: KindRateLimited, Status: resp.StatusCode, RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 400:
		message := strings.TrimSpace(string(truncate(data, maxErrorBody)))
		var parsed apiErrorBody
		if json.Unmarshal(data, &parsed) == nil {
			if isNoRoute(parsed) {
				return nil, &Error{Kind: KindNoRoute, Status: resp.StatusCode, Message: parsed.Error}
			}
			if parsed.Error != "" {
				message = parsed.Error
			}
		}
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, &Error{Kind: KindAPI, Status: resp.StatusCode, Message: message}
	}
	return data, nil
}

func isNoRoute(body apiErrorBody) bool {
	code := strings.ToUpper(body.ErrorCode)
	if strings.Contains(code, "ROUTE") {
		return true
	}
	return strings.Contains(strings.ToLower(body.Error), "no route") ||
		strings.Contains(strings.ToLower(body.Error), "could not find any route")
}

func retryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(data []byte, limit int) []byte {
	if len(data) <= limit {
		return data
	}
	return data[:limit]
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	kind := KindOf(err)
	return kind == KindNetwork || kind == KindRateLimited || errors.Is(err, context.DeadlineExceeded)
}
