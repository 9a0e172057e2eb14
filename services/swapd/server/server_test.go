package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"smartswap/native/loyalty"
	"smartswap/services/swapd/audit"
	"smartswap/services/swapd/executor"
	"smartswap/services/swapd/quote"
	"smartswap/services/swapd/signer"
	"smartswap/services/swapd/tokens"
	"smartswap/storage"
)

const (
	testSecret = "test-admin-secret"
	testWallet = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	solMint    = "So11111111111111111111111111111111111111112"
	usdcMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSwaps struct {
	fee        executor.FeeDecision
	quoteErr   error
	result     *executor.Result
	executeErr error
}

func (f *fakeSwaps) Fee(_ context.Context, wallet string) (executor.FeeDecision, error) {
	if strings.TrimSpace(wallet) == "" {
		return executor.FeeDecision{}, executor.ErrWalletRequired
	}
	return f.fee, nil
}

func (f *fakeSwaps) Quote(context.Context, executor.QuoteRequest) (*executor.QuoteResult, error) {
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return &executor.QuoteResult{Quote: &quote.Quote{OutAmount: "42"}, Fee: f.fee}, nil
}

func (f *fakeSwaps) Execute(context.Context, executor.QuoteRequest) (*executor.Result, error) {
	return f.result, f.executeErr
}

type testServer struct {
	srv   *Server
	http  *httptest.Server
	log   *audit.Log
	swaps *fakeSwaps
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	db := storage.NewMemDB()
	log, err := audit.New(db, audit.Options{Now: func() time.Time { return testNow }})
	require.NoError(t, err)
	auth, err := NewAuthenticator(AuthConfig{HMACSecret: testSecret, Issuer: "smartswap"}, nil)
	require.NoError(t, err)
	swaps := &fakeSwaps{fee: executor.FeeDecision{CampaignID: "skr-season-1"}}
	srv, err := New(cfg, Deps{
		Registry: loyalty.DefaultRegistry(),
		Swaps:    swaps,
		Audit:    log,
		Tokens:   tokens.New(db, func() time.Time { return testNow }, nil),
		Auth:     auth,
		Now:      func() time.Time { return testNow },
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{srv: srv, http: ts, log: log, swaps: swaps}
}

func adminToken(t *testing.T, secret, scope string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   "smartswap",
		"sub":   "ops",
		"scope": scope,
		"exp":   time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (ts *testServer) do(t *testing.T, method, path, token string, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, ts.http.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func seedAudit(t *testing.T, log *audit.Log, n int, actual int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := log.Append(context.Background(), audit.Attempt{
			Wallet:         testWallet,
			InputMint:      solMint,
			OutputMint:     usdcMint,
			InputAmount:    "1000",
			ExpectedFeeBps: 25,
			ActualFeeBps:   actual,
			SKRBalance:     1_000,
		})
		require.NoError(t, err)
	}
}

func TestHealthAndCampaigns(t *testing.T) {
	ts := newTestServer(t, Config{})

	resp := ts.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/v1/campaigns", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Active    string         `json:"active"`
		Campaigns []loyalty.View `json:"campaigns"`
	}
	decode(t, resp, &list)
	require.Equal(t, "skr-season-1", list.Active)
	require.Len(t, list.Campaigns, 2)
	require.Equal(t, loyalty.StatusActive, list.Campaigns[0].Status)
	require.Len(t, list.Campaigns[0].Fingerprint, 64)

	resp = ts.do(t, http.MethodGet, "/v1/campaigns/otd-perpetual", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/v1/campaigns/missing", "", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeeAndQuoteRoutes(t *testing.T) {
	ts := newTestServer(t, Config{})

	resp := ts.do(t, http.MethodGet, "/v1/fees/"+testWallet, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := `{"wallet":"` + testWallet + `","inputMint":"` + solMint + `","outputMint":"` + usdcMint + `","amount":"1000"}`
	resp = ts.do(t, http.MethodPost, "/v1/quote", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodPost, "/v1/quote", "", `{"unknown":1}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ts.swaps.quoteErr = &quote.Error{Kind: quote.KindRateLimited, RetryAfter: 3 * time.Second}
	resp = ts.do(t, http.MethodPost, "/v1/quote", "", body)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "3", resp.Header.Get("Retry-After"))

	ts.swaps.quoteErr = &quote.Error{Kind: quote.KindNoRoute, Message: "none"}
	resp = ts.do(t, http.MethodPost, "/v1/quote", "", body)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestSwapOutcomes(t *testing.T) {
	ts := newTestServer(t, Config{})
	body := `{"wallet":"` + testWallet + `","inputMint":"` + solMint + `","outputMint":"` + usdcMint + `","amount":"1000"}`

	ts.swaps.result = &executor.Result{Outcome: executor.OutcomeConfirmed, Signature: "sig"}
	resp := ts.do(t, http.MethodPost, "/v1/swap", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ts.swaps.result = &executor.Result{Outcome: executor.OutcomeUncertain}
	ts.swaps.executeErr = signer.ErrUncertain
	resp = ts.do(t, http.MethodPost, "/v1/swap", "", body)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var payload struct {
		Result executor.Result `json:"result"`
		Error  string          `json:"error"`
	}
	decode(t, resp, &payload)
	require.Equal(t, executor.OutcomeUncertain, payload.Result.Outcome)
	require.NotEmpty(t, payload.Error)

	ts.swaps.result = &executor.Result{Outcome: executor.OutcomeFailed}
	ts.swaps.executeErr = signer.ErrRejected
	resp = ts.do(t, http.MethodPost, "/v1/swap", "", body)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAdminAuthentication(t *testing.T) {
	ts := newTestServer(t, Config{})
	seedAudit(t, ts.log, 2, 25)

	cases := []struct {
		name   string
		method string
		token  string
		want   int
	}{
		{"missing token", http.MethodGet, "", http.StatusUnauthorized},
		{"wrong secret", http.MethodGet, adminToken(t, "other", ScopeAuditRead, time.Hour), http.StatusUnauthorized},
		{"expired", http.MethodGet, adminToken(t, testSecret, ScopeAuditRead, -time.Hour), http.StatusUnauthorized},
		{"missing scope", http.MethodGet, adminToken(t, testSecret, "other", time.Hour), http.StatusForbidden},
		{"read scope", http.MethodGet, adminToken(t, testSecret, ScopeAuditRead, time.Hour), http.StatusOK},
		{"read scope cannot clear", http.MethodDelete, adminToken(t, testSecret, ScopeAuditRead, time.Hour), http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := ts.do(t, tc.method, "/admin/audit/entries", tc.token, "")
			require.Equal(t, tc.want, resp.StatusCode)
		})
	}
	require.Len(t, ts.log.Entries(context.Background()), 2)

	resp := ts.do(t, http.MethodDelete, "/admin/audit/entries", adminToken(t, testSecret, ScopeAuditAdmin, time.Hour), "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Empty(t, ts.log.Entries(context.Background()))
}

func TestAuditReadRoutes(t *testing.T) {
	ts := newTestServer(t, Config{})
	seedAudit(t, ts.log, 3, 0)
	token := adminToken(t, testSecret, ScopeAuditRead, time.Hour)

	resp := ts.do(t, http.MethodGet, "/admin/audit/stats", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats audit.Summary
	decode(t, resp, &stats)
	require.Equal(t, 3, stats.TotalSwaps)
	require.Equal(t, 3, stats.ZeroFeeCount)

	resp = ts.do(t, http.MethodGet, "/admin/audit/anomalies", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var found struct {
		Anomalies []audit.Anomaly `json:"anomalies"`
	}
	decode(t, resp, &found)
	// 3 mismatches, 3 zero-fee findings and one repeated pattern.
	require.Len(t, found.Anomalies, 7)

	resp = ts.do(t, http.MethodGet, "/admin/audit/export", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Disposition"), "swap-audit-20260301T120000Z.json")
	var snapshot audit.Snapshot
	decode(t, resp, &snapshot)
	require.Len(t, snapshot.Entries, 3)
	require.NotEmpty(t, snapshot.Digest)

	resp = ts.do(t, http.MethodGet, "/admin/audit/export.parquet", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	blob, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, len(blob) > 8)
	require.Equal(t, "PAR1", string(blob[:4]))
}

func TestHealthReportsStoreFailure(t *testing.T) {
	db := storage.NewMemDB()
	log, err := audit.New(db, audit.Options{})
	require.NoError(t, err)
	auth, err := NewAuthenticator(AuthConfig{HMACSecret: testSecret}, nil)
	require.NoError(t, err)
	srv, err := New(Config{}, Deps{
		Registry: loyalty.DefaultRegistry(),
		Swaps:    &fakeSwaps{},
		Audit:    log,
		Auth:     auth,
		Health:   func(context.Context) error { return errors.New("database is locked") },
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "unavailable")
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Config{RateLimit: RateLimit{RequestsPerMinute: 1, Burst: 2}})
	for i := 0; i < 2; i++ {
		resp := ts.do(t, http.MethodGet, "/v1/campaigns", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := ts.do(t, http.MethodGet, "/v1/campaigns", "", "")
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFavoritesRoutes(t *testing.T) {
	ts := newTestServer(t, Config{})
	path := "/v1/favorites/" + testWallet

	resp := ts.do(t, http.MethodGet, path, "", "")
	var list struct {
		Mints []string `json:"mints"`
	}
	decode(t, resp, &list)
	require.Equal(t, tokens.DefaultFavorites(), list.Mints)

	resp = ts.do(t, http.MethodDelete, path+"/"+tokens.MintBONK, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	require.NotContains(t, list.Mints, tokens.MintBONK)

	resp = ts.do(t, http.MethodPut, path+"/not-a-mint", "", "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/v1/history/"+testWallet, "", "")
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestAuditStream(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := adminToken(t, testSecret, ScopeAuditRead, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/admin/audit/stream?access_token=" + token
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The subscription is registered after the upgrade; retry until it sees one.
	received := make(chan audit.Entry, 1)
	go func() {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var entry audit.Entry
		if json.Unmarshal(data, &entry) == nil {
			received <- entry
		}
	}()
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case entry := <-received:
			require.Equal(t, testWallet, entry.Wallet)
			return
		case <-ticker.C:
			seedAudit(t, ts.log, 1, 25)
		case <-ctx.Done():
			t.Fatalf("no audit entry streamed")
		}
	}
}

func TestAuditStreamOriginAllowlist(t *testing.T) {
	ts := newTestServer(t, Config{StreamOrigins: []string{"ops.example.com"}})
	token := adminToken(t, testSecret, ScopeAuditRead, time.Hour)
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/admin/audit/stream?access_token=" + token

	dial := func(origin string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		opts := &websocket.DialOptions{}
		if origin != "" {
			opts.HTTPHeader = http.Header{"Origin": []string{origin}}
		}
		conn, _, err := websocket.Dial(ctx, url, opts)
		if err != nil {
			return err
		}
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return nil
	}

	require.Error(t, dial("https://evil.example"))
	require.NoError(t, dial("https://ops.example.com"))
	require.NoError(t, dial(""))
}
