package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"smartswap/native/loyalty"
	"smartswap/observability"
	"smartswap/observability/logging"
	telemetry "smartswap/observability/otel"
	"smartswap/services/swapd/audit"
	"smartswap/services/swapd/history"
	"smartswap/services/swapd/quote"
	"smartswap/services/swapd/signer"
)

// Outcome of a swap attempt.
type Outcome string

const (
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeUncertain Outcome = "uncertain"
	OutcomeFailed    Outcome = "failed"
)

var (
	// ErrWalletRequired is returned when a request names no wallet.
	ErrWalletRequired = errors.New("executor: wallet required")
	// ErrMissingDependency is returned by New when a collaborator is nil.
	ErrMissingDependency = errors.New("executor: missing dependency")
	// ErrSigningDisabled is returned by Execute when no signer is configured.
	ErrSigningDisabled = errors.New("executor: signing disabled")
)

// Balances resolves a wallet's holdings of a token in whole-token units.
type Balances interface {
	TokenBalance(ctx context.Context, wallet, mint string) (float64, error)
}

// Bonuses returns the ids of the campaign bonuses wallet qualifies for.
type Bonuses interface {
	Granted(ctx context.Context, wallet string, c *loyalty.Campaign) []string
}

// AuditLog records swap attempts.
type AuditLog interface {
	Append(ctx context.Context, attempt audit.Attempt) (audit.Entry, error)
}

// History records completed swaps.
type History interface {
	Add(ctx context.Context, rec history.SwapRecord) (history.SwapRecord, error)
}

type invalidator interface {
	Invalidate(wallet string)
}

// Config wires the executor's collaborators. Signer, History, Metrics,
// Logger and Now are optional; without a signer only fees and quotes work.
type Config struct {
	Registry *loyalty.Registry
	Balances Balances
	Bonuses  Bonuses
	Provider quote.Provider
	Signer   signer.Signer
	Audit    AuditLog
	History  History
	Metrics  *observability.SwapdMetrics
	Logger   *slog.Logger
	Now      func() time.Time
}

// Executor runs the fee, quote and swap flow.
type Executor struct {
	registry *loyalty.Registry
	balances Balances
	bonuses  Bonuses
	provider quote.Provider
	signer   signer.Signer
	audit    AuditLog
	history  History
	metrics  *observability.SwapdMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// New validates cfg and builds an executor.
func New(cfg Config) (*Executor, error) {
	switch {
	case cfg.Registry == nil:
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	case cfg.Balances == nil:
		return nil, fmt.Errorf("%w: balances", ErrMissingDependency)
	case cfg.Bonuses == nil:
		return nil, fmt.Errorf("%w: bonuses", ErrMissingDependency)
	case cfg.Provider == nil:
		return nil, fmt.Errorf("%w: quote provider", ErrMissingDependency)
	case cfg.Audit == nil:
		return nil, fmt.Errorf("%w: audit log", ErrMissingDependency)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Executor{
		registry: cfg.Registry,
		balances: cfg.Balances,
		bonuses:  cfg.Bonuses,
		provider: cfg.Provider,
		signer:   cfg.Signer,
		audit:    cfg.Audit,
		history:  cfg.History,
		metrics:  cfg.Metrics,
		logger:   logger,
		now:      now,
	}, nil
}

// FeeDecision is the fee a wallet pays right now and the inputs behind it.
// Audit entries record exactly these inputs.
type FeeDecision struct {
	Campaign     *loyalty.Campaign `json:"-"`
	CampaignID   string            `json:"campaignId"`
	Balance      float64           `json:"balance"`
	Bonuses      []string          `json:"bonuses"`
	HasSeekerNFT bool              `json:"hasSeekerNft"`
	Summary      loyalty.Summary   `json:"summary"`
}

// FeeBps is the effective fee.
func (d FeeDecision) FeeBps() int {
	return d.Summary.EffectiveFeeBps
}

// Fee resolves the active campaign and computes wallet's effective fee. A
// failed balance lookup is treated as a zero balance, which can only raise
// the fee.
func (e *Executor) Fee(ctx context.Context, wallet string) (FeeDecision, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return FeeDecision{}, ErrWalletRequired
	}
	ctx, span := telemetry.Tracer().Start(ctx, "swapd.fee")
	defer span.End()
	started := time.Now()
	defer func() { e.metrics.ObserveStep("fee", time.Since(started)) }()

	campaign, err := e.registry.ActiveOrDefault(e.now())
	if err != nil {
		return FeeDecision{}, err
	}
	balance, err := e.balances.TokenBalance(ctx, wallet, campaign.TokenMint)
	if err != nil {
		e.logger.Warn("balance lookup failed, using zero",
			logging.Wallet(wallet),
			slog.String("campaign", campaign.ID),
			slog.Any("error", err))
		balance = 0
	}
	granted := e.bonuses.Granted(ctx, wallet, campaign)
	summary := loyalty.Summarize(campaign, balance, loyalty.BonusSet(granted...))
	e.metrics.RecordFee(campaign.ID, summary.Tier.Name, summary.EffectiveFeeBps)
	span.SetAttributes(
		attribute.String("campaign", campaign.ID),
		attribute.Int("tier", summary.Tier.Level),
		attribute.Int("fee_bps", summary.EffectiveFeeBps))
	return FeeDecision{
		Campaign:     campaign,
		CampaignID:   campaign.ID,
		Balance:      balance,
		Bonuses:      granted,
		HasSeekerNFT: slices.Contains(granted, loyalty.SeekerGenesisBonusID),
		Summary:      summary,
	}, nil
}

// QuoteRequest is a wallet's request for a priced route.
type QuoteRequest struct {
	Wallet      string `json:"wallet"`
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	Amount      string `json:"amount"`
	SlippageBps int    `json:"slippageBps"`
}

// QuoteResult pairs a route with the fee decision it was priced under.
type QuoteResult struct {
	Quote *quote.Quote `json:"quote"`
	Fee   FeeDecision  `json:"fee"`
}

// Quote prices a route with the wallet's effective fee attached.
func (e *Executor) Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error) {
	fee, err := e.Fee(ctx, req.Wallet)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	q, err := e.provider.Quote(ctx, quote.Request{
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		Amount:         req.Amount,
		SlippageBps:    req.SlippageBps,
		PlatformFeeBps: fee.FeeBps(),
	})
	e.metrics.ObserveStep("quote", time.Since(started))
	if err != nil {
		return nil, err
	}
	return &QuoteResult{Quote: q, Fee: fee}, nil
}

// Result describes an executed swap attempt.
type Result struct {
	Outcome   Outcome      `json:"outcome"`
	Signature string       `json:"signature,omitempty"`
	Fee       FeeDecision  `json:"fee"`
	Quote     *quote.Quote `json:"quote"`
	Audit     audit.Entry  `json:"audit"`
}

// Execute quotes, builds, signs and submits a swap. Every attempt that
// reaches the signer is audited exactly once, whatever the outcome. The
// returned error is the signer's for failed and uncertain attempts.
func (e *Executor) Execute(ctx context.Context, req QuoteRequest) (*Result, error) {
	if e.signer == nil {
		return nil, ErrSigningDisabled
	}
	ctx, span := telemetry.Tracer().Start(ctx, "swapd.execute")
	defer span.End()
	priced, err := e.Quote(ctx, req)
	if err != nil {
		e.metrics.RecordSwap("quote_failed")
		span.SetStatus(codes.Error, "quote failed")
		return nil, err
	}
	started := time.Now()
	tx, err := e.provider.SwapTransaction(ctx, priced.Quote, req.Wallet)
	e.metrics.ObserveStep("build", time.Since(started))
	if err != nil {
		e.metrics.RecordSwap("build_failed")
		span.SetStatus(codes.Error, "build failed")
		return nil, err
	}

	started = time.Now()
	signature, signErr := e.signer.SignAndSend(ctx, req.Wallet, tx)
	e.metrics.ObserveStep("sign", time.Since(started))

	outcome := OutcomeConfirmed
	switch {
	case signErr == nil && signature != "":
	case signErr == nil, errors.Is(signErr, signer.ErrUncertain):
		outcome = OutcomeUncertain
	default:
		outcome = OutcomeFailed
	}

	expected := priced.Fee.FeeBps()
	attempt := audit.Attempt{
		Wallet:         req.Wallet,
		CampaignID:     priced.Fee.CampaignID,
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		InputAmount:    req.Amount,
		ExpectedFeeBps: expected,
		ActualFeeBps:   priced.Quote.EmbeddedFeeBps(expected),
		SKRBalance:     priced.Fee.Balance,
		HasSeekerNFT:   priced.Fee.HasSeekerNFT,
	}
	if outcome == OutcomeConfirmed {
		sig := signature
		attempt.TxSignature = &sig
	}
	// Detached so a cancelled request still leaves its audit trail.
	auditCtx := context.WithoutCancel(ctx)
	entry, auditErr := e.audit.Append(auditCtx, attempt)
	if auditErr != nil {
		e.logger.Error("audit append failed", slog.String("entry", entry.ID), slog.Any("error", auditErr))
	}

	result := &Result{
		Outcome: outcome,
		Fee:     priced.Fee,
		Quote:   priced.Quote,
		Audit:   entry,
	}
	e.metrics.RecordSwap(string(outcome))
	span.SetAttributes(
		attribute.String("outcome", string(outcome)),
		attribute.String("audit_entry", entry.ID),
		attribute.Int("fee_bps", expected))
	logger := e.logger.With(
		logging.Wallet(req.Wallet),
		slog.String("campaign", priced.Fee.CampaignID),
		slog.String("outcome", string(outcome)),
		slog.Int("fee_bps", expected))

	if outcome != OutcomeConfirmed {
		if signErr == nil {
			signErr = signer.ErrUncertain
		}
		logger.Warn("swap not confirmed", slog.Any("error", signErr))
		span.SetStatus(codes.Error, string(outcome))
		return result, signErr
	}

	result.Signature = signature
	logger.Info("swap confirmed")
	if inv, ok := e.balances.(invalidator); ok {
		inv.Invalidate(req.Wallet)
	}
	if e.history != nil {
		_, err := e.history.Add(auditCtx, history.SwapRecord{
			Wallet:       req.Wallet,
			Timestamp:    entry.Timestamp,
			InputMint:    req.InputMint,
			OutputMint:   req.OutputMint,
			InputAmount:  req.Amount,
			OutputAmount: priced.Quote.OutAmount,
			Signature:    signature,
			Status:       history.StatusSuccess,
			FeeBps:       attempt.ActualFeeBps,
			CampaignID:   priced.Fee.CampaignID,
		})
		if err != nil {
			logger.Error("history write failed", slog.Any("error", err))
		}
	}
	return result, nil
}
