package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	campaigns "smartswap/config"
	"smartswap/native/loyalty"
	"smartswap/observability"
	"smartswap/observability/logging"
	telemetry "smartswap/observability/otel"
	"smartswap/services/swapd/audit"
	"smartswap/services/swapd/chain"
	"smartswap/services/swapd/config"
	"smartswap/services/swapd/executor"
	"smartswap/services/swapd/history"
	"smartswap/services/swapd/quote"
	"smartswap/services/swapd/server"
	"smartswap/services/swapd/signer"
	"smartswap/services/swapd/storage"
	"smartswap/services/swapd/tokens"
)

func main() {
	var (
		cfgPath            string
		envFile            string
		allowInsecureAdmin bool
	)
	flag.StringVar(&cfgPath, "config", "services/swapd/config.yaml", "path to swapd configuration file")
	flag.StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before the configuration")
	flag.BoolVar(&allowInsecureAdmin, "allow-insecure-admin", false, "allow admin tokens without TLS (dev only)")
	flag.Parse()

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("swapd: load %s: %v", envFile, err)
	}
	env := strings.TrimSpace(os.Getenv("SWAPD_ENV"))

	var loadOptions []config.Option
	if allowInsecureAdmin {
		if env != "dev" {
			log.Fatalf("swapd: --allow-insecure-admin requires SWAPD_ENV=dev")
		}
		loadOptions = append(loadOptions, config.WithAllowInsecureAdmin())
	}
	cfg, err := config.Load(cfgPath, loadOptions...)
	if err != nil {
		log.Fatalf("swapd: load config: %v", err)
	}

	logger, closer := setupLogging(env, cfg.Logging)
	defer closer.Close()
	if allowInsecureAdmin {
		logger.Warn("allowing admin tokens without TLS (development override)")
	}

	if err := run(cfg, env, logger); err != nil {
		logger.Error("swapd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func setupLogging(env string, cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	return logging.SetupWithFile("swapd", env, logging.ParseLevel(cfg.Level), logging.FileConfig{
		Path:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}

func run(cfg config.Config, env string, logger *slog.Logger) error {
	registry, err := campaigns.LoadCampaigns(cfg.Campaigns.File)
	if err != nil {
		return err
	}
	if err := registry.RequirePerpetual(); err != nil {
		return err
	}
	telemetryCfg := telemetry.FromEnv("swapd", env)
	telemetryCfg.Attributes = map[string]string{}
	for _, c := range registry.Campaigns() {
		fingerprint := loyalty.Fingerprint(c)
		telemetryCfg.Attributes["smartswap.campaign."+c.ID] = fingerprint
		logger.Info("campaign loaded",
			slog.String("campaign", c.ID),
			slog.Int("tiers", len(c.Tiers)),
			slog.String("fingerprint", fingerprint))
	}
	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetryCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	db, err := storage.OpenBackend(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	metrics := observability.Swapd()
	auditLog, err := audit.New(db, audit.Options{
		Capacity: cfg.Audit.Capacity,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}

	hist, err := history.Open(cfg.History.Driver, cfg.History.DSN, cfg.History.Capacity)
	if err != nil {
		return err
	}
	defer hist.Close()

	rpc := chain.New(chain.Config{
		PrimaryURL:  cfg.RPC.Primary,
		FallbackURL: cfg.RPC.Fallback,
		Timeout:     cfg.RPC.Timeout.Duration,
		BalanceTTL:  cfg.RPC.BalanceTTL.Duration,
		Logger:      logger,
		Metrics:     metrics,
	})

	jupiter := quote.NewJupiter(quote.JupiterConfig{
		BaseURL:           cfg.Jupiter.BaseURL,
		APIKey:            cfg.Jupiter.APIKey,
		FeeAccount:        cfg.Jupiter.FeeAccount,
		Timeout:           cfg.Jupiter.Timeout.Duration,
		RequestsPerSecond: cfg.Jupiter.RequestsPerSecond,
		Logger:            logger,
	})
	if !jupiter.FeeEnabled() {
		logger.Warn("no fee account configured, quotes carry no platform fee")
	}

	logger.Info("swapd configured",
		logging.MaskField("store_backend", cfg.Storage.Backend),
		logging.MaskField("history", cfg.History.Driver),
		logging.MaskField("jupiter_url", cfg.Jupiter.BaseURL),
		logging.MaskField("jupiter_api_key", cfg.Jupiter.APIKey),
		logging.MaskField("fee_account", cfg.Jupiter.FeeAccount),
		logging.MaskField("rpc_primary", cfg.RPC.Primary),
		logging.MaskField("rpc_fallback", cfg.RPC.Fallback),
		logging.MaskField("signer_mode", cfg.Signer.Mode),
		logging.MaskField("history_dsn", cfg.History.DSN))

	var swapSigner signer.Signer
	if cfg.Signer.Mode == config.SignerMock {
		logger.Warn("mock signer enabled, swaps are not submitted")
		swapSigner = &signer.Mock{Logger: logger}
	}

	exec, err := executor.New(executor.Config{
		Registry: registry,
		Balances: rpc,
		Bonuses:  &chain.BonusChecker{Client: rpc, Logger: logger},
		Provider: jupiter,
		Signer:   swapSigner,
		Audit:    auditLog,
		History:  hist,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	auth, err := server.NewAuthenticator(server.AuthConfig{
		HMACSecret: cfg.Admin.JWTSecret,
		Issuer:     cfg.Admin.Issuer,
		Audience:   cfg.Admin.Audience,
	}, logger)
	if err != nil {
		return err
	}

	var tlsConfig *tls.Config
	if !cfg.Admin.TLS.Disable {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	var health func(context.Context) error
	if pinger, ok := db.(interface{ Ping(context.Context) error }); ok {
		health = pinger.Ping
	}
	srv, err := server.New(server.Config{
		ListenAddress: cfg.ListenAddress,
		TLS: server.TLSConfig{
			Disabled: cfg.Admin.TLS.Disable,
			CertFile: cfg.Admin.TLS.CertPath,
			KeyFile:  cfg.Admin.TLS.KeyPath,
			Config:   tlsConfig,
		},
		RateLimit: server.RateLimit{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
		},
		Thresholds:    cfg.Audit.Thresholds,
		StreamOrigins: cfg.Admin.StreamOrigins,
	}, server.Deps{
		Registry: registry,
		Swaps:    exec,
		Audit:    auditLog,
		History:  hist,
		Tokens:   tokens.New(db, nil, logger),
		Auth:     auth,
		Health:   health,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
