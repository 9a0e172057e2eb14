package config

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"smartswap/services/swapd/audit"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Storage backends.
const (
	BackendSQLite  = "sqlite"
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendMemory  = "memory"
)

// Signer modes.
const (
	SignerMock     = "mock"
	SignerDisabled = "disabled"
)

// Config captures runtime configuration for swapd.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	Storage       StorageConfig   `yaml:"storage"`
	History       HistoryConfig   `yaml:"history"`
	Campaigns     CampaignsConfig `yaml:"campaigns"`
	Jupiter       JupiterConfig   `yaml:"jupiter"`
	RPC           RPCConfig       `yaml:"rpc"`
	Signer        SignerConfig    `yaml:"signer"`
	Audit         AuditConfig     `yaml:"audit"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	Admin         AdminConfig     `yaml:"admin"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// StorageConfig selects the key-value store behind the audit log and token
// caches.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// HistoryConfig selects the swap history database.
type HistoryConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Capacity int    `yaml:"capacity"`
}

// CampaignsConfig points at an optional TOML campaign file.
type CampaignsConfig struct {
	File string `yaml:"file"`
}

// JupiterConfig configures the quote provider.
type JupiterConfig struct {
	BaseURL           string   `yaml:"base_url"`
	APIKey            string   `yaml:"api_key"`
	FeeAccount        string   `yaml:"fee_account"`
	Timeout           Duration `yaml:"timeout"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
}

// RPCConfig configures the chain client.
type RPCConfig struct {
	Primary    string   `yaml:"primary"`
	Fallback   string   `yaml:"fallback"`
	Timeout    Duration `yaml:"timeout"`
	BalanceTTL Duration `yaml:"balance_ttl"`
}

// SignerConfig selects the signer implementation.
type SignerConfig struct {
	Mode string `yaml:"mode"`
}

// AuditConfig sizes the audit log and tunes the anomaly detector.
type AuditConfig struct {
	Capacity   int              `yaml:"capacity"`
	Thresholds audit.Thresholds `yaml:"thresholds"`
}

// RateLimitConfig throttles the public API per client.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// AdminConfig secures the audit endpoints.
type AdminConfig struct {
	JWTSecret string         `yaml:"jwt_secret"`
	Issuer    string         `yaml:"issuer"`
	Audience  string         `yaml:"audience"`
	TLS       AdminTLSConfig `yaml:"tls"`
	// StreamOrigins are extra browser origin hosts allowed on the audit
	// websocket. Same-host and non-browser clients are always allowed.
	StreamOrigins []string `yaml:"stream_origins"`
}

// AdminTLSConfig configures the listener certificate.
type AdminTLSConfig struct {
	Disable  bool   `yaml:"disable"`
	CertPath string `yaml:"cert"`
	KeyPath  string `yaml:"key"`
}

// LoggingConfig configures the log level and optional rotating file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Option customises loading.
type Option func(*loadOptions)

type loadOptions struct {
	allowInsecureAdmin bool
	skipAdmin          bool
	lookupEnv          func(string) (string, bool)
}

// WithAllowInsecureAdmin permits admin tokens over plain HTTP (dev only).
func WithAllowInsecureAdmin() Option {
	return func(o *loadOptions) { o.allowInsecureAdmin = true }
}

// WithoutAdmin skips the admin secret and TLS checks. Offline tools that
// only read the stores use it.
func WithoutAdmin() Option {
	return func(o *loadOptions) { o.skipAdmin = true }
}

// WithEnv replaces the environment lookup, for tests.
func WithEnv(lookup func(string) (string, bool)) Option {
	return func(o *loadOptions) { o.lookupEnv = lookup }
}

// Load reads configuration from the supplied path.
func Load(path string, opts ...Option) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return finish(cfg, opts...)
}

// Parse decodes configuration from YAML text.
func Parse(data []byte, opts ...Option) (Config, error) {
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return finish(cfg, opts...)
}

func finish(cfg Config, opts ...Option) (Config, error) {
	options := loadOptions{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(&options)
	}
	applyEnv(&cfg, options.lookupEnv)
	applyDefaults(&cfg)
	if !options.skipAdmin {
		if err := cfg.Admin.normalise(options.allowInsecureAdmin); err != nil {
			return cfg, err
		}
	}
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv lets deployment secrets stay out of the config file.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	set(&cfg.ListenAddress, "SWAPD_LISTEN")
	set(&cfg.Jupiter.APIKey, "JUPITER_API_KEY")
	set(&cfg.Jupiter.FeeAccount, "FEE_ACCOUNT")
	set(&cfg.RPC.Primary, "RPC_URL")
	set(&cfg.RPC.Fallback, "RPC_FALLBACK_URL")
	set(&cfg.Admin.JWTSecret, "ADMIN_JWT_SECRET")
	set(&cfg.History.DSN, "HISTORY_DSN")
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7074"
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendSQLite
	}
	if cfg.Storage.Path == "" && cfg.Storage.Backend != BackendMemory {
		cfg.Storage.Path = "/var/data/swapd.sqlite"
	}
	if cfg.History.Driver == "" {
		cfg.History.Driver = "sqlite"
	}
	if cfg.History.DSN == "" {
		cfg.History.DSN = "file:/var/data/swapd-history.sqlite?_pragma=busy_timeout(5000)"
	}
	if cfg.History.Capacity <= 0 {
		cfg.History.Capacity = 50
	}
	if cfg.Jupiter.Timeout.Duration == 0 {
		cfg.Jupiter.Timeout.Duration = 15 * time.Second
	}
	if cfg.RPC.Timeout.Duration == 0 {
		cfg.RPC.Timeout.Duration = 15 * time.Second
	}
	if cfg.RPC.BalanceTTL.Duration == 0 {
		cfg.RPC.BalanceTTL.Duration = 30 * time.Second
	}
	cfg.Signer.Mode = strings.ToLower(strings.TrimSpace(cfg.Signer.Mode))
	if cfg.Signer.Mode == "" {
		cfg.Signer.Mode = SignerDisabled
	}
	if cfg.Audit.Capacity <= 0 {
		cfg.Audit.Capacity = audit.DefaultCapacity
	}
	def := audit.DefaultThresholds()
	if cfg.Audit.Thresholds.LowBalance <= 0 {
		cfg.Audit.Thresholds.LowBalance = def.LowBalance
	}
	if cfg.Audit.Thresholds.RepeatCount <= 0 {
		cfg.Audit.Thresholds.RepeatCount = def.RepeatCount
	}
	if cfg.RateLimit.RequestsPerMinute > 0 && cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (a *AdminConfig) normalise(allowInsecure bool) error {
	a.JWTSecret = strings.TrimSpace(a.JWTSecret)
	a.TLS.CertPath = strings.TrimSpace(a.TLS.CertPath)
	a.TLS.KeyPath = strings.TrimSpace(a.TLS.KeyPath)
	origins := a.StreamOrigins[:0]
	for _, origin := range a.StreamOrigins {
		if origin = strings.TrimSpace(origin); origin == "" {
			continue
		}
		if _, err := path.Match(origin, ""); err != nil {
			return fmt.Errorf("admin stream_origins: invalid pattern %q: %w", origin, err)
		}
		origins = append(origins, origin)
	}
	a.StreamOrigins = origins
	if a.JWTSecret == "" {
		return errors.New("admin jwt_secret must be configured")
	}
	if len(a.JWTSecret) < 32 {
		return errors.New("admin jwt_secret must be at least 32 bytes")
	}
	if a.TLS.Disable {
		if !allowInsecure {
			return errors.New("admin jwt_secret requires TLS to be enabled")
		}
		return nil
	}
	if a.TLS.CertPath == "" || a.TLS.KeyPath == "" {
		return errors.New("admin tls cert and key must be configured")
	}
	return nil
}

func validate(cfg Config) error {
	switch cfg.Storage.Backend {
	case BackendSQLite, BackendLevelDB, BackendBolt, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	switch strings.ToLower(cfg.History.Driver) {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("unknown history driver %q", cfg.History.Driver)
	}
	switch cfg.Signer.Mode {
	case SignerMock, SignerDisabled:
	default:
		return fmt.Errorf("unknown signer mode %q", cfg.Signer.Mode)
	}
	if cfg.Audit.Capacity > 10_000 {
		return fmt.Errorf("audit capacity %d too large", cfg.Audit.Capacity)
	}
	if cfg.Jupiter.RequestsPerSecond < 0 {
		return fmt.Errorf("jupiter requests_per_second must not be negative")
	}
	return nil
}
