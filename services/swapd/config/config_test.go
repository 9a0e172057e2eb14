package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func noEnv(string) (string, bool) { return "", false }

func TestAdminConfigNormaliseRequiresSecret(t *testing.T) {
	cfg := AdminConfig{TLS: AdminTLSConfig{CertPath: "cert.pem", KeyPath: "key.pem"}}
	err := cfg.normalise(false)
	if err == nil {
		t.Fatalf("expected error without jwt secret")
	}
	if got, want := err.Error(), "admin jwt_secret must be configured"; got != want {
		t.Fatalf("unexpected error: got %q, want %q", got, want)
	}
}

func TestAdminConfigNormaliseRejectsShortSecret(t *testing.T) {
	cfg := AdminConfig{JWTSecret: "short", TLS: AdminTLSConfig{CertPath: "cert.pem", KeyPath: "key.pem"}}
	if err := cfg.normalise(false); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestAdminConfigNormaliseRequiresTLS(t *testing.T) {
	cfg := AdminConfig{JWTSecret: secret, TLS: AdminTLSConfig{Disable: true}}
	err := cfg.normalise(false)
	if err == nil {
		t.Fatalf("expected error when TLS is disabled")
	}
	if got, want := err.Error(), "admin jwt_secret requires TLS to be enabled"; got != want {
		t.Fatalf("unexpected error: got %q, want %q", got, want)
	}
	if err := cfg.normalise(true); err != nil {
		t.Fatalf("expected insecure override to bypass TLS requirement, got %v", err)
	}
}

func TestAdminConfigNormaliseRequiresCertAndKey(t *testing.T) {
	cfg := AdminConfig{JWTSecret: secret, TLS: AdminTLSConfig{CertPath: "cert.pem"}}
	if err := cfg.normalise(false); err == nil {
		t.Fatalf("expected missing key to be rejected")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swapd.yaml")
	data := []byte(`
listen: ":9000"
storage:
  backend: memory
admin:
  jwt_secret: "` + secret + `"
  tls:
    disable: true
rpc:
  balance_ttl: 45s
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path, WithAllowInsecureAdmin(), WithEnv(noEnv))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9000" {
		t.Fatalf("unexpected listen address %q", cfg.ListenAddress)
	}
	if cfg.Storage.Path != "" {
		t.Fatalf("memory backend should not get a default path, got %q", cfg.Storage.Path)
	}
	if cfg.RPC.BalanceTTL.Duration != 45*time.Second {
		t.Fatalf("unexpected balance ttl %v", cfg.RPC.BalanceTTL.Duration)
	}
	if cfg.RPC.Timeout.Duration != 15*time.Second {
		t.Fatalf("unexpected rpc timeout %v", cfg.RPC.Timeout.Duration)
	}
	if cfg.Audit.Capacity != 200 || cfg.Audit.Thresholds.LowBalance != 100_000 || cfg.Audit.Thresholds.RepeatCount != 3 {
		t.Fatalf("unexpected audit defaults: %+v", cfg.Audit)
	}
	if cfg.History.Capacity != 50 || cfg.Signer.Mode != SignerDisabled {
		t.Fatalf("unexpected defaults: %+v %+v", cfg.History, cfg.Signer)
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swapd.yaml")
	if err := os.WriteFile(path, []byte("listen: \":1\"\nunknown: true\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path, WithAllowInsecureAdmin(), WithEnv(noEnv)); err == nil {
		t.Fatalf("expected unknown field to be rejected")
	}
}

func TestParseEnvironmentOverrides(t *testing.T) {
	env := map[string]string{
		"ADMIN_JWT_SECRET": secret,
		"JUPITER_API_KEY":  "key",
		"FEE_ACCOUNT":      "fee",
		"RPC_URL":          "https://rpc.example",
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	cfg, err := Parse([]byte("admin:\n  tls:\n    disable: true\naudit:\n  thresholds:\n    low_balance: 5000\n"), WithAllowInsecureAdmin(), WithEnv(lookup))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Admin.JWTSecret != secret || cfg.Jupiter.APIKey != "key" || cfg.Jupiter.FeeAccount != "fee" || cfg.RPC.Primary != "https://rpc.example" {
		t.Fatalf("environment overrides not applied: %+v", cfg)
	}
	if cfg.Audit.Thresholds.LowBalance != 5000 {
		t.Fatalf("unexpected threshold %v", cfg.Audit.Thresholds.LowBalance)
	}
}

func TestValidateRejectsUnknownModes(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"backend", "storage:\n  backend: redis\n"},
		{"history driver", "history:\n  driver: mysql\n"},
		{"signer", "signer:\n  mode: hsm\n"},
	}
	lookup := func(key string) (string, bool) {
		if key == "ADMIN_JWT_SECRET" {
			return secret, true
		}
		return "", false
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := "admin:\n  tls:\n    disable: true\n" + tc.yaml
			if _, err := Parse([]byte(data), WithAllowInsecureAdmin(), WithEnv(lookup)); err == nil {
				t.Fatalf("expected %s to be rejected", tc.name)
			}
		})
	}
}

func TestWithoutAdminSkipsSecretChecks(t *testing.T) {
	data := []byte("storage:\n  backend: memory\n")
	if _, err := Parse(data, WithEnv(noEnv)); err == nil {
		t.Fatalf("expected missing admin secret to be rejected")
	}
	cfg, err := Parse(data, WithoutAdmin(), WithEnv(noEnv))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Storage.Backend != BackendMemory || cfg.Storage.Path != "" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
}

func TestAdminConfigNormaliseStreamOrigins(t *testing.T) {
	cfg := AdminConfig{
		JWTSecret:     secret,
		TLS:           AdminTLSConfig{CertPath: "cert.pem", KeyPath: "key.pem"},
		StreamOrigins: []string{" ops.example.com ", "", "*.internal.example"},
	}
	if err := cfg.normalise(false); err != nil {
		t.Fatalf("normalise: %v", err)
	}
	want := []string{"ops.example.com", "*.internal.example"}
	if len(cfg.StreamOrigins) != len(want) {
		t.Fatalf("unexpected origins: %v", cfg.StreamOrigins)
	}
	for i := range want {
		if cfg.StreamOrigins[i] != want[i] {
			t.Fatalf("origin %d: got %q, want %q", i, cfg.StreamOrigins[i], want[i])
		}
	}

	cfg.StreamOrigins = []string{"[bad"}
	if err := cfg.normalise(false); err == nil {
		t.Fatalf("expected malformed origin pattern to be rejected")
	}
}
