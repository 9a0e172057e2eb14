package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces secrets in log output.
const RedactedValue = "[REDACTED]"

// plainKeys may be logged verbatim through MaskField. Everything else is
// treated as a secret; RPC URLs often embed provider API keys.
var plainKeys = map[string]struct{}{
	"campaign":      {},
	"fee_account":   {},
	"jupiter_url":   {},
	"signer_mode":   {},
	"store_backend": {},
	"history":       {},
}

func isPlain(key string) bool {
	_, ok := plainKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField logs value under key, redacted unless key is a known non-secret
// setting. Empty values stay empty so "not configured" remains visible.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || isPlain(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// ShortAddress abbreviates a wallet or mint address to its first and last four
// characters, e.g. "7xKX...gAsU".
func ShortAddress(address string) string {
	trimmed := strings.TrimSpace(address)
	if len(trimmed) <= 12 {
		return trimmed
	}
	return trimmed[:4] + "..." + trimmed[len(trimmed)-4:]
}

// Wallet is the attribute used for wallet addresses in every log line.
func Wallet(address string) slog.Attr {
	return slog.String("wallet", ShortAddress(address))
}
