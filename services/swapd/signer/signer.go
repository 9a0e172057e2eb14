package signer

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/btcsuite/btcutil/base58"
	"lukechampine.com/blake3"

	"smartswap/observability/logging"
)

var (
	// ErrRejected means the wallet declined to sign. Nothing was submitted.
	ErrRejected = errors.New("signer: request rejected")
	// ErrUncertain means the transaction may have been submitted but no
	// confirmation was obtained.
	ErrUncertain = errors.New("signer: outcome uncertain")
	// ErrEmptyTransaction is returned for a zero-length payload.
	ErrEmptyTransaction = errors.New("signer: empty transaction")
)

// Signer authorizes, signs and submits a serialized transaction on behalf of
// wallet, returning the confirmed signature.
type Signer interface {
	SignAndSend(ctx context.Context, wallet string, tx []byte) (string, error)
}

// Func adapts a function to Signer.
type Func func(ctx context.Context, wallet string, tx []byte) (string, error)

// SignAndSend calls f.
func (f Func) SignAndSend(ctx context.Context, wallet string, tx []byte) (string, error) {
	return f(ctx, wallet, tx)
}

// Mock is a development signer. It never touches a network and returns a
// deterministic, correctly shaped signature derived from the payload.
type Mock struct {
	Logger *slog.Logger
	// Fail, when set, is returned instead of a signature.
	Fail error

	mu    sync.Mutex
	count uint64
}

var _ Signer = (*Mock)(nil)

// SignAndSend implements Signer.
func (m *Mock) SignAndSend(ctx context.Context, wallet string, tx []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(tx) == 0 {
		return "", ErrEmptyTransaction
	}
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if m.Fail != nil {
		logger.Warn("mock signer failing", logging.Wallet(wallet), slog.Any("error", m.Fail))
		return "", m.Fail
	}
	m.mu.Lock()
	m.count++
	seq := m.count
	m.mu.Unlock()

	sig := MockSignature(strings.TrimSpace(wallet), tx, seq)
	logger.Warn("mock signer used, transaction not submitted", logging.Wallet(wallet))
	return sig, nil
}

// Calls reports how many signatures the mock has produced.
func (m *Mock) Calls() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// MockSignature derives an 88 character base58 string from its inputs.
func MockSignature(wallet string, tx []byte, seq uint64) string {
	var counter [8]byte
	for salt := uint64(0); ; salt++ {
		h := blake3.New(64, nil)
		h.Write([]byte(wallet))
		h.Write(tx)
		binary.BigEndian.PutUint64(counter[:], seq)
		h.Write(counter[:])
		binary.BigEndian.PutUint64(counter[:], salt)
		h.Write(counter[:])
		if sig := base58.Encode(h.Sum(nil)); len(sig) == 88 {
			return sig
		}
	}
}
