package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"smartswap/observability"
	"smartswap/observability/logging"
	"smartswap/storage"
)

const (
	// DefaultKey is the store key holding the serialised log.
	DefaultKey = "swap_audit"
	// DefaultCapacity bounds the number of retained entries.
	DefaultCapacity = 200
)

// ErrNilStore is returned by New when no backing store is supplied.
var ErrNilStore = errors.New("audit: store required")

// Options tune a Log. Zero values select the defaults.
type Options struct {
	Key      string
	Capacity int
	Now      func() time.Time
	Logger   *slog.Logger
	Metrics  *observability.SwapdMetrics
}

// Log is the capacity-bounded swap audit ledger. Appends are serialised so
// concurrent swaps cannot lose each other's read-modify-write cycle.
type Log struct {
	db       storage.Database
	key      string
	capacity int
	now      func() time.Time
	logger   *slog.Logger
	metrics  *observability.SwapdMetrics

	mu sync.Mutex

	subsMu  sync.RWMutex
	subs    map[int]chan Entry
	nextSub int
}

// New constructs a Log over db.
func New(db storage.Database, opts Options) (*Log, error) {
	if db == nil {
		return nil, ErrNilStore
	}
	l := &Log{
		db:       db,
		key:      strings.TrimSpace(opts.Key),
		capacity: opts.Capacity,
		now:      opts.Now,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		subs:     make(map[int]chan Entry),
	}
	if l.key == "" {
		l.key = DefaultKey
	}
	if l.capacity <= 0 {
		l.capacity = DefaultCapacity
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l, nil
}

// Capacity reports the maximum number of retained entries.
func (l *Log) Capacity() int {
	return l.capacity
}

// Append records one swap attempt. The returned entry is valid even when the
// error is non-nil: persistence failures are reported for observability but
// must not fail the swap that produced the record.
func (l *Log) Append(ctx context.Context, attempt Attempt) (Entry, error) {
	now := l.now()
	entry := Entry{
		ID:        newEntryID(now),
		Timestamp: now.UnixMilli(),
		Attempt:   attempt.normalised(),
	}
	if err := ctx.Err(); err != nil {
		l.logger.Warn("audit append skipped", slog.String("id", entry.ID), slog.Any("error", err))
		l.metrics.RecordAuditAppend(err, 0)
		return entry, err
	}

	l.mu.Lock()
	existing, err := l.load()
	if err != nil {
		l.mu.Unlock()
		l.metrics.RecordAuditAppend(err, 0)
		l.logger.Error("audit append aborted, stored log unreadable",
			slog.String("id", entry.ID),
			logging.Wallet(entry.Wallet),
			slog.Any("error", err))
		return entry, fmt.Errorf("audit: load entries: %w", err)
	}
	updated := storage.PrependBounded(existing, entry, l.capacity)
	err = storage.PutJSON(l.db, l.key, updated)
	l.mu.Unlock()

	l.metrics.RecordAuditAppend(err, len(updated))
	if err != nil {
		l.logger.Error("audit append failed",
			slog.String("id", entry.ID),
			logging.Wallet(entry.Wallet),
			slog.Any("error", err))
		return entry, fmt.Errorf("audit: persist entry: %w", err)
	}
	l.logger.Debug("audit entry appended",
		slog.String("id", entry.ID),
		logging.Wallet(entry.Wallet),
		slog.Int("expected_fee_bps", entry.ExpectedFeeBps),
		slog.Int("actual_fee_bps", entry.ActualFeeBps))
	l.publish(entry)
	return entry, nil
}

// Entries returns the log newest-first. Missing or corrupt data reads as an
// empty log.
func (l *Log) Entries(ctx context.Context) []Entry {
	if ctx.Err() != nil {
		return []Entry{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneEntries(l.read())
}

// Clear replaces the stored log with an empty list.
func (l *Log) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := storage.PutJSON(l.db, l.key, []Entry{}); err != nil {
		l.logger.Error("audit clear failed", slog.Any("error", err))
		return fmt.Errorf("audit: clear: %w", err)
	}
	l.logger.Info("audit log cleared")
	return nil
}

// read loads the stored entries for display. A store failure reads as an
// empty log. Callers hold l.mu.
func (l *Log) read() []Entry {
	entries, err := l.load()
	if err != nil {
		l.logger.Warn("audit log unreadable, treating as empty", slog.Any("error", err))
		return []Entry{}
	}
	return entries
}

// load returns the stored entries. Missing or undecodable data is an empty
// log; a failing store is an error. Callers hold l.mu.
func (l *Log) load() ([]Entry, error) {
	var entries []Entry
	ok, err := storage.GetJSON(l.db, l.key, &entries)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []Entry{}, nil
	}
	return entries, nil
}

// newEntryID is the millisecond timestamp followed by a seven character
// random suffix.
func newEntryID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}
