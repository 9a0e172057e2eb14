package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	kv "smartswap/storage"
)

// filePragmas enable WAL and a 5s busy timeout on every on-disk store.
const filePragmas = "mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// FileDSN converts a filesystem path into an on-disk SQLite DSN.
func FileDSN(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}
	return fmt.Sprintf("file:%s?%s", abs, filePragmas), nil
}

// OpenBackend opens the named key/value backend: "sqlite" (the default),
// "leveldb", "bolt" or "memory".
func OpenBackend(backend, path string) (kv.Database, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", "sqlite":
		dsn, err := FileDSN(path)
		if err != nil {
			return nil, err
		}
		return Open(dsn)
	case "leveldb":
		if strings.TrimSpace(path) == "" {
			return nil, ErrPathRequired
		}
		return kv.NewLevelDB(path)
	case "bolt":
		if strings.TrimSpace(path) == "" {
			return nil, ErrPathRequired
		}
		return kv.NewBoltDB(path)
	case "memory":
		return kv.NewMemDB(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
