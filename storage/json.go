package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

// GetJSON decodes the value stored under key into dst. It reports false when
// the key is absent or the stored bytes do not decode; corrupt records are
// treated the same as missing ones so callers start from empty state.
func GetJSON(db Database, key string, dst any) (bool, error) {
	if db == nil {
		return false, fmt.Errorf("storage: nil database")
	}
	raw, err := db.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, nil
	}
	return true, nil
}

// PutJSON encodes value and stores it under key.
func PutJSON(db Database, key string, value any) error {
	if db == nil {
		return fmt.Errorf("storage: nil database")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	return db.Put(key, raw)
}

// PrependBounded returns a new slice with item at the front followed by list,
// truncated to limit entries. A non-positive limit disables truncation.
func PrependBounded[T any](list []T, item T, limit int) []T {
	size := len(list) + 1
	if limit > 0 && size > limit {
		size = limit
	}
	out := make([]T, 0, size)
	out = append(out, item)
	for _, existing := range list {
		if len(out) == size {
			break
		}
		out = append(out, existing)
	}
	return out
}
