package cache

import (
	"context"
	"errors"
)

// ErrNotFound reports a key with no value in the store
var ErrNotFound = errors.New("key not found")

// Store persists serialized table state. Hand state lives under
// HandKey(tableID) for the life of the table and is deleted
// explicitly on cleanup; entries never expire on their own.
type Store interface {
	// Save writes value under key, overwriting any previous value
	Save(ctx context.Context, key string, value []byte) error

	// Load returns the value under key, or ErrNotFound
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Exists reports whether key holds a value
	Exists(ctx context.Context, key string) (bool, error)

	// ListKeys returns every key with the given prefix
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// HandKey is the cache key holding a table's serialized hand state
func HandKey(tableID string) string {
	return "hand:" + tableID
}
