package storage

import "context"

// Store is the key-value slot backing one visitor's attribution state.
// Implementations must be safe for concurrent use; writers are last-write-wins
// and readers must hit the backing store on every call rather than caching.
type Store interface {
	// Get returns the value for key, or ("", false) when absent.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
