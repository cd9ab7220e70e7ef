package kv

// Store is the durable local key-value port backing guest carts and
// wishlists. Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) ([]byte, bool, error)
	// Set durably records the value under key.
	Set(key string, value []byte) error
	// Delete removes the key; deleting a missing key is not an error.
	Delete(key string) error
	Close() error
}
