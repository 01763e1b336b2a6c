package ports

import "context"

// ObjectStoreItem describes one key returned by List, without fetching its
// body.
type ObjectStoreItem struct {
	Key          string
	Size         int64
	LastModified int64 // unix millis
}

// ObjectStore is the S3-compatible object storage surface the engine and
// restore planner depend on. Keys are always fully qualified — callers, not
// implementations, own prefixing.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// List returns every item whose key starts with prefix, ordered
	// lexicographically by key.
	List(ctx context.Context, prefix string) ([]ObjectStoreItem, error)
}
