package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// DefaultCacheTTL matches how long a validation verdict stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// Cache stores validation results keyed by operation and input hash.
// Entries expire after the configured TTL so stale verdicts cannot
// outlive the state they were computed from.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
}

// cachedResult is the stored shape. The Failure field of a Result is
// never cached; only clean verdicts are.
type cachedResult struct {
	Operation  string   `json:"operation"`
	Violations []string `json:"violations"`
}

// NewCache opens a persistent cache at the given directory.
func NewCache(dir string, ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open validation cache: %w", err)
	}
	return newCache(db, ttl), nil
}

// NewInMemoryCache opens a cache that lives only in process memory.
func NewInMemoryCache(ttl time.Duration) (*Cache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open validation cache: %w", err)
	}
	return newCache(db, ttl), nil
}

func newCache(db *badger.DB, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{db: db, ttl: ttl}
}

// Get returns the cached result for the operation and inputs, if any.
func (c *Cache) Get(operation string, data, opCtx map[string]any) (Result, bool) {
	key := cacheKey(operation, data, opCtx)

	var stored cachedResult
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err != nil {
		return Result{}, false
	}

	return Result{
		Operation:  stored.Operation,
		Violations: stored.Violations,
	}, true
}

// Put stores a result. Results carrying an internal failure are skipped;
// a broken rule should be retried, not remembered.
func (c *Cache) Put(operation string, data, opCtx map[string]any, result Result) {
	if result.Failure != nil {
		return
	}

	value, err := json.Marshal(cachedResult{
		Operation:  result.Operation,
		Violations: result.Violations,
	})
	if err != nil {
		return
	}

	key := cacheKey(operation, data, opCtx)
	// Best effort: a failed cache write only costs a recomputation.
	_ = c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, value).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

// Clear drops every cached result.
func (c *Cache) Clear() error {
	return c.db.DropAll()
}

// Close releases the underlying store.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil && !errors.Is(err, badger.ErrDBClosed) {
		return err
	}
	return nil
}

// cacheKey derives a stable key from the operation and its inputs.
// JSON map encoding sorts keys, so equal inputs hash equally.
func cacheKey(operation string, data, opCtx map[string]any) []byte {
	h := sha256.New()
	h.Write([]byte(operation))
	if encoded, err := json.Marshal(data); err == nil {
		h.Write(encoded)
	}
	if encoded, err := json.Marshal(opCtx); err == nil {
		h.Write(encoded)
	}
	return []byte("validation:" + operation + ":" + hex.EncodeToString(h.Sum(nil)))
}
