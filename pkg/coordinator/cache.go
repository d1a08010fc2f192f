package coordinator

import (
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/pangea-net/smpc-core/pkg/protocol"
	"github.com/zeebo/blake3"
)

// ResultKey hashes a computation's identity (operation, session key, and
// its sorted assigned-node set) into a fast, non-cryptographic cache key.
// This is deliberately not one of pkg/field's Poseidon/Keccak digests —
// those exist for data that crosses a trust boundary (commitments, proof
// bindings); this key only dedups identical verified-result lookups inside
// a single coordinator process, where blake3's raw throughput matters far
// more than any cryptographic property.
func ResultKey(op protocol.Operation, sessionKey string, nodeIDs []string) string {
	sorted := append([]string(nil), nodeIDs...)
	sort.Strings(sorted)

	h := blake3.New()
	fmt.Fprintf(h, "%s|%s|", op, sessionKey)
	for _, id := range sorted {
		fmt.Fprintf(h, "%s,", id)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ResultCache is a bounded, in-memory verified-result dedup cache keyed by
// ResultKey, letting a coordinator short-circuit a re-submitted computation
// request (same operation, same session, same node set) that has already
// completed and verified rather than redriving the whole state machine.
type ResultCache struct {
	mu    sync.RWMutex
	cap   int
	order []string
	items map[string]protocol.Result
}

// NewResultCache builds a cache holding up to capacity entries, evicting the
// oldest on overflow.
func NewResultCache(capacity int) *ResultCache {
	return &ResultCache{cap: capacity, items: make(map[string]protocol.Result)}
}

// Get returns the cached result for key, if present.
func (c *ResultCache) Get(key string) (protocol.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.items[key]
	return r, ok
}

// Put records result under key, evicting the oldest entry if at capacity.
func (c *ResultCache) Put(key string, result protocol.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; !exists {
		if c.cap > 0 && len(c.order) >= c.cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
		c.order = append(c.order, key)
	}
	c.items[key] = result
}
