package dealclient

import (
	"dealwire/pkg/protocol"
	"encoding/json"
	"sync"
)

// ListKey names the shape of a cached list query, e.g. "deals?status=pending".
type ListKey string

// Cache holds deals exactly as the server serialized them. After any
// update the entity for a deal and every list row with its id hold the
// same bytes.
type Cache struct {
	mu       sync.RWMutex
	entities map[int64]json.RawMessage
	lists    map[ListKey][]json.RawMessage
	stale    map[int64]struct{}
}

func NewCache() *Cache {
	return &Cache{
		entities: make(map[int64]json.RawMessage),
		lists:    make(map[ListKey][]json.RawMessage),
		stale:    make(map[int64]struct{}),
	}
}

// SetEntity replaces the single-entity entry unconditionally.
func (c *Cache) SetEntity(id int64, raw json.RawMessage) {
	c.mu.Lock()
	c.entities[id] = clone(raw)
	c.mu.Unlock()
}

func (c *Cache) Entity(id int64) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	raw, ok := c.entities[id]
	return clone(raw), ok
}

// SetList stores the rows of a list query, as fetched.
func (c *Cache) SetList(key ListKey, rows []json.RawMessage) {
	cp := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		cp[i] = clone(r)
	}
	c.mu.Lock()
	c.lists[key] = cp
	c.mu.Unlock()
}

func (c *Cache) List(key ListKey) ([]json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rows, ok := c.lists[key]
	if !ok {
		return nil, false
	}
	cp := make([]json.RawMessage, len(rows))
	for i, r := range rows {
		cp[i] = clone(r)
	}
	return cp, true
}

// ReplaceInLists swaps every row whose id is id for raw, in place. Lists
// that do not contain the deal are left alone; nothing is inserted. It
// returns the number of rows replaced.
func (c *Cache) ReplaceInLists(id int64, raw json.RawMessage) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replaceInListsLocked(id, raw)
}

func (c *Cache) replaceInListsLocked(id int64, raw json.RawMessage) int {
	n := 0
	for _, rows := range c.lists {
		for i, row := range rows {
			ref, err := protocol.ParseDealRef(row)
			if err != nil || ref.ID != id {
				continue
			}
			rows[i] = clone(raw)
			n++
		}
	}
	return n
}

func (c *Cache) MarkStale(id int64) {
	c.mu.Lock()
	c.stale[id] = struct{}{}
	c.mu.Unlock()
}

func (c *Cache) IsStale(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.stale[id]
	return ok
}

// Revalidate applies a refetched deal unless the cache already holds a
// newer version. When either side has no version the refetch wins, since
// it arrived last. It reports whether raw was applied.
func (c *Cache) Revalidate(id int64, raw json.RawMessage) bool {
	incoming, err := protocol.ParseDealRef(raw)
	if err != nil || incoming.ID != id {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entities[id]; ok {
		if ref, err := protocol.ParseDealRef(cur); err == nil &&
			ref.Version != 0 && incoming.Version != 0 && incoming.Version < ref.Version {
			return false
		}
	}
	c.entities[id] = clone(raw)
	c.replaceInListsLocked(id, raw)
	delete(c.stale, id)
	return true
}

func clone(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}
