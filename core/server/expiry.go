package server

import "container/heap"

// expiryItem tracks when one document expires.
type expiryItem struct {
	key   string // qualified document key
	at    int64  // expiry time in unix nanoseconds
	index int    // index in the heap, maintained by the heap package
}

// expiryIndex combines a min-heap ordered by expiry time with a map for
// key-based access. Peek/Pop find the next document to expire in O(log n),
// while Remove and re-Add (for Touch) stay cheap. Not thread-safe, the
// store's lock guards it.
type expiryIndex struct {
	items    []*expiryItem
	itemsMap map[string]*expiryItem
}

func newExpiryIndex() *expiryIndex {
	return &expiryIndex{
		items:    make([]*expiryItem, 0),
		itemsMap: make(map[string]*expiryItem),
	}
}

// --------------------------------------------------------------------------
// heap.Interface
// --------------------------------------------------------------------------

func (e *expiryIndex) Len() int { return len(e.items) }

func (e *expiryIndex) Less(i, j int) bool {
	return e.items[i].at < e.items[j].at
}

func (e *expiryIndex) Swap(i, j int) {
	e.items[i], e.items[j] = e.items[j], e.items[i]
	e.items[i].index = i
	e.items[j].index = j
}

func (e *expiryIndex) Push(x interface{}) {
	n := len(e.items)
	item := x.(*expiryItem)
	item.index = n
	e.items = append(e.items, item)
	e.itemsMap[item.key] = item
}

func (e *expiryIndex) Pop() interface{} {
	old := e.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil  // Avoid memory leak
	item.index = -1 // For safety
	e.items = old[:n-1]
	delete(e.itemsMap, item.key)
	return item
}

// --------------------------------------------------------------------------
// Index operations
// --------------------------------------------------------------------------

// Add schedules (or reschedules) the expiry of a key.
func (e *expiryIndex) Add(key string, at int64) {
	if item, exists := e.itemsMap[key]; exists {
		item.at = at
		heap.Fix(e, item.index)
		return
	}
	heap.Push(e, &expiryItem{key: key, at: at})
}

// Remove unschedules a key, e.g. when the document is deleted or loses its
// expiry.
func (e *expiryIndex) Remove(key string) {
	if item, exists := e.itemsMap[key]; exists {
		heap.Remove(e, item.index)
	}
}

// Peek returns the key that expires next.
func (e *expiryIndex) Peek() (string, int64, bool) {
	if len(e.items) == 0 {
		return "", 0, false
	}
	return e.items[0].key, e.items[0].at, true
}

// PopExpired removes and returns all keys whose expiry time has passed.
func (e *expiryIndex) PopExpired(now int64) []string {
	var expired []string
	for len(e.items) > 0 && e.items[0].at <= now {
		item := heap.Pop(e).(*expiryItem)
		expired = append(expired, item.key)
	}
	return expired
}
