package server

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/meridiankv/meridian-go/core/common"
)

var storeLogger = logger.GetLogger("store")

// sweepInterval is how often the background sweeper collects expired
// documents that were never read again.
const sweepInterval = time.Second

// entry is one stored document.
type entry struct {
	value     []byte
	cas       uint64
	expiresAt int64 // unix nanoseconds, zero means no expiry
}

// Store is the in-memory document store of the development server. Documents
// are addressed by their qualified key (bucket/scope/collection/key). Every
// mutation assigns a new compare-and-swap token from a global counter.
// Expired documents are dropped lazily on access and eagerly by a background
// sweeper fed from an expiry index.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]*entry
	expiry  *expiryIndex
	casSeq  atomic.Uint64
	stopCh  chan struct{}
	stopped atomic.Bool
}

// NewStore creates an empty store and starts the expiry sweeper.
func NewStore() *Store {
	s := &Store{
		docs:   make(map[string]*entry),
		expiry: newExpiryIndex(),
		stopCh: make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Close stops the expiry sweeper.
func (s *Store) Close() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
}

// ----------------------------------------------------------------------------
// Document operations
// ----------------------------------------------------------------------------

// Get returns the document value and its cas token.
func (s *Store) Get(key string) ([]byte, uint64, common.Status) {
	s.mu.RLock()
	e, ok := s.docs[key]
	var value []byte
	var cas uint64
	var expiresAt int64
	if ok {
		value, cas, expiresAt = e.value, e.cas, e.expiresAt
	}
	s.mu.RUnlock()

	if !ok || s.expireIfDue(key, expiresAt) {
		return nil, 0, common.StatusNotFound
	}
	return value, cas, common.StatusOK
}

// Upsert stores the document regardless of whether it exists.
func (s *Store) Upsert(key string, value []byte, expireIn uint64) (uint64, common.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(key, value, expireIn), common.StatusOK
}

// Insert stores the document only if it does not exist yet.
func (s *Store) Insert(key string, value []byte, expireIn uint64) (uint64, common.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.docs[key]; ok && !expired(e) {
		return 0, common.StatusExists
	}
	return s.put(key, value, expireIn), common.StatusOK
}

// Replace overwrites an existing document. A non-zero cas must match the
// stored token.
func (s *Store) Replace(key string, value []byte, expireIn, cas uint64) (uint64, common.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.docs[key]
	if !ok || expired(e) {
		return 0, common.StatusNotFound
	}
	if cas != 0 && cas != e.cas {
		return 0, common.StatusCasMismatch
	}
	return s.put(key, value, expireIn), common.StatusOK
}

// Remove deletes an existing document. A non-zero cas must match the stored
// token.
func (s *Store) Remove(key string, cas uint64) common.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.docs[key]
	if !ok || expired(e) {
		return common.StatusNotFound
	}
	if cas != 0 && cas != e.cas {
		return common.StatusCasMismatch
	}

	delete(s.docs, key)
	s.expiry.Remove(key)
	return common.StatusOK
}

// Exists reports whether the document exists, with its cas token if it does.
func (s *Store) Exists(key string) (bool, uint64) {
	s.mu.RLock()
	e, ok := s.docs[key]
	var cas uint64
	var expiresAt int64
	if ok {
		cas, expiresAt = e.cas, e.expiresAt
	}
	s.mu.RUnlock()

	if !ok || s.expireIfDue(key, expiresAt) {
		return false, 0
	}
	return true, cas
}

// Touch updates the expiry of an existing document without changing its
// value or cas token. expireIn of zero removes the expiry.
func (s *Store) Touch(key string, expireIn uint64) common.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.docs[key]
	if !ok || expired(e) {
		return common.StatusNotFound
	}

	if expireIn == 0 {
		e.expiresAt = 0
		s.expiry.Remove(key)
	} else {
		e.expiresAt = time.Now().Add(time.Duration(expireIn) * time.Second).UnixNano()
		s.expiry.Add(key, e.expiresAt)
	}
	return common.StatusOK
}

// Scan returns the values of all live documents whose qualified key starts
// with the given prefix.
func (s *Store) Scan(prefix string) [][]byte {
	now := time.Now().UnixNano()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows [][]byte
	for key, e := range s.docs {
		if e.expiresAt != 0 && e.expiresAt <= now {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			rows = append(rows, e.value)
		}
	}
	return rows
}

// Len returns the number of stored documents, including not yet collected
// expired ones.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

// put stores the document and returns the new cas token. Caller holds the
// write lock.
func (s *Store) put(key string, value []byte, expireIn uint64) uint64 {
	cas := s.casSeq.Add(1)

	// Copy the value, the caller's buffer may be reused
	stored := make([]byte, len(value))
	copy(stored, value)

	e := &entry{value: stored, cas: cas}
	if expireIn > 0 {
		e.expiresAt = time.Now().Add(time.Duration(expireIn) * time.Second).UnixNano()
		s.expiry.Add(key, e.expiresAt)
	} else {
		s.expiry.Remove(key)
	}

	s.docs[key] = e
	return cas
}

// expired reports whether the entry's expiry time has passed.
func expired(e *entry) bool {
	return e.expiresAt != 0 && e.expiresAt <= time.Now().UnixNano()
}

// expireIfDue drops the entry if the given expiry time has passed and
// reports whether it did.
func (s *Store) expireIfDue(key string, expiresAt int64) bool {
	if expiresAt == 0 || expiresAt > time.Now().UnixNano() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check under the write lock, the document may have been replaced
	if cur, ok := s.docs[key]; ok && expired(cur) {
		delete(s.docs, key)
		s.expiry.Remove(key)
	}
	return true
}

// sweep periodically collects documents whose expiry has passed.
func (s *Store) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}

		now := time.Now().UnixNano()

		s.mu.Lock()
		expiredKeys := s.expiry.PopExpired(now)
		for _, key := range expiredKeys {
			delete(s.docs, key)
		}
		s.mu.Unlock()

		if len(expiredKeys) > 0 {
			storeLogger.Debugf("Collected %d expired documents", len(expiredKeys))
		}
	}
}
