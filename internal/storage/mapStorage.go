package storage

import (
	"sync"
	"time"
)

// MapStorage keeps records and their expiration instants in two maps under one lock.
// A key in expires is always present in data
type MapStorage struct {
	mu      sync.RWMutex
	data    map[string]Record
	expires map[string]int64 // unix nanoseconds
}

// NewMapStorage returns an empty single-lock store
func NewMapStorage() *MapStorage {
	return &MapStorage{
		data:    make(map[string]Record),
		expires: make(map[string]int64),
	}
}

// expired reports whether key has an expiration strictly in the past. Callers hold the lock
func (m *MapStorage) expired(key string, now int64) bool {
	exp, hasExp := m.expires[key]
	return hasExp && now > exp
}

// evictIfExpired drops key when its expiration has passed. Callers hold the write lock
func (m *MapStorage) evictIfExpired(key string) bool {
	if m.expired(key, time.Now().UnixNano()) {
		delete(m.data, key)
		delete(m.expires, key)
		return true
	}
	return false
}

// Get returns a copy of the record and true if the key is found
func (m *MapStorage) Get(key string) (Record, bool) {
	m.mu.RLock()
	rec, ok := m.data[key]
	expired := ok && m.expired(key, time.Now().UnixNano())
	if ok && !expired {
		rec = rec.Clone()
	}
	m.mu.RUnlock()

	if !ok {
		return Record{}, false
	}

	if expired {
		m.mu.Lock()
		defer m.mu.Unlock()

		// checking again, can be changed while waiting for the lock
		if m.evictIfExpired(key) {
			return Record{}, false
		}

		if rec, ok = m.data[key]; ok {
			return rec.Clone(), true
		}
		return Record{}, false
	}

	return rec, true
}

// Set writes the record. The expiration of the key, if any, is kept
func (m *MapStorage) Set(key string, record Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// an expired key must not hand its stale TTL over to the new record
	m.evictIfExpired(key)
	m.data[key] = record.Clone()
}

// SetPersist writes the record and removes any expiration of the key
func (m *MapStorage) SetPersist(key string, record Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = record.Clone()
	delete(m.expires, key)
}

// Delete deletes the key. Returns true if the key existed and was deleted
func (m *MapStorage) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.evictIfExpired(key) {
		return false
	}

	if _, ok := m.data[key]; ok {
		delete(m.data, key)
		delete(m.expires, key)
		return true
	}
	return false
}

// Clear drops all keys and expirations
func (m *MapStorage) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]Record)
	m.expires = make(map[string]int64)
}

// SetExpiration sets the expiration instant of an existing key
func (m *MapStorage) SetExpiration(key string, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.evictIfExpired(key) {
		return false
	}

	if _, ok := m.data[key]; !ok {
		return false
	}

	m.expires[key] = at.UnixNano()
	return true
}

// HSet upserts fields of the hash at key, replacing a missing or non-hash record with a new hash
func (m *MapStorage) HSet(key string, pairs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictIfExpired(key)

	rec, ok := m.data[key]
	if !ok || rec.Kind != KindHash {
		m.data[key] = NewHash(pairs)
		return
	}
	if rec.Hash == nil {
		rec.Hash = make(map[string]string, len(pairs)/2)
		m.data[key] = rec
	}

	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Hash[pairs[i]] = pairs[i+1]
	}
}

// Expiry reports the remaining lifetime of key. An expired key is evicted and reported missing
func (m *MapStorage) Expiry(key string) (time.Duration, ExpiryStatus) {
	m.mu.RLock()
	_, ok := m.data[key]
	exp, hasExp := m.expires[key]
	now := time.Now().UnixNano()
	m.mu.RUnlock()

	switch {
	case !ok:
		return 0, ExpNotFound
	case !hasExp:
		return 0, ExpNoTimeout
	case now <= exp:
		return time.Duration(exp - now), ExpActive
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// the key may have been rewritten while the lock was released
	if m.evictIfExpired(key) {
		return 0, ExpNotFound
	}
	if _, ok = m.data[key]; !ok {
		return 0, ExpNotFound
	}
	if exp, hasExp = m.expires[key]; !hasExp {
		return 0, ExpNoTimeout
	}

	return time.Duration(exp - time.Now().UnixNano()), ExpActive
}

// Persist removes the expiration date of the key, making it eternal.
// Returns true if the key was present and had a TTL
func (m *MapStorage) Persist(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.evictIfExpired(key) {
		return false
	}

	if _, hasExp := m.expires[key]; !hasExp {
		return false
	}

	delete(m.expires, key)
	return true
}

// Len returns the number of keys held, expired or not
func (m *MapStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// DeleteExpired checks up to limit keys with a TTL and deletes the expired ones
func (m *MapStorage) DeleteExpired(limit int) (int, float64) {
	expired, checked := m.sweep(limit)
	if checked == 0 {
		return 0, 0.0
	}
	return expired, float64(expired) / float64(checked)
}

// sweep is DeleteExpired reporting how many keys were inspected instead of the ratio
func (m *MapStorage) sweep(limit int) (expired, checked int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 {
		return 0, 0
	}

	now := time.Now().UnixNano()

	// map iteration order is random, so this samples
	for key, expTime := range m.expires {
		checked++
		if now > expTime {
			delete(m.data, key)
			delete(m.expires, key)
			expired++
		}

		if checked >= limit {
			break
		}
	}

	return expired, checked
}
