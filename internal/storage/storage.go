package storage

import (
	"errors"
	"time"
)

type ExpiryStatus int

const (
	// ExpNotFound means that the key does not exist
	ExpNotFound ExpiryStatus = -2
	// ExpNoTimeout means that the key exists, but it does not have a TTL
	ExpNoTimeout ExpiryStatus = -1
	// ExpActive means that the key has an active lifetime
	ExpActive ExpiryStatus = 1
)

// Storage is the key -> Record store with per-key expiration.
// A key whose expiration instant has passed is treated as absent and evicted on access.
// Every method is a single critical section
type Storage interface {
	// Get returns a copy of the Record and true if the key is present
	Get(key string) (Record, bool)

	// Set stores the Record under key, replacing any previous one. The expiration is left untouched
	Set(key string, record Record)

	// SetPersist stores the Record under key and drops any expiration of the key
	SetPersist(key string, record Record)

	// Delete removes the key and its expiration. Returns true if the key was present
	Delete(key string) bool

	// Clear removes every key and every expiration
	Clear()

	// SetExpiration records the instant at which key expires, only if the key is present.
	// Returns true if the expiration was recorded
	SetExpiration(key string, at time.Time) bool

	// HSet merges field/value pairs into the hash at key. When the key is absent or holds
	// a non-hash Record, a fresh hash built from pairs replaces it
	HSet(key string, pairs []string)

	// Expiry returns the remaining lifetime and status as ExpiryStatus
	Expiry(key string) (time.Duration, ExpiryStatus)

	// Persist removes the expiration of the key. Returns true if there was one
	Persist(key string) bool

	// Len returns the number of stored keys, including expired keys not evicted yet
	Len() int

	// DeleteExpired samples up to limit keys with an expiration and evicts the expired ones.
	// Returns the number of evicted keys and their ratio among the sampled ones
	DeleteExpired(limit int) (int, float64)
}

// Config selects the Storage implementation
type Config struct {
	Shards uint
}

var (
	ErrShardsNotPowerOfTwo = errors.New("requested shards must be a power of 2")
	ErrTooManyShards       = errors.New("requested shards must be less or equal than 64")
)

// New creates the Storage described by cfg. One shard means a single MapStorage
func New(cfg Config) (Storage, error) {
	if cfg.Shards <= 1 {
		return NewMapStorage(), nil
	}
	return NewShardedMapStorage(cfg.Shards)
}
