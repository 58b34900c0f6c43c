package storage

import (
	"math/bits"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ShardedMapStorage is a thread-safe key-value storage,
// divided into segments (shards) to reduce contention for locking
type ShardedMapStorage struct {
	shards    []*MapStorage
	shardMask uint64
}

// NewShardedMapStorage creates a new instance of ShardedMapStorage.
// The requestedShards parameter must be a power of two for efficient allocation.
// The maximum allowed number of shards is 64.
func NewShardedMapStorage(requestedShards uint) (*ShardedMapStorage, error) {
	if bits.OnesCount(requestedShards) != 1 {
		return nil, ErrShardsNotPowerOfTwo
	}

	if requestedShards > 64 {
		return nil, ErrTooManyShards
	}

	s := &ShardedMapStorage{
		shards:    make([]*MapStorage, requestedShards),
		shardMask: uint64(requestedShards - 1),
	}

	for i := range s.shards {
		s.shards[i] = NewMapStorage()
	}

	return s, nil
}

// shard returns the shard owning key
func (s *ShardedMapStorage) shard(key string) *MapStorage {
	return s.shards[xxhash.Sum64String(key)&s.shardMask]
}

func (s *ShardedMapStorage) Get(key string) (Record, bool) {
	return s.shard(key).Get(key)
}

func (s *ShardedMapStorage) Set(key string, record Record) {
	s.shard(key).Set(key, record)
}

func (s *ShardedMapStorage) SetPersist(key string, record Record) {
	s.shard(key).SetPersist(key, record)
}

func (s *ShardedMapStorage) Delete(key string) bool {
	return s.shard(key).Delete(key)
}

// Clear empties every shard. All shard locks are held together, in index order,
// so no reader observes a partially cleared storage
func (s *ShardedMapStorage) Clear() {
	for _, shard := range s.shards {
		shard.mu.Lock()
	}

	for _, shard := range s.shards {
		shard.data = make(map[string]Record)
		shard.expires = make(map[string]int64)
	}

	for i := len(s.shards) - 1; i >= 0; i-- {
		s.shards[i].mu.Unlock()
	}
}

func (s *ShardedMapStorage) SetExpiration(key string, at time.Time) bool {
	return s.shard(key).SetExpiration(key, at)
}

func (s *ShardedMapStorage) HSet(key string, pairs []string) {
	s.shard(key).HSet(key, pairs)
}

func (s *ShardedMapStorage) Expiry(key string) (time.Duration, ExpiryStatus) {
	return s.shard(key).Expiry(key)
}

func (s *ShardedMapStorage) Persist(key string) bool {
	return s.shard(key).Persist(key)
}

// Len sums the key count of all shards
func (s *ShardedMapStorage) Len() int {
	total := 0
	for _, shard := range s.shards {
		total += shard.Len()
	}
	return total
}

// DeleteExpired samples up to limit keys with a TTL in every shard, in parallel.
// The ratio is taken over all sampled keys, so shards without TTL keys do not dilute it
func (s *ShardedMapStorage) DeleteExpired(limit int) (int, float64) {
	var wg sync.WaitGroup
	var mu sync.Mutex // protects totalExpired and totalChecked
	var totalExpired, totalChecked int

	wg.Add(len(s.shards))

	for _, shard := range s.shards {
		go func(m *MapStorage) {
			defer wg.Done()
			expired, checked := m.sweep(limit)

			mu.Lock()
			totalExpired += expired
			totalChecked += checked
			mu.Unlock()
		}(shard)
	}

	wg.Wait()

	if totalChecked == 0 {
		return 0, 0.0
	}
	return totalExpired, float64(totalExpired) / float64(totalChecked)
}
