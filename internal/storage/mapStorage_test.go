package storage

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapStorage_GetSet(t *testing.T) {
	s := NewMapStorage()

	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Set("k", NewScalar("v"))
	rec, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, KindScalar, rec.Kind)
	assert.Equal(t, "v", rec.Scalar)

	// overwrite changes the variant
	s.Set("k", NewHash([]string{"f", "1"}))
	rec, ok = s.Get("k")
	require.True(t, ok)
	assert.Equal(t, KindHash, rec.Kind)
	assert.Equal(t, map[string]string{"f": "1"}, rec.Hash)
}

func TestMapStorage_GetReturnsCopy(t *testing.T) {
	s := NewMapStorage()
	s.Set("h", NewHash([]string{"f", "v"}))

	rec, _ := s.Get("h")
	rec.Hash["f"] = "mutated"
	rec.Hash["g"] = "added"

	again, _ := s.Get("h")
	assert.Equal(t, map[string]string{"f": "v"}, again.Hash)
}

func TestMapStorage_SetCopiesInput(t *testing.T) {
	s := NewMapStorage()
	rec := NewHash([]string{"f", "v"})
	s.Set("h", rec)

	rec.Hash["f"] = "mutated"

	stored, _ := s.Get("h")
	assert.Equal(t, "v", stored.Hash["f"])
}

func TestMapStorage_Delete(t *testing.T) {
	s := NewMapStorage()
	s.Set("k", NewScalar("v"))
	s.SetExpiration("k", time.Now().Add(time.Hour))

	assert.True(t, s.Delete("k"))
	assert.False(t, s.Delete("k"), "delete is idempotent")

	_, ok := s.Get("k")
	assert.False(t, ok)
	assert.Empty(t, s.expires)
	assert.Empty(t, s.data)
}

func TestMapStorage_Clear(t *testing.T) {
	s := NewMapStorage()
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("k%d", i)
		s.Set(key, NewScalar("v"))
		s.SetExpiration(key, time.Now().Add(time.Minute))
	}

	s.Clear()

	assert.Zero(t, s.Len())
	assert.Empty(t, s.expires)
}

func TestMapStorage_SetExpiration(t *testing.T) {
	s := NewMapStorage()

	assert.False(t, s.SetExpiration("missing", time.Now().Add(time.Hour)))
	assert.NotContains(t, s.expires, "missing")

	s.Set("k", NewScalar("v"))
	assert.True(t, s.SetExpiration("k", time.Now().Add(time.Hour)))

	ttl, status := s.Expiry("k")
	assert.Equal(t, ExpActive, status)
	assert.InDelta(t, time.Hour.Seconds(), ttl.Seconds(), 1)
}

func TestMapStorage_LazyEviction(t *testing.T) {
	s := NewMapStorage()
	s.Set("k", NewScalar("v"))
	require.True(t, s.SetExpiration("k", time.Now().Add(-time.Millisecond)))

	// not swept until read
	assert.Equal(t, 1, s.Len())

	_, ok := s.Get("k")
	assert.False(t, ok)
	assert.NotContains(t, s.data, "k")
	assert.NotContains(t, s.expires, "k")

	assert.False(t, s.SetExpiration("k", time.Now().Add(time.Hour)))
}

func TestMapStorage_SetKeepsTTL(t *testing.T) {
	s := NewMapStorage()
	s.Set("k", NewScalar("v1"))
	s.SetExpiration("k", time.Now().Add(time.Hour))

	s.Set("k", NewScalar("v2"))
	_, status := s.Expiry("k")
	assert.Equal(t, ExpActive, status)

	s.SetPersist("k", NewScalar("v3"))
	_, status = s.Expiry("k")
	assert.Equal(t, ExpNoTimeout, status)
}

func TestMapStorage_SetOverExpiredKeyStartsFresh(t *testing.T) {
	s := NewMapStorage()
	s.Set("k", NewScalar("old"))
	s.SetExpiration("k", time.Now().Add(-time.Second))

	s.Set("k", NewScalar("new"))

	rec, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", rec.Scalar)
	_, status := s.Expiry("k")
	assert.Equal(t, ExpNoTimeout, status)
}

func TestMapStorage_HSet(t *testing.T) {
	s := NewMapStorage()

	s.HSet("h", []string{"a", "1", "b", "2", "a", "3"})
	rec, _ := s.Get("h")
	assert.Equal(t, map[string]string{"a": "3", "b": "2"}, rec.Hash)

	// merge into the existing hash
	s.HSet("h", []string{"b", "20", "c", "30"})
	rec, _ = s.Get("h")
	assert.Equal(t, map[string]string{"a": "3", "b": "20", "c": "30"}, rec.Hash)

	// a scalar is replaced by a fresh hash
	s.Set("s", NewScalar("text"))
	s.HSet("s", []string{"f", "v"})
	rec, _ = s.Get("s")
	assert.Equal(t, KindHash, rec.Kind)
	assert.Equal(t, map[string]string{"f": "v"}, rec.Hash)
}

func TestMapStorage_HSetOnExpiredHashStartsFresh(t *testing.T) {
	s := NewMapStorage()
	s.HSet("h", []string{"old", "1"})
	s.SetExpiration("h", time.Now().Add(-time.Second))

	s.HSet("h", []string{"new", "2"})

	rec, ok := s.Get("h")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"new": "2"}, rec.Hash)
}

func TestMapStorage_Persist(t *testing.T) {
	s := NewMapStorage()
	assert.False(t, s.Persist("missing"))

	s.Set("k", NewScalar("v"))
	assert.False(t, s.Persist("k"))

	s.SetExpiration("k", time.Now().Add(time.Minute))
	assert.True(t, s.Persist("k"))

	_, status := s.Expiry("k")
	assert.Equal(t, ExpNoTimeout, status)
}

func TestMapStorage_Expiry(t *testing.T) {
	s := NewMapStorage()

	_, status := s.Expiry("missing")
	assert.Equal(t, ExpNotFound, status)

	s.Set("k", NewScalar("v"))
	s.SetExpiration("k", time.Now().Add(-time.Second))
	_, status = s.Expiry("k")
	assert.Equal(t, ExpNotFound, status)
	assert.Zero(t, s.Len())
}

func TestMapStorage_DeleteExpired(t *testing.T) {
	s := NewMapStorage()
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("k%d", i)
		s.Set(key, NewScalar("v"))
		s.SetExpiration(key, time.Now().Add(-time.Second))
	}
	s.Set("alive", NewScalar("v"))
	s.SetExpiration("alive", time.Now().Add(time.Hour))

	expired, ratio := s.DeleteExpired(100)

	assert.Equal(t, 10, expired)
	assert.InDelta(t, 10.0/11.0, ratio, 0.001)
	assert.Equal(t, 1, s.Len())

	expired, ratio = s.DeleteExpired(0)
	assert.Zero(t, expired)
	assert.Zero(t, ratio)
}

func TestMapStorage_HSetOverHashWithoutFields(t *testing.T) {
	s := NewMapStorage()
	s.Set("h", Record{Kind: KindHash})

	assert.NotPanics(t, func() { s.HSet("h", []string{"f", "v"}) })

	rec, ok := s.Get("h")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"f": "v"}, rec.Hash)
}

func TestMapStorage_Concurrency(t *testing.T) {
	s := NewMapStorage()
	const workers = 50
	const opsPerWorker = 10000

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for j := 0; j < opsPerWorker; j++ {
				key := fmt.Sprintf("key-%d", r.Intn(50))

				switch r.Intn(6) {
				case 0:
					s.Set(key, NewScalar(fmt.Sprintf("val-%d", j)))
				case 1:
					s.Get(key)
				case 2:
					s.Delete(key)
				case 3:
					s.HSet(key, []string{"f", "v"})
				case 4:
					s.SetExpiration(key, time.Now().Add(time.Duration(r.Intn(3)-1)*time.Millisecond))
				case 5:
					s.DeleteExpired(5)
				}
			}
		}(i)
	}

	wg.Wait()
}

func FuzzMapStorage(f *testing.F) {
	s := NewMapStorage()

	f.Add("key1", "val1")
	f.Add("special", "!@#$%^&*()")

	f.Fuzz(func(t *testing.T, key string, val string) {
		s.Set(key, NewScalar(val))

		rec, ok := s.Get(key)
		if !ok || rec.Scalar != val {
			t.Errorf("Get failed after Set: key=%q, val=%q", key, val)
		}
	})
}
