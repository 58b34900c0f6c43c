package server

import (
	"math"
	"strconv"
	"time"

	"github.com/eternalApril/moonkv/internal/storage"
)

// expire sets a TTL in seconds. A non-positive TTL deletes the key right away
func expire(ctx *cmdContext) Result {
	key := ctx.arg(0)

	if _, ok := ctx.storage.Get(key); !ok {
		return Integer(0)
	}

	seconds, err := strconv.ParseInt(ctx.arg(1), 10, 64)
	if err != nil {
		return Failure(errNotInteger)
	}

	if seconds <= 0 {
		ctx.storage.Delete(key)
		return Integer(1)
	}

	now := time.Now()
	if seconds > (math.MaxInt64-now.UnixNano())/int64(time.Second) {
		return Failure("invalid expire time in EXPIRE command")
	}

	if !ctx.storage.SetExpiration(key, now.Add(time.Duration(seconds)*time.Second)) {
		// removed between the check and the update
		return Integer(0)
	}

	return Integer(1)
}

// ttl returns the remaining time to live in seconds, -1 without TTL, -2 if missing
func ttl(ctx *cmdContext) Result {
	d, status := ctx.storage.Expiry(ctx.arg(0))
	if status != storage.ExpActive {
		return Integer(int64(status))
	}

	return Integer(int64((d + 500*time.Millisecond) / time.Second))
}

// pttl is ttl in milliseconds
func pttl(ctx *cmdContext) Result {
	d, status := ctx.storage.Expiry(ctx.arg(0))
	if status != storage.ExpActive {
		return Integer(int64(status))
	}

	return Integer(d.Milliseconds())
}

func persist(ctx *cmdContext) Result {
	if ctx.storage.Persist(ctx.arg(0)) {
		return Integer(1)
	}
	return Integer(0)
}

// del removes the given keys and returns how many existed
func del(ctx *cmdContext) Result {
	var removed int64
	for _, key := range ctx.req.Arguments() {
		if ctx.storage.Delete(key) {
			removed++
		}
	}
	return Integer(removed)
}

// exists counts the given keys that are present. A key named twice counts twice
func exists(ctx *cmdContext) Result {
	var found int64
	for _, key := range ctx.req.Arguments() {
		if _, ok := ctx.storage.Get(key); ok {
			found++
		}
	}
	return Integer(found)
}

func typeCmd(ctx *cmdContext) Result {
	rec, ok := ctx.storage.Get(ctx.arg(0))
	if !ok {
		return Status("none")
	}
	return Status(rec.Kind.String())
}
