package server

import "github.com/eternalApril/moonkv/internal/storage"

const (
	errWrongType  = "wrongtype"
	errNotInteger = "value is not an integer or out of range"
)

// get returns the scalar stored at key
func get(ctx *cmdContext) Result {
	rec, ok := ctx.storage.Get(ctx.arg(0))
	if !ok {
		return Nil()
	}

	if rec.Kind != storage.KindScalar {
		return Failure(errWrongType)
	}

	return Text(rec.Scalar)
}

// set overwrites key with a scalar. Arguments past the value are ignored
func set(ctx *cmdContext) Result {
	key, record := ctx.arg(0), storage.NewScalar(ctx.arg(1))

	if ctx.setKeepsTTL {
		ctx.storage.Set(key, record)
	} else {
		ctx.storage.SetPersist(key, record)
	}

	return OK()
}
