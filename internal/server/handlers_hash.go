package server

import "github.com/eternalApril/moonkv/internal/storage"

// hget returns one field of the hash stored at key
func hget(ctx *cmdContext) Result {
	rec, ok := ctx.storage.Get(ctx.arg(0))
	if !ok {
		return Nil()
	}

	if rec.Kind != storage.KindHash {
		return Failure(errWrongType)
	}

	val, ok := rec.Hash[ctx.arg(1)]
	if !ok {
		return Nil()
	}

	return Text(val)
}

// hset upserts field/value pairs. A missing key or a non-hash value is replaced by a new hash.
// Replies Nil on success
func hset(ctx *cmdContext) Result {
	// command + key + pairs: an odd pair count makes the arity odd
	if ctx.req.Arity()%2 != 0 {
		return Failure(errWrongNumberOfArguments("HSET"))
	}

	args := ctx.req.Arguments()
	ctx.storage.HSet(args[0], args[1:])

	return Nil()
}
