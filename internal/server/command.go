package server

import (
	"strings"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

// cmdContext is what a handler sees: the request and the storage it runs against
type cmdContext struct {
	req         Request
	storage     storage.Storage
	setKeepsTTL bool
}

func (c *cmdContext) arg(i int) string {
	return c.req.Arguments()[i]
}

type commandFunc func(ctx *cmdContext) Result

// command is a registry entry. Arity includes the command name itself;
// a negative arity means at least -arity elements
type command struct {
	name    string
	arity   int
	handler commandFunc
}

// validateArity checks the observed element count against the declared arity
func validateArity(arity, observed int) bool {
	if arity >= 0 {
		return observed == arity
	}
	return observed >= -arity
}

func errWrongNumberOfArguments(name string) string {
	return string(resp.MakeErrorWrongNumberOfArguments(name).String)
}

// registry maps upper-case command names to their entries
type registry map[string]command

func (r registry) register(name string, arity int, handler commandFunc) {
	name = strings.ToUpper(name)
	r[name] = command{name: name, arity: arity, handler: handler}
}

func (r registry) lookup(name string) (command, bool) {
	cmd, ok := r[strings.ToUpper(name)]
	return cmd, ok
}

func newRegistry() registry {
	r := make(registry)

	r.register("COMMAND", -1, commandCmd)
	r.register("PING", -1, ping)
	r.register("FLUSHALL", 1, flushAll)
	r.register("DBSIZE", 1, dbSize)

	r.register("GET", 2, get)
	r.register("SET", -3, set)

	r.register("HGET", 3, hget)
	r.register("HSET", -4, hset)

	r.register("DEL", -2, del)
	r.register("EXISTS", -2, exists)
	r.register("TYPE", 2, typeCmd)
	r.register("EXPIRE", 3, expire)
	r.register("TTL", 2, ttl)
	r.register("PTTL", 2, pttl)
	r.register("PERSIST", 2, persist)

	return r
}
