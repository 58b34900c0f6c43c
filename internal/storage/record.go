package storage

import "maps"

type Kind byte

const (
	KindScalar Kind = iota + 1
	KindHash
)

// String returns the name reported by the TYPE command
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "string"
	case KindHash:
		return "hash"
	}
	return "none"
}

// Record is the value stored under a key: either a text scalar or a field -> text hash
type Record struct {
	Kind   Kind
	Scalar string
	Hash   map[string]string
}

// NewScalar creates a scalar Record
func NewScalar(s string) Record {
	return Record{Kind: KindScalar, Scalar: s}
}

// NewHash builds a hash Record from field/value pairs. For a repeated field the last value wins
func NewHash(pairs []string) Record {
	hash := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		hash[pairs[i]] = pairs[i+1]
	}
	return Record{Kind: KindHash, Hash: hash}
}

// Clone returns a deep copy, so the stored Record cannot be mutated through it
func (r Record) Clone() Record {
	if r.Hash != nil {
		r.Hash = maps.Clone(r.Hash)
	}
	return r
}
