package resp

const (
	TypeSimpleString = '+'
	TypeError        = '-'
	TypeInteger      = ':'
	TypeBulkString   = '$'
	TypeArray        = '*'
)

// Value is a single protocol value. Exactly one payload field is meaningful,
// selected by Type. IsNull marks the null BulkString and the null Array
type Value struct {
	String  []byte // SimpleString, Error, BulkString
	Array   []Value
	Integer int64
	Type    byte
	IsNull  bool
}

// IsText reports whether v carries a non-null string payload
func (v Value) IsText() bool {
	switch v.Type {
	case TypeSimpleString, TypeBulkString:
		return !v.IsNull
	}
	return false
}

// Equal reports whether two values have the same shape and payload
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type || v.IsNull != o.IsNull {
		return false
	}

	switch v.Type {
	case TypeInteger:
		return v.Integer == o.Integer
	case TypeArray:
		if len(v.Array) != len(o.Array) {
			return false
		}
		for i := range v.Array {
			if !v.Array[i].Equal(o.Array[i]) {
				return false
			}
		}
		return true
	default:
		return string(v.String) == string(o.String)
	}
}
