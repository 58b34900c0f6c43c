package resp

import "fmt"

func textValue(typ byte, s string) Value {
	return Value{Type: typ, String: []byte(s)}
}

// MakeSimpleString builds a status reply such as +OK
func MakeSimpleString(s string) Value { return textValue(TypeSimpleString, s) }

// MakeError builds an error reply. s must not contain CR or LF
func MakeError(s string) Value { return textValue(TypeError, s) }

// MakeErrorWrongNumberOfArguments is the reply for a request whose element count
// does not fit the command's arity
func MakeErrorWrongNumberOfArguments(cmd string) Value {
	return MakeError(fmt.Sprintf("wrong number of arguments for %s command", cmd))
}

// MakeBulkString builds a binary-safe string value
func MakeBulkString(s string) Value { return textValue(TypeBulkString, s) }

// MakeNilBulkString is the absent-value reply, $-1
func MakeNilBulkString() Value {
	return Value{Type: TypeBulkString, IsNull: true}
}

func MakeInteger(n int64) Value {
	return Value{Type: TypeInteger, Integer: n}
}

// MakeArray wraps values without copying them
func MakeArray(values []Value) Value {
	return Value{Type: TypeArray, Array: values}
}

// MakeNilArray is *-1
func MakeNilArray() Value {
	return Value{Type: TypeArray, IsNull: true}
}
