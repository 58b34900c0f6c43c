package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrIncomplete means the buffer holds a valid prefix of a value and more bytes are needed.
	// It is not a protocol error
	ErrIncomplete = errors.New("incomplete value")

	ErrUnknownStartingByte = errors.New("unknown starting byte")
	ErrIntParseFailure     = errors.New("unparseable integer")
	ErrBadBulkStringSize   = errors.New("bad bulk string size")
	ErrBadArraySize        = errors.New("bad array size")
	ErrInvalidEnding       = errors.New("invalid line ending")
)

// MaxDepth is how deeply arrays may nest before decoding fails with ErrBadArraySize
const MaxDepth = 128

// IsProtocolError reports whether err is a malformed-input error that more bytes cannot fix
func IsProtocolError(err error) bool {
	return errors.Is(err, ErrUnknownStartingByte) ||
		errors.Is(err, ErrIntParseFailure) ||
		errors.Is(err, ErrBadBulkStringSize) ||
		errors.Is(err, ErrBadArraySize) ||
		errors.Is(err, ErrInvalidEnding)
}

// Decode parses one value from the start of buf and returns it with the number of bytes consumed.
// ErrIncomplete is returned when buf ends before the value does.
// The returned value never aliases buf
func Decode(buf []byte) (Value, int, error) {
	v, n, err := parse(buf, 0, 0)
	if err != nil {
		return Value{}, 0, err
	}
	return v, n, nil
}

// The parse functions return, on a hard error, the offset at which the input went wrong
// in place of the consumed length. ErrIncomplete carries no offset

func parse(buf []byte, pos, depth int) (Value, int, error) {
	if pos >= len(buf) {
		return Value{}, 0, ErrIncomplete
	}

	switch buf[pos] {
	case TypeSimpleString, TypeError:
		line, next, err := readLine(buf, pos+1)
		if err != nil {
			return Value{}, next, err
		}
		return Value{Type: buf[pos], String: bytes.Clone(line)}, next, nil
	case TypeInteger:
		n, next, err := readInteger(buf, pos+1)
		if err != nil {
			return Value{}, next, err
		}
		return MakeInteger(n), next, nil
	case TypeBulkString:
		return parseBulkString(buf, pos+1)
	case TypeArray:
		return parseArray(buf, pos+1, depth)
	}

	return Value{}, pos, fmt.Errorf("%w: %q", ErrUnknownStartingByte, buf[pos])
}

// readLine returns the bytes up to the next CRLF and the position right after it
func readLine(buf []byte, pos int) ([]byte, int, error) {
	end := bytes.IndexByte(buf[pos:], '\r')
	if end < 0 {
		return nil, 0, ErrIncomplete
	}
	end += pos

	if end+1 >= len(buf) {
		return nil, 0, ErrIncomplete
	}
	if buf[end+1] != '\n' {
		return nil, end, ErrInvalidEnding
	}

	return buf[pos:end], end + 2, nil
}

func readInteger(buf []byte, pos int) (int64, int, error) {
	line, next, err := readLine(buf, pos)
	if err != nil {
		return 0, next, err
	}

	n, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, pos, fmt.Errorf("%w: %q", ErrIntParseFailure, line)
	}

	return n, next, nil
}

func parseBulkString(buf []byte, pos int) (Value, int, error) {
	header := pos
	size, pos, err := readInteger(buf, pos)
	if err != nil {
		return Value{}, pos, err
	}

	if size == -1 {
		return MakeNilBulkString(), pos, nil
	}
	// a payload that cannot fit in a Decoder buffer is rejected before it is awaited
	if size < 0 || size > MaxBufferSize {
		return Value{}, header, fmt.Errorf("%w: %d", ErrBadBulkStringSize, size)
	}

	if int(size)+2 > len(buf)-pos {
		return Value{}, 0, ErrIncomplete
	}

	end := pos + int(size)
	if buf[end] != '\r' || buf[end+1] != '\n' {
		return Value{}, end, ErrInvalidEnding
	}

	return Value{Type: TypeBulkString, String: bytes.Clone(buf[pos:end])}, end + 2, nil
}

func parseArray(buf []byte, pos, depth int) (Value, int, error) {
	header := pos
	count, pos, err := readInteger(buf, pos)
	if err != nil {
		return Value{}, pos, err
	}

	if count == -1 {
		return MakeNilArray(), pos, nil
	}
	// every element takes at least three bytes
	if count < 0 || count > MaxBufferSize/3 {
		return Value{}, header, fmt.Errorf("%w: %d", ErrBadArraySize, count)
	}
	if count > 0 && depth >= MaxDepth {
		return Value{}, header, fmt.Errorf("%w: nested deeper than %d", ErrBadArraySize, MaxDepth)
	}

	hint := count
	if rest := int64(len(buf)-pos) / 3; hint > rest {
		hint = rest
	}

	values := make([]Value, 0, hint)
	for i := int64(0); i < count; i++ {
		var v Value
		v, pos, err = parse(buf, pos, depth+1)
		if err != nil {
			return Value{}, pos, err
		}
		values = append(values, v)
	}

	return MakeArray(values), pos, nil
}
