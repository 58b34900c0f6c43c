package resp

import (
	"bufio"
	"io"
	"strconv"
)

// Encoder handles the serialization of RESP Value objects into an output stream
type Encoder struct {
	writer *bufio.Writer
}

// NewEncoder initializes an Encoder with a buffered writer
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		writer: bufio.NewWriter(w),
	}
}

// Write serializes a RESP Value into the buffer. Call Flush to push it to the stream
func (e *Encoder) Write(v Value) error {
	_, err := e.writer.Write(AppendValue(e.writer.AvailableBuffer(), v))
	return err
}

// Flush sends all buffered data to the underlying stream
func (e *Encoder) Flush() error {
	return e.writer.Flush()
}

// Marshal encodes v into a new byte slice
func Marshal(v Value) []byte {
	return AppendValue(nil, v)
}

// AppendValue appends the wire form of v to b, recursing into array elements
func AppendValue(b []byte, v Value) []byte {
	switch v.Type {
	case TypeInteger:
		b = appendHeader(b, TypeInteger, v.Integer)

	case TypeSimpleString, TypeError:
		b = append(b, v.Type)
		b = append(b, v.String...)
		b = append(b, '\r', '\n')

	case TypeBulkString:
		if v.IsNull {
			return append(b, "$-1\r\n"...)
		}
		b = appendHeader(b, TypeBulkString, int64(len(v.String)))
		b = append(b, v.String...)
		b = append(b, '\r', '\n')

	case TypeArray:
		if v.IsNull {
			return append(b, "*-1\r\n"...)
		}
		b = appendHeader(b, TypeArray, int64(len(v.Array)))
		for _, el := range v.Array {
			b = AppendValue(b, el)
		}
	}

	return b
}

// appendHeader writes the type prefix, numeric value, and CRLF
func appendHeader(b []byte, prefix byte, n int64) []byte {
	b = append(b, prefix)
	b = strconv.AppendInt(b, n, 10)
	return append(b, '\r', '\n')
}

// SerializeCommand encodes a command line as an array of bulk strings, the form clients send
func SerializeCommand(cmd string, args ...string) []byte {
	elements := make([]Value, 0, 1+len(args))
	elements = append(elements, MakeBulkString(cmd))
	for _, arg := range args {
		elements = append(elements, MakeBulkString(arg))
	}

	return Marshal(MakeArray(elements))
}
