package resp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

const (
	minReadSize = 4096

	// MaxBufferSize bounds the bytes a Decoder accumulates for a single unfinished value
	MaxBufferSize = 64 << 20
)

var ErrBufferLimit = errors.New("request exceeds buffer limit")

// Decoder reads values from a stream. Bytes are accumulated until a whole value is
// available, so values split across reads are reassembled and pipelined values
// are returned one by one
type Decoder struct {
	rd  io.Reader
	buf []byte
	r   int // start of the undecoded bytes in buf

	// next holds the value Pending decoded at r, nextN its encoded length
	next   *Value
	nextN  int
	resync bool // drop input up to the end of the current line before decoding
}

// NewDecoder initializes a Decoder reading from rd
func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{
		rd:  rd,
		buf: make([]byte, 0, minReadSize),
	}
}

// Read returns the next value from the stream. On a protocol error the input is dropped up
// to the end of the offending line and the error returned, so the caller can report it and
// keep reading the values behind it. Any other error comes from the underlying reader
func (d *Decoder) Read() (Value, error) {
	if d.next != nil {
		v := *d.next
		d.next = nil
		d.consume(d.nextN)
		return v, nil
	}

	for {
		if d.resync {
			d.skipLine(0)
		}

		if !d.resync && d.Buffered() > 0 {
			v, n, err := parse(d.buf[d.r:], 0, 0)
			if err == nil {
				d.consume(n)
				return v, nil
			}
			if !errors.Is(err, ErrIncomplete) {
				d.skipLine(n)
				return Value{}, err
			}
		}

		if err := d.fill(); err != nil {
			return Value{}, err
		}
	}
}

// Pending reports whether the next Read can be answered from already buffered bytes.
// A value decoded here is kept for that Read
func (d *Decoder) Pending() bool {
	if d.next != nil {
		return true
	}
	if d.resync || d.Buffered() == 0 {
		return false
	}

	v, n, err := parse(d.buf[d.r:], 0, 0)
	if err == nil {
		d.next, d.nextN = &v, n
		return true
	}
	return !errors.Is(err, ErrIncomplete)
}

// skipLine drops the undecoded bytes up to and including the first LF at or after offset at.
// Without one, everything buffered goes and the rest of the line is dropped once it arrives
func (d *Decoder) skipLine(at int) {
	idx := bytes.IndexByte(d.buf[d.r+at:], '\n')
	if idx < 0 {
		d.reset()
		d.resync = true
		return
	}

	d.resync = false
	d.consume(at + idx + 1)
}

// Buffered returns the number of bytes read from the stream but not yet decoded
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.r
}

func (d *Decoder) consume(n int) {
	d.r += n
	if d.r == len(d.buf) {
		d.reset()
	}
}

func (d *Decoder) reset() {
	d.buf = d.buf[:0]
	d.r = 0
}

func (d *Decoder) fill() error {
	if d.r > 0 {
		d.buf = d.buf[:copy(d.buf, d.buf[d.r:])]
		d.r = 0
	}

	if len(d.buf) >= MaxBufferSize {
		return fmt.Errorf("%w: %d bytes", ErrBufferLimit, len(d.buf))
	}

	if cap(d.buf)-len(d.buf) < minReadSize {
		grown := make([]byte, len(d.buf), 2*cap(d.buf)+minReadSize)
		copy(grown, d.buf)
		d.buf = grown
	}

	n, err := d.rd.Read(d.buf[len(d.buf):cap(d.buf)])
	d.buf = d.buf[:len(d.buf)+n]
	if n > 0 || err == nil {
		return nil
	}

	if errors.Is(err, io.EOF) && len(d.buf) > 0 {
		return io.ErrUnexpectedEOF
	}
	return err
}
