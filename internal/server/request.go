package server

import (
	"errors"

	"github.com/eternalApril/moonkv/internal/resp"
)

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrEmptyRequest     = errors.New("empty message")
)

// Request is a command line: the command name followed by its arguments
type Request struct {
	parts []string
}

// NewRequest converts a decoded array of strings into a Request
func NewRequest(v resp.Value) (Request, error) {
	if v.Type != resp.TypeArray || v.IsNull {
		return Request{}, ErrMalformedRequest
	}

	if len(v.Array) == 0 {
		return Request{}, ErrEmptyRequest
	}

	parts := make([]string, len(v.Array))
	for i, el := range v.Array {
		if !el.IsText() {
			return Request{}, ErrMalformedRequest
		}
		parts[i] = string(el.String)
	}

	return Request{parts: parts}, nil
}

// Command returns the command name as sent by the client
func (r Request) Command() string {
	return r.parts[0]
}

// Arguments returns everything after the command name
func (r Request) Arguments() []string {
	return r.parts[1:]
}

// Arity is the element count including the command name
func (r Request) Arity() int {
	return len(r.parts)
}
