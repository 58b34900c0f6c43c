package server

import "github.com/eternalApril/moonkv/internal/resp"

type resultKind byte

const (
	resultOK resultKind = iota
	resultNil
	resultText
	resultStatus
	resultInteger
	resultFailure
)

// Result is what a command handler produces. It maps onto exactly one resp.Value
type Result struct {
	kind resultKind
	text string
	n    int64
}

func OK() Result { return Result{kind: resultOK} }

func Nil() Result { return Result{kind: resultNil} }

func Text(s string) Result { return Result{kind: resultText, text: s} }

// Status is a simple-string reply other than OK, such as PONG
func Status(s string) Result { return Result{kind: resultStatus, text: s} }

func Integer(n int64) Result { return Result{kind: resultInteger, n: n} }

func Failure(msg string) Result { return Result{kind: resultFailure, text: msg} }

// Failed reports whether the result is an error reply
func (r Result) Failed() bool {
	return r.kind == resultFailure
}

// Value converts the result to its wire shape
func (r Result) Value() resp.Value {
	switch r.kind {
	case resultOK:
		return resp.MakeSimpleString("OK")
	case resultText:
		return resp.MakeBulkString(r.text)
	case resultStatus:
		return resp.MakeSimpleString(r.text)
	case resultInteger:
		return resp.MakeInteger(r.n)
	case resultFailure:
		return resp.MakeError(r.text)
	default:
		return resp.MakeNilBulkString()
	}
}
