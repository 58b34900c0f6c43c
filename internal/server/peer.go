package server

import (
	"net"
	"sync"

	"github.com/eternalApril/moonkv/internal/resp"
)

// Peer is one client connection with its request decoder and reply encoder.
// Replies are buffered until Flush
type Peer struct {
	conn net.Conn
	dec  *resp.Decoder

	mu  sync.Mutex // guards enc
	enc *resp.Encoder
}

func NewPeer(conn net.Conn) *Peer {
	return &Peer{
		conn: conn,
		dec:  resp.NewDecoder(conn),
		enc:  resp.NewEncoder(conn),
	}
}

// Send queues a reply
func (p *Peer) Send(v resp.Value) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Write(v)
}

// Flush writes the queued replies to the connection
func (p *Peer) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enc.Flush()
}

// ReadCommand blocks until the next whole value has arrived
func (p *Peer) ReadCommand() (resp.Value, error) {
	return p.dec.Read()
}

// Pending reports whether the next request is already buffered. While it is, replies to
// a pipeline keep accumulating instead of being flushed one by one
func (p *Peer) Pending() bool {
	return p.dec.Pending()
}

func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

func (p *Peer) Close() error {
	return p.conn.Close()
}
