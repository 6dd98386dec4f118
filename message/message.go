// Package message implements the message buffer handed between sockets and pipes.
//
// A Message has two regions: Header, owned by the protocol (routing metadata,
// request ids and so on), and Body, the application payload. Ownership of a
// Message moves with it: once a pipe or socket accepted it the sender must not
// touch it again.
package message

import (
	"sync"

	"github.com/multisocket/spcore/bytespool"
)

type (
	// Message is a message
	Message struct {
		Header []byte
		Body   []byte

		hbuf []byte
		bbuf []byte
	}
)

var (
	msgPool = &sync.Pool{
		New: func() interface{} { return &Message{} },
	}
)

// New create a message with an empty header and a body of sz bytes.
func New(sz int) *Message {
	msg := msgPool.Get().(*Message)
	msg.bbuf = bytespool.Alloc(sz)
	msg.Body = msg.bbuf[:sz:sz]
	return msg
}

// NewWithContent create a message holding a copy of body.
func NewWithContent(body []byte) *Message {
	msg := New(len(body))
	copy(msg.Body, body)
	return msg
}

// NewFromParts create a message holding copies of header and body.
func NewFromParts(header, body []byte) *Message {
	msg := NewWithContent(body)
	msg.SetHeader(header)
	return msg
}

// SetHeader replaces the header region with a copy of h.
func (msg *Message) SetHeader(h []byte) {
	bytespool.Free(msg.hbuf)
	msg.hbuf = nil
	msg.Header = nil
	if len(h) == 0 {
		return
	}
	msg.hbuf = bytespool.Alloc(len(h))
	msg.Header = msg.hbuf[:len(h):len(h)]
	copy(msg.Header, h)
}

// TrimHeader moves the first n body bytes into the header region.
// It is used by protocols splitting an unparsed message.
func (msg *Message) TrimHeader(n int) bool {
	if n < 0 || n > len(msg.Body) {
		return false
	}
	h := msg.Body[:n]
	msg.SetHeader(h)
	msg.Body = msg.Body[n:]
	return true
}

// Size is the total byte size of header and body.
func (msg *Message) Size() int {
	return len(msg.Header) + len(msg.Body)
}

// Dup create a deep copy of the message.
func (msg *Message) Dup() *Message {
	return NewFromParts(msg.Header, msg.Body)
}

// Free put msg and buffers to pools
func (msg *Message) Free() {
	bytespool.Free(msg.hbuf)
	bytespool.Free(msg.bbuf)

	msg.hbuf = nil
	msg.bbuf = nil
	msg.Header = nil
	msg.Body = nil
	msgPool.Put(msg)
}
