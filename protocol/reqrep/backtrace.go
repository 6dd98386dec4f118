// Package reqrep implements the request/reply protocol.
//
// Requests and replies carry a backtrace header made of 4 byte big endian
// words. Every rep hop pushes the id of the pipe a request arrived on, the
// last word is the request id and has its top bit set.
package reqrep

import (
	"encoding/binary"

	"github.com/multisocket/spcore/message"
)

const (
	wordSize     = 4
	requestIDBit = 0x80000000
	// maxHops bounds the backtrace, requests crossing more devices are dropped.
	maxHops = 8
)

func validBacktrace(hdr []byte) bool {
	n := len(hdr)
	if n == 0 || n%wordSize != 0 || n > maxHops*wordSize {
		return false
	}
	for i := 0; i < n-wordSize; i += wordSize {
		if hdr[i]&0x80 != 0 {
			return false
		}
	}
	return hdr[n-wordSize]&0x80 != 0
}

// splitBacktrace moves the backtrace of a message received from a stream
// into its header, parsed messages already have it there.
func splitBacktrace(msg *message.Message, parsed bool) bool {
	if parsed {
		return validBacktrace(msg.Header)
	}
	for n := wordSize; n <= len(msg.Body) && n <= maxHops*wordSize; n += wordSize {
		if msg.Body[n-wordSize]&0x80 != 0 {
			return msg.TrimHeader(n)
		}
	}
	return false
}

// pushHop prefixes the header of msg with a pipe id.
func pushHop(msg *message.Message, id uint32) {
	hdr := make([]byte, wordSize+len(msg.Header))
	binary.BigEndian.PutUint32(hdr, id)
	copy(hdr[wordSize:], msg.Header)
	msg.SetHeader(hdr)
}

// popHop removes the leading pipe id from the header of msg.
func popHop(msg *message.Message) uint32 {
	id := binary.BigEndian.Uint32(msg.Header)
	rest := append([]byte(nil), msg.Header[wordSize:]...)
	msg.SetHeader(rest)
	return id
}

func copyHeader(msg *message.Message) []byte {
	return append([]byte(nil), msg.Header...)
}
