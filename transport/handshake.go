package transport

import (
	"encoding/binary"
	"io"

	"github.com/multisocket/spcore/errs"
)

// HeaderSize is the size of the SP protocol header.
const HeaderSize = 8

// EncodeHeader returns the SP header announcing proto.
func EncodeHeader(proto int) []byte {
	h := []byte{0, 'S', 'P', 0, 0, 0, 0, 0}
	binary.BigEndian.PutUint16(h[4:6], uint16(proto))
	return h
}

// DecodeHeader returns the protocol announced by an SP header.
func DecodeHeader(h []byte) (int, error) {
	if len(h) != HeaderSize || h[0] != 0 || h[1] != 'S' || h[2] != 'P' || h[3] != 0 || h[6] != 0 || h[7] != 0 {
		return 0, errs.ErrBadHeader
	}
	return int(binary.BigEndian.Uint16(h[4:6])), nil
}

// Handshake writes our header and reads the peer's concurrently, so both
// ends of an unbuffered stream can handshake at once.
func Handshake(rw io.ReadWriter, proto int) (int, error) {
	werr := make(chan error, 1)
	go func() {
		_, err := rw.Write(EncodeHeader(proto))
		werr <- err
	}()

	h := make([]byte, HeaderSize)
	if _, err := io.ReadFull(rw, h); err != nil {
		return 0, err
	}
	if err := <-werr; err != nil {
		return 0, err
	}
	return DecodeHeader(h)
}
