package transport

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/socket"
)

// HandshakeTimeout bounds the SP header exchange.
var HandshakeTimeout = time.Second

// connection implements the Connection interface on top of net.Conn.
// Messages are framed as a 64-bit size (network byte order) followed by the
// header and body bytes.
type connection struct {
	transport Transport
	c         net.Conn
	maxrx     int
	sizeb     [8]byte

	sync.Mutex
	closed bool
}

func (conn *connection) Transport() Transport {
	return conn.transport
}

func (conn *connection) Handshake(proto int) (int, error) {
	conn.c.SetDeadline(time.Now().Add(HandshakeTimeout))
	defer conn.c.SetDeadline(time.Time{})
	return Handshake(conn.c, proto)
}

// Recv reads one frame, messages larger than the receive limit close the stream.
func (conn *connection) Recv() (*message.Message, error) {
	if _, err := io.ReadFull(conn.c, conn.sizeb[:]); err != nil {
		return nil, err
	}
	sz := binary.BigEndian.Uint64(conn.sizeb[:])
	if conn.maxrx >= 0 && sz > uint64(conn.maxrx) {
		return nil, errs.ErrMsgTooLong
	}
	if sz > uint64(maxInt) {
		return nil, errs.ErrMsgTooLong
	}

	msg := message.New(int(sz))
	if _, err := io.ReadFull(conn.c, msg.Body); err != nil {
		msg.Free()
		return nil, err
	}
	return msg, nil
}

const maxInt = int(^uint(0) >> 1)

// Send writes one frame and frees msg.
func (conn *connection) Send(msg *message.Message) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	var sizeb [8]byte
	binary.BigEndian.PutUint64(sizeb[:], uint64(msg.Size()))
	buf.Write(sizeb[:])
	buf.Write(msg.Header)
	buf.Write(msg.Body)
	if _, err := conn.c.Write(buf.B); err != nil {
		return err
	}
	msg.Free()
	return nil
}

func (conn *connection) Parsed() bool {
	return false
}

// Close implements the Connection Close method.
func (conn *connection) Close() error {
	conn.Lock()
	defer conn.Unlock()
	if conn.closed {
		return nil
	}
	conn.closed = true

	return conn.c.Close()
}

func (conn *connection) LocalAddress() string {
	return fmt.Sprintf("%s://%s", conn.transport.Scheme(), conn.c.LocalAddr().String())
}

func (conn *connection) RemoteAddress() string {
	return fmt.Sprintf("%s://%s", conn.transport.Scheme(), conn.c.RemoteAddr().String())
}

// NewConnection allocates a new Connection using the supplied net.Conn
func NewConnection(transport Transport, c net.Conn, opts options.Options) Connection {
	return &connection{
		transport: transport,
		c:         c,
		maxrx:     socket.Options.RecvMaxSize.ValueFrom(opts),
	}
}
