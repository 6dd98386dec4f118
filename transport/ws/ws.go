// Package ws implements the websocket transport. Every message travels as one
// websocket message, the SP header is exchanged as the first one.
package ws

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/bytebufferpool"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/socket"
	"github.com/multisocket/spcore/transport"
)

type (
	wsTran string

	dialer struct {
		opts options.Options
		url  *url.URL
	}

	listener struct {
		opts     options.Options
		addr     string
		url      *url.URL
		upgrader websocket.Upgrader
		mux      *http.ServeMux
		htsvr    *http.Server
		listener net.Listener
		pending  chan *wsConn

		sync.Mutex
		closedq chan struct{}
	}

	wsConn struct {
		ws    *websocket.Conn
		laddr string
		raddr string
		dtype int
		maxrx int

		sync.Mutex
		closed bool
	}
)

const (
	// Transport is a transport.Transport for Websocket.
	Transport = wsTran("ws")
)

var (
	subprotocols = []string{"spcore.binary", "spcore.text"}
	dataTypes    = map[string]int{
		"spcore.binary": websocket.BinaryMessage,
		"spcore.text":   websocket.TextMessage,
	}
)

func init() {
	transport.Register(Transport)
}

func noCheckOrigin(r *http.Request) bool {
	return true
}

func newWsConn(ws *websocket.Conn, laddr, raddr string, opts options.Options) (*wsConn, error) {
	dtype, ok := dataTypes[ws.Subprotocol()]
	if !ok {
		ws.Close()
		return nil, errs.ErrBadHeader
	}
	c := &wsConn{
		ws:    ws,
		laddr: laddr,
		raddr: raddr,
		dtype: dtype,
		maxrx: socket.Options.RecvMaxSize.ValueFrom(opts),
	}
	return c, nil
}

// ws connection

func (c *wsConn) Transport() transport.Transport {
	return Transport
}

func (c *wsConn) Handshake(proto int) (int, error) {
	deadline := time.Now().Add(transport.HandshakeTimeout)
	c.ws.SetReadDeadline(deadline)
	c.ws.SetWriteDeadline(deadline)
	defer func() {
		c.ws.SetReadDeadline(time.Time{})
		c.ws.SetWriteDeadline(time.Time{})
	}()

	if err := c.ws.WriteMessage(websocket.BinaryMessage, transport.EncodeHeader(proto)); err != nil {
		return 0, err
	}
	_, h, err := c.ws.ReadMessage()
	if err != nil {
		return 0, err
	}
	if c.maxrx >= 0 {
		c.ws.SetReadLimit(int64(c.maxrx))
	}
	return transport.DecodeHeader(h)
}

func (c *wsConn) Send(msg *message.Message) error {
	w, err := c.ws.NextWriter(c.dtype)
	if err != nil {
		return err
	}
	if _, err = w.Write(msg.Header); err == nil {
		_, err = w.Write(msg.Body)
	}
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	msg.Free()
	return nil
}

func (c *wsConn) Recv() (*message.Message, error) {
	_, r, err := c.ws.NextReader()
	if err != nil {
		if err == websocket.ErrReadLimit {
			return nil, errs.ErrMsgTooLong
		}
		return nil, err
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err = buf.ReadFrom(r); err != nil {
		if err == websocket.ErrReadLimit {
			return nil, errs.ErrMsgTooLong
		}
		return nil, err
	}
	return message.NewWithContent(buf.B), nil
}

func (c *wsConn) Parsed() bool {
	return false
}

func (c *wsConn) Close() error {
	c.Lock()
	defer c.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}

func (c *wsConn) LocalAddress() string {
	return c.laddr
}

func (c *wsConn) RemoteAddress() string {
	return c.raddr
}

// dialer

func (d *dialer) Dial(ctx context.Context) (transport.Connection, error) {
	wd := &websocket.Dialer{
		ReadBufferSize:  Options.ReadBufferSize.ValueFrom(d.opts),
		WriteBufferSize: Options.WriteBufferSize.ValueFrom(d.opts),
		WriteBufferPool: &sync.Pool{},
		Subprotocols:    []string{subprotocols[0]},
	}
	if Options.MsgType.ValueFrom(d.opts) == MsgText {
		wd.Subprotocols = []string{subprotocols[1]}
	}

	ws, _, err := wd.DialContext(ctx, d.url.String(), nil)
	if err != nil {
		return nil, err
	}
	return newWsConn(ws, "ws://"+ws.LocalAddr().String(), d.url.String(), d.opts)
}

// listener

func (l *listener) Listen() (err error) {
	select {
	case <-l.closedq:
		return errs.ErrClosed
	default:
	}

	var taddr *net.TCPAddr
	if taddr, err = transport.ResolveTCPAddr("tcp", l.url.Host); err != nil {
		return err
	}
	if l.listener, err = net.ListenTCP("tcp", taddr); err != nil {
		return
	}
	l.htsvr = &http.Server{Handler: l.mux}
	go l.htsvr.Serve(l.listener)
	return nil
}

func (l *listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrClosed
	}

	select {
	case c := <-l.pending:
		return c, nil
	case <-l.closedq:
		return nil, errs.ErrClosed
	}
}

func (l *listener) Address() string {
	if l.listener != nil {
		u := *l.url
		u.Host = l.listener.Addr().String()
		return u.String()
	}
	return l.addr
}

func (l *listener) Close() error {
	l.Lock()
	select {
	case <-l.closedq:
		l.Unlock()
		return nil
	default:
		close(l.closedq)
	}
	l.Unlock()

	if l.htsvr != nil {
		l.htsvr.Close()
	}

CLOSING:
	for {
		select {
		case c := <-l.pending:
			c.Close()
		default:
			break CLOSING
		}
	}
	return nil
}

func (l *listener) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	ws, err := l.upgrader.Upgrade(resp, req, nil)
	if err != nil {
		log.WithField("domain", "ws").WithError(err).Debug("upgrade failed")
		return
	}

	c, err := newWsConn(ws, l.Address(), "ws://"+ws.RemoteAddr().String(), l.opts)
	if err != nil {
		return
	}

	select {
	case <-l.closedq:
		c.Close()
	case l.pending <- c:
	}
}

func (t wsTran) Scheme() string {
	return string(t)
}

func (t wsTran) NewDialer(address string, opts options.Options) (transport.Dialer, error) {
	u, err := parseAddressToURL(t, address)
	if err != nil {
		return nil, err
	}
	return &dialer{opts: opts, url: u}, nil
}

func (t wsTran) NewListener(address string, opts options.Options) (transport.Listener, error) {
	u, err := parseAddressToURL(t, address)
	if err != nil {
		return nil, err
	}
	if u.Path == "" {
		u.Path = "/"
	}

	l := &listener{
		opts: opts,
		addr: address,
		url:  u,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  Options.ReadBufferSize.ValueFrom(opts),
			WriteBufferSize: Options.WriteBufferSize.ValueFrom(opts),
			WriteBufferPool: &sync.Pool{},
			Subprotocols:    subprotocols,
		},
		pending: make(chan *wsConn, Options.PendingSize.ValueFrom(opts)),
		closedq: make(chan struct{}),
	}
	if Options.CheckOrigin.ValueFrom(opts) == 0 {
		l.upgrader.CheckOrigin = noCheckOrigin
	}
	l.mux = http.NewServeMux()
	l.mux.Handle(u.Path, l)

	return l, nil
}

func parseAddressToURL(t transport.Transport, address string) (*url.URL, error) {
	if _, err := transport.StripScheme(t, address); err != nil {
		return nil, err
	}
	return url.Parse(address)
}
