package errs

// Err is a constant error value.
type Err string

func (e Err) Error() string {
	return string(e)
}

// errors
const (
	ErrWouldBlock             = Err("operation would block")
	ErrTimeout                = Err("operation time out")
	ErrTemporarilyUnavailable = Err("resource temporarily unavailable")
	ErrInvalidOption          = Err("invalid or unsupported option")
	ErrInvalidOptionValue     = Err("invalid option value")
	ErrProtocolReject         = Err("pipe rejected by protocol")
	ErrProtocolNotSupported   = Err("protocol not supported")
	ErrTerminating            = Err("socket is terminating")
	ErrNotSupported           = Err("operation not supported")
	ErrBadState               = Err("operation not valid in current state")

	ErrBadHandle       = Err("bad socket handle")
	ErrTooManySockets  = Err("too many open sockets")
	ErrDuplicateType   = Err("socket type already registered")
	ErrBadTransport    = Err("invalid or unsupported transport")
	ErrAddrInUse       = Err("address already in use")
	ErrConnRefused     = Err("connection refused")
	ErrClosed          = Err("object is closed")
	ErrMsgTooLong      = Err("message is too long")
	ErrBadHeader       = Err("invalid protocol header")
	ErrInvalidArgument = Err("invalid argument")
	ErrBadEndpoint     = Err("no such endpoint")
)
