// Package address parses endpoint addresses that carry their connect type
// and socket options, e.g. "tcp://127.0.0.1:5555?sndbuf=65536#listen".
package address

import (
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/multisocket/spcore"
	"github.com/multisocket/spcore/options"
)

// errors
var (
	ErrBadConnectType     = errors.New("bad connect type")
	ErrConnectTypeMissing = errors.New("connect type missing")
)

// Connect Types
const (
	Dial   = "dial"
	Listen = "listen"
)

// Value is an option setting carried by an address.
type Value struct {
	Option options.Option
	Value  []byte
}

// Address groups the connect type, the transport address and options.
type Address struct {
	raw      string
	connType string
	addr     string
	values   []Value
}

// Parse parses s to an Address, query keys are option names.
func Parse(s string) (*Address, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}

	sa := &Address{
		raw:  s,
		addr: fmt.Sprintf("%s://%s%s", u.Scheme, u.Host, u.Path),
	}
	switch u.Fragment {
	case Dial, Listen:
		sa.connType = u.Fragment
	case "":
		// connect type missing
	default:
		return nil, ErrBadConnectType
	}

	q := u.Query()
	names := make([]string, 0, len(q))
	for k := range q {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		opt, ok := options.LookupName(name)
		if !ok {
			return nil, fmt.Errorf("%s: unknown option", name)
		}
		val, err := options.Parse(opt, q.Get(name))
		if err == nil {
			err = opt.Validate(val)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sa.values = append(sa.values, Value{opt, val})
	}
	return sa, nil
}

func (sa *Address) String() string {
	return sa.raw
}

// ConnectType is Dial, Listen or empty.
func (sa *Address) ConnectType() string {
	return sa.connType
}

// Address is the transport address without options and connect type.
func (sa *Address) Address() string {
	return sa.addr
}

// Values returns the options of the address ordered by name.
func (sa *Address) Values() []Value {
	return sa.values
}

// Connect sets the address options on the socket fd, then binds or connects
// it according to the connect type, def is used when the address has none.
func (sa *Address) Connect(fd int, def string) (int, error) {
	for _, v := range sa.values {
		if err := spcore.SetSockOpt(fd, v.Option.Level(), v.Option.ID(), v.Value); err != nil {
			return -1, fmt.Errorf("%s: %w", v.Option.Name(), err)
		}
	}

	connType := sa.connType
	if connType == "" {
		connType = def
	}
	switch connType {
	case Dial:
		return spcore.Connect(fd, sa.addr)
	case Listen:
		return spcore.Bind(fd, sa.addr)
	default:
		return -1, ErrConnectTypeMissing
	}
}
