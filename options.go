package spcore

import (
	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/options"
)

// SetSockOpt sets an option of the socket.
func SetSockOpt(fd, level, id int, val []byte) error {
	s, err := lookup(fd)
	if err != nil {
		return err
	}
	return s.SetOption(level, id, val)
}

// GetSockOpt gets an option of the socket.
func GetSockOpt(fd, level, id int) ([]byte, error) {
	s, err := lookup(fd)
	if err != nil {
		return nil, err
	}
	return s.GetOption(level, id)
}

// SetSockOptInt sets an integer option.
func SetSockOptInt(fd, level, id, v int) error {
	return SetSockOpt(fd, level, id, options.EncodeInt(v))
}

// GetSockOptInt gets an integer option.
func GetSockOptInt(fd, level, id int) (int, error) {
	val, err := GetSockOpt(fd, level, id)
	if err != nil {
		return 0, err
	}
	return options.DecodeInt(val)
}

// SetSockOptName sets an option by its registered name, the value is
// encoded from v by the option type.
func SetSockOptName(fd int, name string, v interface{}) error {
	opt, ok := options.LookupName(name)
	if !ok {
		return errs.ErrInvalidOption
	}
	val, err := options.Encode(opt, v)
	if err != nil {
		return err
	}
	return SetSockOpt(fd, opt.Level(), opt.ID(), val)
}
