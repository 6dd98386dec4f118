// Package options implements typed socket options identified by a
// (level, id) pair and carrying byte values, plus a concurrent option store.
package options

import (
	"bytes"
	"sync"

	"github.com/multisocket/spcore/errs"
)

// LevelSocket is the level of the generic, protocol-agnostic options.
const LevelSocket = 0

type (
	// Options is option set.
	Options interface {
		SetOption(opt Option, val []byte) (err error)
		WithOption(opt Option, val []byte) Options
		GetOption(opt Option) (val []byte, ok bool)
		GetOptionDefault(opt Option, def []byte) (val []byte)
		OptionValues() []*OptionValue
		AddOptionChangeHook(hook OptionChangeHook)
	}

	// OptionChangeHook is called before a value is stored, an error vetoes the change.
	OptionChangeHook func(opt Option, oldVal, newVal []byte) error

	// Option is an option item.
	Option interface {
		Level() int
		ID() int
		Name() string
		ReadOnly() bool
		Validate(val []byte) error
		Default() []byte
	}

	// OptionValue option value pair
	OptionValue struct {
		Option Option
		Value  []byte
	}

	options struct {
		sync.RWMutex
		opts  map[Option][]byte
		hooks []OptionChangeHook
	}
)

// NewOptions create an option set.
func NewOptions() Options {
	return &options{
		opts: make(map[Option][]byte),
	}
}

// SetOption validates and stores an option value. Hooks run without the store
// lock so they may read other options; callers serialize concurrent changes.
func (opts *options) SetOption(opt Option, val []byte) (err error) {
	if opt.ReadOnly() {
		return errs.ErrInvalidOption
	}
	if err = opt.Validate(val); err != nil {
		return
	}

	opts.RLock()
	old, ok := opts.opts[opt]
	hooks := opts.hooks
	opts.RUnlock()
	if !ok {
		old = opt.Default()
	}
	for _, hook := range hooks {
		if err = hook(opt, old, val); err != nil {
			return
		}
	}

	opts.Lock()
	opts.opts[opt] = append([]byte(nil), val...)
	opts.Unlock()
	return
}

// WithOption set an option value, errors are ignored.
func (opts *options) WithOption(opt Option, val []byte) Options {
	opts.SetOption(opt, val)
	return opts
}

// GetOption get an option value.
func (opts *options) GetOption(opt Option) (val []byte, ok bool) {
	opts.RLock()
	defer opts.RUnlock()
	val, ok = opts.opts[opt]
	return
}

// GetOptionDefault get an option value with default.
func (opts *options) GetOptionDefault(opt Option, def []byte) (val []byte) {
	var ok bool
	if val, ok = opts.GetOption(opt); !ok {
		val = def
	}
	return
}

func (opts *options) OptionValues() (res []*OptionValue) {
	opts.RLock()
	defer opts.RUnlock()

	res = make([]*OptionValue, 0, len(opts.opts))
	for opt, val := range opts.opts {
		res = append(res, &OptionValue{opt, val})
	}
	return
}

// AddOptionChangeHook registers a hook run before every change.
func (opts *options) AddOptionChangeHook(hook OptionChangeHook) {
	opts.Lock()
	opts.hooks = append(opts.hooks, hook)
	opts.Unlock()
}

// Equal reports whether two option values are the same bytes.
func Equal(a, b []byte) bool {
	return bytes.Equal(a, b)
}
