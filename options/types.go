package options

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/multisocket/spcore/errs"
)

// IntSize is the byte size of an integer option value.
const IntSize = 4

type (
	baseOption struct {
		level    int
		id       int
		name     string
		readOnly bool
	}

	// IntOption is option with a 4 byte native-endian integer value.
	IntOption interface {
		Option
		Min() int
		Max() int
		Encode(v int) []byte
		Value(val []byte) int
		ValueFrom(opts Options) int
	}

	intOption struct {
		baseOption
		def      int
		min, max int
	}

	// StringOption is option with a bounded string value.
	StringOption interface {
		Option
		Value(val []byte) string
		ValueFrom(opts Options) string
	}

	stringOption struct {
		baseOption
		def    string
		maxLen int
	}
)

func (o *baseOption) Level() int {
	return o.level
}

func (o *baseOption) ID() int {
	return o.id
}

func (o *baseOption) Name() string {
	return o.name
}

func (o *baseOption) ReadOnly() bool {
	return o.readOnly
}

// EncodeInt encodes v as an integer option value.
func EncodeInt(v int) []byte {
	b := make([]byte, IntSize)
	binary.NativeEndian.PutUint32(b, uint32(int32(v)))
	return b
}

// DecodeInt decodes an integer option value.
func DecodeInt(val []byte) (int, error) {
	if len(val) != IntSize {
		return 0, errs.ErrInvalidOptionValue
	}
	return int(int32(binary.NativeEndian.Uint32(val))), nil
}

// NewIntOption create an int option accepting values in [min, max].
func NewIntOption(level, id int, name string, def, min, max int) IntOption {
	return &intOption{baseOption: baseOption{level: level, id: id, name: name}, def: def, min: min, max: max}
}

// NewReadOnlyIntOption create an int option that can only be read.
func NewReadOnlyIntOption(level, id int, name string) IntOption {
	return &intOption{baseOption: baseOption{level: level, id: id, name: name, readOnly: true}, def: -1, min: math.MinInt32, max: math.MaxInt32}
}

func (o *intOption) Min() int {
	return o.min
}

func (o *intOption) Max() int {
	return o.max
}

func (o *intOption) Default() []byte {
	return EncodeInt(o.def)
}

// Validate validate the option value
func (o *intOption) Validate(val []byte) error {
	v, err := DecodeInt(val)
	if err != nil {
		return err
	}
	if v < o.min || v > o.max {
		return errs.ErrInvalidOptionValue
	}
	return nil
}

func (o *intOption) Encode(v int) []byte {
	return EncodeInt(v)
}

// Value get option's value, val must be valid.
func (o *intOption) Value(val []byte) int {
	v, _ := DecodeInt(val)
	return v
}

// ValueFrom get option's value from opts or the default.
func (o *intOption) ValueFrom(opts Options) int {
	if val, ok := opts.GetOption(o); ok {
		return o.Value(val)
	}
	return o.def
}

// NewStringOption create a string option of at most maxLen bytes.
func NewStringOption(level, id int, name string, def string, maxLen int) StringOption {
	return &stringOption{baseOption: baseOption{level: level, id: id, name: name}, def: def, maxLen: maxLen}
}

func (o *stringOption) Default() []byte {
	return []byte(o.def)
}

// Validate validate the option value
func (o *stringOption) Validate(val []byte) error {
	if len(val) > o.maxLen {
		return errs.ErrInvalidOptionValue
	}
	return nil
}

func (o *stringOption) Value(val []byte) string {
	return string(val)
}

func (o *stringOption) ValueFrom(opts Options) string {
	if val, ok := opts.GetOption(o); ok {
		return string(val)
	}
	return o.def
}

// Encode converts v to the value format of opt. Integer options take int or
// bool values, string options take strings.
func Encode(opt Option, v interface{}) ([]byte, error) {
	switch o := opt.(type) {
	case IntOption:
		switch x := v.(type) {
		case int:
			return o.Encode(x), nil
		case bool:
			if x {
				return o.Encode(1), nil
			}
			return o.Encode(0), nil
		}
	case StringOption:
		if s, ok := v.(string); ok {
			return []byte(s), nil
		}
	default:
		return nil, errs.ErrInvalidOption
	}
	return nil, errs.ErrInvalidOptionValue
}

// Parse converts the text form of a value, as found in addresses and flags.
func Parse(opt Option, s string) ([]byte, error) {
	if _, ok := opt.(IntOption); ok {
		switch s {
		case "true":
			return Encode(opt, true)
		case "false":
			return Encode(opt, false)
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, errs.ErrInvalidOptionValue
		}
		return Encode(opt, v)
	}
	return Encode(opt, s)
}
