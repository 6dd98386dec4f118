package ipc

import (
	"math"

	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/transport"
)

// option ids at transport.LevelIPC, only named pipes on Windows use them.
const (
	OptionSecurityDescriptor = iota + 1
	OptionOutputBufferSize
	OptionInputBufferSize
)

type ipcOptions struct {
	// SecurityDescriptor is a Windows security descriptor in SDDL format.
	SecurityDescriptor options.StringOption
	OutputBufferSize   options.IntOption
	InputBufferSize    options.IntOption
}

// Options for ipc
var Options = ipcOptions{
	SecurityDescriptor: options.NewStringOption(transport.LevelIPC, OptionSecurityDescriptor, "ipc.sec_attr", "", 1024),
	OutputBufferSize:   options.NewIntOption(transport.LevelIPC, OptionOutputBufferSize, "ipc.outbufsz", 4096, 1, math.MaxInt32),
	InputBufferSize:    options.NewIntOption(transport.LevelIPC, OptionInputBufferSize, "ipc.inbufsz", 4096, 1, math.MaxInt32),
}

func init() {
	options.RegisterStructuredOptions(Options)
}
