package tcp

import (
	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/transport"
)

// option ids at transport.LevelTCP
const (
	OptionNoDelay = iota + 1
	OptionKeepAlive
)

type tcpOptions struct {
	NoDelay   options.IntOption
	KeepAlive options.IntOption
}

// Options for tcp
var Options = tcpOptions{
	NoDelay:   options.NewIntOption(transport.LevelTCP, OptionNoDelay, "tcp.nodelay", 0, 0, 1),
	KeepAlive: options.NewIntOption(transport.LevelTCP, OptionKeepAlive, "tcp.keepalive", 1, 0, 1),
}

func init() {
	options.RegisterStructuredOptions(Options)
}
