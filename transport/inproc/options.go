package inproc

import (
	"math"

	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/transport"
)

// option ids at transport.LevelInproc
const (
	OptionQueueSize = iota + 1
)

type inprocOptions struct {
	QueueSize options.IntOption
}

// Options for inproc
var Options = inprocOptions{
	QueueSize: options.NewIntOption(transport.LevelInproc, OptionQueueSize, "inproc.queue_size", 8, 0, math.MaxInt16),
}

func init() {
	options.RegisterStructuredOptions(Options)
}
