package ws

import (
	"math"

	"github.com/multisocket/spcore/options"
	"github.com/multisocket/spcore/transport"
)

// option ids at transport.LevelWS
const (
	OptionMsgType = iota + 1
	OptionReadBufferSize
	OptionWriteBufferSize
	OptionCheckOrigin
	OptionPendingSize
)

// message types
const (
	MsgText   = 1
	MsgBinary = 2
)

type wsOptions struct {
	MsgType         options.IntOption
	ReadBufferSize  options.IntOption
	WriteBufferSize options.IntOption
	CheckOrigin     options.IntOption
	PendingSize     options.IntOption
}

// Options for websocket
var Options = wsOptions{
	MsgType:         options.NewIntOption(transport.LevelWS, OptionMsgType, "ws.msg_type", MsgBinary, MsgText, MsgBinary),
	ReadBufferSize:  options.NewIntOption(transport.LevelWS, OptionReadBufferSize, "ws.read_buffer_size", 4*1024, 0, math.MaxInt32),
	WriteBufferSize: options.NewIntOption(transport.LevelWS, OptionWriteBufferSize, "ws.write_buffer_size", 4*1024, 0, math.MaxInt32),
	CheckOrigin:     options.NewIntOption(transport.LevelWS, OptionCheckOrigin, "ws.check_origin", 0, 0, 1),
	PendingSize:     options.NewIntOption(transport.LevelWS, OptionPendingSize, "ws.pending_size", 16, 0, math.MaxInt16),
}

func init() {
	options.RegisterStructuredOptions(Options)
}
