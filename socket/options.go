package socket

import (
	"math"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/options"
)

// generic option ids
const (
	OptionLinger = iota + 1
	OptionSendBuffer
	OptionRecvBuffer
	OptionSendTimeout
	OptionRecvTimeout
	OptionReconnectInterval
	OptionReconnectIntervalMax
	OptionSendPriority
	OptionRecvPriority
	OptionSendFd
	OptionRecvFd
	OptionDomain
	OptionProtocol
	OptionIPv4Only
	OptionSocketName
	OptionRecvMaxSize
)

// MaxSocketNameLen is the maximum byte length of the socket name.
const MaxSocketNameLen = 63

type socketOptions struct {
	Linger               options.IntOption
	SendBuffer           options.IntOption
	RecvBuffer           options.IntOption
	SendTimeout          options.IntOption
	RecvTimeout          options.IntOption
	ReconnectInterval    options.IntOption
	ReconnectIntervalMax options.IntOption
	SendPriority         options.IntOption
	RecvPriority         options.IntOption
	SendFd               options.IntOption
	RecvFd               options.IntOption
	Domain               options.IntOption
	Protocol             options.IntOption
	IPv4Only             options.IntOption
	SocketName           options.StringOption
	RecvMaxSize          options.IntOption
}

// Options are the generic socket options at options.LevelSocket.
var Options = socketOptions{
	Linger:               options.NewIntOption(options.LevelSocket, OptionLinger, "linger", 1000, -1, math.MaxInt32),
	SendBuffer:           options.NewIntOption(options.LevelSocket, OptionSendBuffer, "sndbuf", 128*1024, 1, math.MaxInt32),
	RecvBuffer:           options.NewIntOption(options.LevelSocket, OptionRecvBuffer, "rcvbuf", 128*1024, 1, math.MaxInt32),
	SendTimeout:          options.NewIntOption(options.LevelSocket, OptionSendTimeout, "sndtimeo", -1, -1, math.MaxInt32),
	RecvTimeout:          options.NewIntOption(options.LevelSocket, OptionRecvTimeout, "rcvtimeo", -1, -1, math.MaxInt32),
	ReconnectInterval:    options.NewIntOption(options.LevelSocket, OptionReconnectInterval, "reconnect_ivl", 100, 0, math.MaxInt32),
	ReconnectIntervalMax: options.NewIntOption(options.LevelSocket, OptionReconnectIntervalMax, "reconnect_ivl_max", 0, 0, math.MaxInt32),
	SendPriority:         options.NewIntOption(options.LevelSocket, OptionSendPriority, "sndprio", 8, 1, 16),
	RecvPriority:         options.NewIntOption(options.LevelSocket, OptionRecvPriority, "rcvprio", 8, 1, 16),
	SendFd:               options.NewReadOnlyIntOption(options.LevelSocket, OptionSendFd, "sndfd"),
	RecvFd:               options.NewReadOnlyIntOption(options.LevelSocket, OptionRecvFd, "rcvfd"),
	Domain:               options.NewReadOnlyIntOption(options.LevelSocket, OptionDomain, "domain"),
	Protocol:             options.NewReadOnlyIntOption(options.LevelSocket, OptionProtocol, "protocol"),
	IPv4Only:             options.NewIntOption(options.LevelSocket, OptionIPv4Only, "ipv4only", 1, 0, 1),
	SocketName:           options.NewStringOption(options.LevelSocket, OptionSocketName, "socket_name", "", MaxSocketNameLen),
	RecvMaxSize:          options.NewIntOption(options.LevelSocket, OptionRecvMaxSize, "rcvmaxsize", 1024*1024, -1, math.MaxInt32),
}

func init() {
	options.RegisterStructuredOptions(Options)
}

// EndpointOptions is the option snapshot an endpoint takes when created.
type EndpointOptions struct {
	SendBuffer           int
	RecvBuffer           int
	RecvMaxSize          int
	ReconnectInterval    int
	ReconnectIntervalMax int
	SendPriority         int
	RecvPriority         int
	IPv4Only             bool
}

// checkReconnect keeps reconnect_ivl <= reconnect_ivl_max unless the max is 0.
func checkReconnect(opts options.Options) options.OptionChangeHook {
	return func(opt options.Option, oldVal, newVal []byte) error {
		switch opt {
		case Options.ReconnectInterval:
			ivl := Options.ReconnectInterval.Value(newVal)
			if max := Options.ReconnectIntervalMax.ValueFrom(opts); max != 0 && ivl > max {
				return errs.ErrInvalidOptionValue
			}
		case Options.ReconnectIntervalMax:
			max := Options.ReconnectIntervalMax.Value(newVal)
			if ivl := Options.ReconnectInterval.ValueFrom(opts); max != 0 && max < ivl {
				return errs.ErrInvalidOptionValue
			}
		}
		return nil
	}
}
