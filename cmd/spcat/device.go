package main

import (
	"github.com/spf13/cobra"

	"github.com/multisocket/spcore"
	"github.com/multisocket/spcore/address"
	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/protocol"
)

var (
	frontAddrs []string
	backAddrs  []string
	reqrep     bool
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Forward messages between two raw sockets",
	Long: `device binds a raw pair socket to every --front address and another one
to every --back address and forwards messages between them. With --reqrep the
front is a raw rep socket facing requesters and the back a raw req socket facing
repliers. Addresses may carry a #dial connect type and options like --addr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		frontProto, backProto := protocol.Pair, protocol.Pair
		if reqrep {
			frontProto, backProto = protocol.Rep, protocol.Req
		}
		front, err := rawSocket(frontProto, frontAddrs)
		if err != nil {
			return err
		}
		defer spcore.Close(front)
		back, err := rawSocket(backProto, backAddrs)
		if err != nil {
			return err
		}
		defer spcore.Close(back)

		terminateOnSignal()
		if err = spcore.Device(front, back); err == errs.ErrTerminating {
			err = nil
		}
		return err
	},
}

func init() {
	deviceCmd.Flags().StringArrayVar(&frontAddrs, "front", nil, "front side address")
	deviceCmd.Flags().StringArrayVar(&backAddrs, "back", nil, "back side address")
	deviceCmd.Flags().BoolVar(&reqrep, "reqrep", false, "forward requests and replies instead of pair messages")
	deviceCmd.MarkFlagRequired("front")
	deviceCmd.MarkFlagRequired("back")
}

func rawSocket(proto int, addrs []string) (int, error) {
	fd, err := spcore.Socket(protocol.AFSPRaw, proto)
	if err != nil {
		return -1, err
	}
	for _, a := range addrs {
		sa, err := address.Parse(a)
		if err == nil {
			_, err = sa.Connect(fd, address.Listen)
		}
		if err != nil {
			spcore.Close(fd)
			return -1, err
		}
	}
	return fd, nil
}
