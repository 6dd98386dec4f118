package main

import (
	"fmt"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/multisocket/spcore"
	"github.com/multisocket/spcore/message"
	"github.com/multisocket/spcore/protocol"
	"github.com/multisocket/spcore/transport"
	"github.com/multisocket/spcore/transport/tcp"
)

var perfCmd = &cobra.Command{
	Use:   "perf",
	Short: "Measure throughput and latency, compatible with the nanomsg perf tools",
}

type perfArgs struct {
	addr  string
	size  int
	count int
}

func parsePerfArgs(args []string) (a perfArgs, err error) {
	a.addr = args[0]
	if a.size, err = strconv.Atoi(args[1]); err != nil || a.size < 0 {
		return a, fmt.Errorf("bad message size %q", args[1])
	}
	if a.count, err = strconv.Atoi(args[2]); err != nil || a.count <= 0 {
		return a, fmt.Errorf("bad count %q", args[2])
	}
	return a, nil
}

func perfCommand(use, short string, fn func(perfArgs) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <addr> <size> <count>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := parsePerfArgs(args)
			if err != nil {
				return err
			}
			return fn(a)
		},
	}
}

func init() {
	perfCmd.AddCommand(
		perfCommand("local-thr", "Count messages received on a bound pull socket", localThr),
		perfCommand("remote-thr", "Send messages on a connected push socket", remoteThr),
		perfCommand("local-lat", "Echo requests on a bound rep socket", localLat),
		perfCommand("remote-lat", "Measure round trips on a connected req socket", remoteLat),
	)
}

// perfSocket opens a socket with TCP no delay set and attaches it to addr.
func perfSocket(proto int, addr string, bind bool) (int, error) {
	fd, err := spcore.Socket(protocol.AFSP, proto)
	if err != nil {
		return -1, err
	}
	if transport.SchemeOf(addr) == "tcp" {
		if err = spcore.SetSockOptInt(fd, transport.LevelTCP, tcp.OptionNoDelay, 1); err != nil {
			spcore.Close(fd)
			return -1, err
		}
	}
	if bind {
		_, err = spcore.Bind(fd, addr)
	} else {
		_, err = spcore.Connect(fd, addr)
	}
	if err != nil {
		spcore.Close(fd)
		return -1, err
	}
	return fd, nil
}

func localThr(a perfArgs) error {
	fd, err := perfSocket(protocol.Pull, a.addr, true)
	if err != nil {
		return err
	}
	defer spcore.Close(fd)

	// start marker
	msg, err := spcore.Recv(fd, 0)
	if err != nil {
		return err
	}
	msg.Free()

	start := time.Now()
	for i := 0; i < a.count; i++ {
		if msg, err = spcore.Recv(fd, 0); err != nil {
			return err
		}
		if len(msg.Body) != a.size {
			return fmt.Errorf("received wrong message size: %d != %d", len(msg.Body), a.size)
		}
		msg.Free()
	}
	secs := time.Since(start).Seconds()

	fmt.Printf("message size: %d [B]\n", a.size)
	fmt.Printf("message count: %d\n", a.count)
	fmt.Printf("throughput: %d [msg/s]\n", uint64(float64(a.count)/secs))
	fmt.Printf("throughput: %.3f [Mb/s]\n", float64(a.count*8*a.size)/secs/1e6)
	return nil
}

func remoteThr(a perfArgs) error {
	fd, err := perfSocket(protocol.Push, a.addr, false)
	if err != nil {
		return err
	}
	defer spcore.Close(fd)

	content := make([]byte, a.size)
	for i := range content {
		content[i] = 111
	}
	if err = spcore.SendBytes(fd, nil, 0); err != nil {
		return err
	}
	for i := 0; i < a.count; i++ {
		if err = spcore.Send(fd, message.NewWithContent(content), 0); err != nil {
			return err
		}
	}
	log.WithField("count", a.count).Info("sent")
	return nil
}

func localLat(a perfArgs) error {
	fd, err := perfSocket(protocol.Rep, a.addr, true)
	if err != nil {
		return err
	}
	defer spcore.Close(fd)

	for i := 0; i < a.count; i++ {
		msg, err := spcore.Recv(fd, 0)
		if err != nil {
			return err
		}
		if len(msg.Body) != a.size {
			return fmt.Errorf("received wrong message size: %d != %d", len(msg.Body), a.size)
		}
		if err = spcore.Send(fd, msg, 0); err != nil {
			msg.Free()
			return err
		}
	}
	return nil
}

func remoteLat(a perfArgs) error {
	fd, err := perfSocket(protocol.Req, a.addr, false)
	if err != nil {
		return err
	}
	defer spcore.Close(fd)

	content := make([]byte, a.size)
	var total time.Duration
	for i := 0; i < a.count; i++ {
		start := time.Now()
		if err = spcore.SendBytes(fd, content, 0); err != nil {
			return err
		}
		msg, err := spcore.Recv(fd, 0)
		if err != nil {
			return err
		}
		total += time.Since(start)
		msg.Free()
	}

	fmt.Printf("message size: %d [B]\n", a.size)
	fmt.Printf("round trip count: %d\n", a.count)
	fmt.Printf("average RTT: %.3f [us]\n", float64(total/time.Microsecond)/float64(a.count))
	return nil
}
