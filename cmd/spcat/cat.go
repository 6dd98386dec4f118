package main

import (
	"fmt"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/multisocket/spcore"
	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/protocol"
)

var (
	data     string
	dataFile string
	interval time.Duration
	count    int
	format   string
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Send messages on a push socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(protocol.Push, true, false, cmd.OutOrStdout())
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Print messages received on a pull socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(protocol.Pull, false, true, cmd.OutOrStdout())
	},
}

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Send and print messages on a pair socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(protocol.Pair, data != "" || dataFile != "", true, cmd.OutOrStdout())
	},
}

var reqCmd = &cobra.Command{
	Use:   "req",
	Short: "Send requests on a req socket and print the replies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exchange(protocol.Req, requestLoop, cmd.OutOrStdout())
	},
}

var repCmd = &cobra.Command{
	Use:   "rep",
	Short: "Print requests received on a rep socket and answer them",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exchange(protocol.Rep, replyLoop, cmd.OutOrStdout())
	},
}

func init() {
	for _, c := range []*cobra.Command{pushCmd, pairCmd, reqCmd, repCmd} {
		c.Flags().StringVarP(&data, "data", "D", "", "message body")
		c.Flags().StringVarP(&dataFile, "file", "F", "", "read the message body from a file, - for stdin")
		c.Flags().DurationVarP(&interval, "interval", "i", 0, "send the message repeatedly at this interval")
	}
	for _, c := range []*cobra.Command{pushCmd, pullCmd, pairCmd, reqCmd, repCmd} {
		c.Flags().IntVarP(&count, "count", "n", 0, "stop after this many messages, 0 means no limit")
	}
	for _, c := range []*cobra.Command{pullCmd, pairCmd, reqCmd, repCmd} {
		c.Flags().StringVarP(&format, "format", "f", "ascii", "output format: raw, ascii, quoted or hex")
	}
}

func body() ([]byte, error) {
	switch dataFile {
	case "":
		return []byte(data), nil
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(dataFile)
	}
}

func run(proto int, send, recv bool, w io.Writer) error {
	var (
		b   []byte
		err error
	)
	if send {
		if b, err = body(); err != nil {
			return err
		}
	}
	if recv {
		if _, err = formatter(format); err != nil {
			return err
		}
	}

	fd, err := openSocket(protocol.AFSP, proto)
	if err != nil {
		return err
	}
	defer spcore.Close(fd)
	terminateOnSignal()

	errc := make(chan error, 2)
	n := 0
	if send {
		n++
		go func() { errc <- sendLoop(fd, b) }()
	}
	if recv {
		n++
		go func() { errc <- recvLoop(fd, w) }()
	}

	for ; n > 0; n-- {
		if err = <-errc; err != nil {
			// the other loop is blocked, wake it
			spcore.Term()
			if err == errs.ErrTerminating {
				err = nil
			}
			break
		}
	}
	return err
}

func sendLoop(fd int, b []byte) error {
	for i := 0; count == 0 || i < count; i++ {
		if err := spcore.SendBytes(fd, b, 0); err != nil {
			return err
		}
		log.WithFields(log.Fields{"fd": fd, "size": len(b)}).Debug("sent")
		if interval <= 0 {
			if count == 0 {
				return nil
			}
			continue
		}
		time.Sleep(interval)
	}
	return nil
}

func recvLoop(fd int, w io.Writer) error {
	f, _ := formatter(format)
	for i := 0; count == 0 || i < count; i++ {
		b, err := spcore.RecvBytes(fd, 0)
		if err != nil {
			if err == errs.ErrTimeout {
				return fmt.Errorf("receive: %w", err)
			}
			return err
		}
		if err = f(w, b); err != nil {
			return err
		}
	}
	return nil
}

// exchange runs a request/reply loop on a new socket of proto.
func exchange(proto int, loop func(fd int, b []byte, w io.Writer) error, w io.Writer) error {
	b, err := body()
	if err != nil {
		return err
	}
	if _, err = formatter(format); err != nil {
		return err
	}

	fd, err := openSocket(protocol.AFSP, proto)
	if err != nil {
		return err
	}
	defer spcore.Close(fd)
	terminateOnSignal()

	if err = loop(fd, b, w); err == errs.ErrTerminating {
		err = nil
	}
	return err
}

func requestLoop(fd int, b []byte, w io.Writer) error {
	f, _ := formatter(format)
	for i := 0; count == 0 || i < count; i++ {
		if err := spcore.SendBytes(fd, b, 0); err != nil {
			return err
		}
		reply, err := spcore.RecvBytes(fd, 0)
		if err != nil {
			return fmt.Errorf("receive reply: %w", err)
		}
		if err = f(w, reply); err != nil {
			return err
		}
		if interval > 0 {
			time.Sleep(interval)
		}
	}
	return nil
}

func replyLoop(fd int, b []byte, w io.Writer) error {
	f, _ := formatter(format)
	for i := 0; count == 0 || i < count; i++ {
		req, err := spcore.RecvBytes(fd, 0)
		if err != nil {
			return err
		}
		if err = f(w, req); err != nil {
			return err
		}
		if err = spcore.SendBytes(fd, b, 0); err != nil {
			return err
		}
	}
	return nil
}
