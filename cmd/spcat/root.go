package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/multisocket/spcore"
	"github.com/multisocket/spcore/address"
	"github.com/multisocket/spcore/config"
	"github.com/multisocket/spcore/options"
	_ "github.com/multisocket/spcore/protocol/pair"
	_ "github.com/multisocket/spcore/protocol/pipeline"
	_ "github.com/multisocket/spcore/protocol/reqrep"
	"github.com/multisocket/spcore/socket"
	_ "github.com/multisocket/spcore/transport/all"
)

var (
	cfgFile     string
	profileName string
	verbose     int
	binds       []string
	connects    []string
	addrs       []string
	sendTimeout int
	recvTimeout int
	linger      int
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "spcat",
	Short: "Send and receive messages over scalability-protocol sockets",
	Long: `spcat opens one socket, binds and connects it to the given addresses and
then sends, receives or forwards messages until interrupted.

Addresses given with --addr carry their connect type and options, for example
tcp://127.0.0.1:5555?sndbuf=65536#listen.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		log.SetOutput(os.Stderr)
		switch {
		case verbose >= 3:
			log.SetLevel(log.TraceLevel)
		case verbose == 2:
			log.SetLevel(log.DebugLevel)
		case verbose == 1:
			log.SetLevel(log.InfoLevel)
		default:
			log.SetLevel(log.WarnLevel)
		}
		if metricsAddr != "" {
			serveMetrics(metricsAddr)
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML file with option profiles")
	pf.StringVar(&profileName, "profile", "", "option profile applied to the socket")
	pf.CountVarP(&verbose, "verbose", "v", "increase log verbosity")
	pf.StringArrayVarP(&binds, "bind", "b", nil, "bind to the address")
	pf.StringArrayVarP(&connects, "connect", "c", nil, "connect to the address")
	pf.StringArrayVar(&addrs, "addr", nil, "address with connect type and options")
	pf.IntVar(&sendTimeout, "send-timeout", -1, "send timeout in milliseconds, -1 waits forever")
	pf.IntVar(&recvTimeout, "recv-timeout", -1, "receive timeout in milliseconds, -1 waits forever")
	pf.IntVar(&linger, "linger", 1000, "milliseconds to wait for queued messages on close")
	pf.StringVar(&metricsAddr, "metrics", "", "serve prometheus metrics on this address")

	rootCmd.AddCommand(pushCmd, pullCmd, pairCmd, reqCmd, repCmd, deviceCmd, perfCmd)
}

func serveMetrics(addr string) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(spcore.Collector{})
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		log.WithField("addr", addr).Info("metrics listening")
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Error("metrics")
		}
	}()
}

// fdSetter applies option profiles to a socket handle.
type fdSetter int

func (fd fdSetter) SetOption(level, id int, val []byte) error {
	return spcore.SetSockOpt(int(fd), level, id, val)
}

// openSocket creates a socket, configures it and attaches its endpoints.
func openSocket(domain, proto int) (int, error) {
	fd, err := spcore.Socket(domain, proto)
	if err != nil {
		return -1, err
	}
	if err = configure(fd); err != nil {
		spcore.Close(fd)
		return -1, err
	}
	return fd, nil
}

func configure(fd int) error {
	for id, v := range map[int]int{
		socket.OptionSendTimeout: sendTimeout,
		socket.OptionRecvTimeout: recvTimeout,
		socket.OptionLinger:      linger,
	} {
		if err := spcore.SetSockOptInt(fd, options.LevelSocket, id, v); err != nil {
			return err
		}
	}

	if profileName != "" {
		if cfgFile == "" {
			return fmt.Errorf("--profile needs --config")
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		p, err := cfg.Profile(profileName)
		if err != nil {
			return err
		}
		if err = p.Apply(fdSetter(fd)); err != nil {
			return err
		}
	}

	if len(binds)+len(connects)+len(addrs) == 0 {
		return fmt.Errorf("no address, use --bind, --connect or --addr")
	}
	for _, a := range binds {
		if _, err := spcore.Bind(fd, a); err != nil {
			return fmt.Errorf("bind %s: %w", a, err)
		}
	}
	for _, a := range connects {
		if _, err := spcore.Connect(fd, a); err != nil {
			return fmt.Errorf("connect %s: %w", a, err)
		}
	}
	for _, a := range addrs {
		sa, err := address.Parse(a)
		if err != nil {
			return fmt.Errorf("%s: %w", a, err)
		}
		if _, err = sa.Connect(fd, address.Dial); err != nil {
			return fmt.Errorf("%s: %w", a, err)
		}
	}
	return nil
}

// terminateOnSignal stops every socket on SIGINT or SIGTERM so blocked calls return.
func terminateOnSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-c
		log.WithField("signal", s.String()).Info("signal")
		spcore.Term()
	}()
}
