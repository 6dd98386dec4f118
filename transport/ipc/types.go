package ipc

import (
	"github.com/multisocket/spcore/transport"
)

type (
	ipcTran string
)

const (
	// Transport is a transport.Transport for IPC.
	Transport = ipcTran("ipc")
)

func init() {
	transport.Register(Transport)
}

// Scheme implements the Transport Scheme method.
func (t ipcTran) Scheme() string {
	return string(t)
}
