// Package transport defines the connection plumbing below pipes and keeps the
// registry of transports by address scheme.
package transport

import (
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/multisocket/spcore/errs"
)

const schemeSep = "://"

// SplitAddress splits "scheme://rest", scheme is empty when addr has none.
func SplitAddress(addr string) (scheme, rest string) {
	i := strings.Index(addr, schemeSep)
	if i < 0 {
		return "", addr
	}
	return addr[:i], addr[i+len(schemeSep):]
}

// SchemeOf returns the scheme of addr.
func SchemeOf(addr string) string {
	scheme, _ := SplitAddress(addr)
	return scheme
}

// StripScheme returns addr without the scheme of t, errs.ErrBadTransport when
// addr belongs to another transport.
func StripScheme(t Transport, addr string) (string, error) {
	scheme, rest := SplitAddress(addr)
	if scheme != t.Scheme() {
		return addr, errs.ErrBadTransport
	}
	return rest, nil
}

// ResolveTCPAddr resolves a TCP address, a leading "*" binds all interfaces.
func ResolveTCPAddr(network, addr string) (*net.TCPAddr, error) {
	return net.ResolveTCPAddr(network, strings.TrimPrefix(addr, "*"))
}

// Registry maps address schemes to transports.
type Registry struct {
	mu       sync.RWMutex
	byScheme map[string]Transport
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byScheme: make(map[string]Transport)}
}

// Register adds t, replacing any transport registered for the same scheme.
func (r *Registry) Register(t Transport) {
	r.mu.Lock()
	r.byScheme[t.Scheme()] = t
	r.mu.Unlock()
}

// Lookup finds the transport serving addr.
func (r *Registry) Lookup(addr string) (Transport, error) {
	r.mu.RLock()
	t, ok := r.byScheme[SchemeOf(addr)]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.ErrBadTransport
	}
	return t, nil
}

// Schemes returns the registered schemes in order.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	ss := make([]string, 0, len(r.byScheme))
	for s := range r.byScheme {
		ss = append(ss, s)
	}
	r.mu.RUnlock()
	sort.Strings(ss)
	return ss
}

// Default is the process-wide registry, transports add themselves from init.
var Default = NewRegistry()

// Register adds t to the default registry.
func Register(t Transport) {
	Default.Register(t)
}

// Lookup finds the transport serving addr in the default registry.
func Lookup(addr string) (Transport, error) {
	return Default.Lookup(addr)
}
