// Package protocol maps (domain, protocol) pairs to socket types.
//
// Protocol packages register their types from init; sockets are created
// through the registry under a single creation lock.
package protocol

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
	"github.com/multisocket/spcore/socket"
)

// domains
const (
	AFSP    = 1
	AFSPRaw = 2
)

// protocol ids, the high 12 bits identify the family.
const (
	Pair = 1*16 + 0
	Push = 5*16 + 0
	Pull = 5*16 + 1
	Req  = 3*16 + 0
	Rep  = 3*16 + 1
)

type key struct {
	domain   int
	protocol int
}

// Registry holds socket types.
type Registry struct {
	mu    sync.Mutex
	types map[key]*socket.Type

	// creating serializes socket construction, factories may use the registry.
	creating sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[key]*socket.Type)}
}

// Register adds a socket type, a pair can only be registered once.
func (r *Registry) Register(t *socket.Type) error {
	if t == nil || t.Create == nil {
		return errs.ErrInvalidArgument
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{t.Domain, t.Protocol}
	if _, ok := r.types[k]; ok {
		return errs.ErrDuplicateType
	}
	r.types[k] = t

	log.WithField("domain", "protocol").
		WithFields(log.Fields{"sockDomain": t.Domain, "protocol": t.Protocol, "name": t.Name}).
		Debug("register socket type")
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(t *socket.Type) {
	if err := r.Register(t); err != nil {
		panic(fmt.Sprintf("register %s (%d, %d): %v", t.Name, t.Domain, t.Protocol, err))
	}
}

// Lookup finds a socket type.
func (r *Registry) Lookup(domain, protocol int) (*socket.Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.types[key{domain, protocol}]
	return t, ok
}

// Types returns all registered types.
func (r *Registry) Types() []*socket.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts := make([]*socket.Type, 0, len(r.types))
	for _, t := range r.types {
		ts = append(ts, t)
	}
	return ts
}

// Create constructs a socket of the registered type. Constructions are
// serialized by a creation lock distinct from the type table.
func (r *Registry) Create(domain, protocol, fd int) (*socket.Socket, error) {
	r.creating.Lock()
	defer r.creating.Unlock()
	t, ok := r.Lookup(domain, protocol)
	if !ok {
		return nil, errs.ErrProtocolNotSupported
	}
	return socket.New(t, fd)
}

// Default is the process-wide registry.
var Default = NewRegistry()

// Register adds t to the default registry.
func Register(t *socket.Type) error {
	return Default.Register(t)
}

// MustRegister adds t to the default registry and panics on error.
func MustRegister(t *socket.Type) {
	Default.MustRegister(t)
}

// Create creates a socket from the default registry.
func Create(domain, protocol, fd int) (*socket.Socket, error) {
	return Default.Create(domain, protocol, fd)
}
