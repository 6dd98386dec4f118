package socket

import (
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/spcore/errs"
)

// AddEndpoint adds ep to the socket and returns its endpoint id.
func (s *Socket) AddEndpoint(ep Endpoint) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateActive {
		return -1, errs.ErrTerminating
	}
	s.nextEid++
	eid := s.nextEid
	s.eps = append(s.eps, endpointEntry{id: eid, ep: ep})
	s.stats.Set(StatCurrentEndpoints, len(s.eps))

	log.WithField("domain", "socket").
		WithFields(log.Fields{"fd": s.fd, "eid": eid, "address": ep.Address()}).
		Debug("add endpoint")
	return eid, nil
}

// RmEndpoint removes and closes an endpoint.
func (s *Socket) RmEndpoint(eid int) error {
	s.mu.Lock()
	var ep Endpoint
	for i, e := range s.eps {
		if e.id == eid {
			ep = e.ep
			s.eps = append(s.eps[:i:i], s.eps[i+1:]...)
			break
		}
	}
	s.stats.Set(StatCurrentEndpoints, len(s.eps))
	s.cond.Broadcast()
	s.mu.Unlock()

	if ep == nil {
		return errs.ErrBadEndpoint
	}
	log.WithField("domain", "socket").
		WithFields(log.Fields{"fd": s.fd, "eid": eid}).
		Debug("remove endpoint")
	return ep.Close()
}

// Endpoints returns the endpoints ordered by id.
func (s *Socket) Endpoints() []EndpointInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]EndpointInfo, len(s.eps))
	for i, e := range s.eps {
		infos[i] = EndpointInfo{ID: e.id, Address: e.ep.Address()}
	}
	return infos
}

// EndpointOptions snapshots the options a new endpoint uses.
func (s *Socket) EndpointOptions() EndpointOptions {
	return EndpointOptions{
		SendBuffer:           Options.SendBuffer.ValueFrom(s.opts),
		RecvBuffer:           Options.RecvBuffer.ValueFrom(s.opts),
		RecvMaxSize:          Options.RecvMaxSize.ValueFrom(s.opts),
		ReconnectInterval:    Options.ReconnectInterval.ValueFrom(s.opts),
		ReconnectIntervalMax: Options.ReconnectIntervalMax.ValueFrom(s.opts),
		SendPriority:         Options.SendPriority.ValueFrom(s.opts),
		RecvPriority:         Options.RecvPriority.ValueFrom(s.opts),
		IPv4Only:             Options.IPv4Only.ValueFrom(s.opts) == 1,
	}
}
