/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package portal

import (
	"sync"

	"github.com/wenbinhou/xcp/internal/identity"
	"github.com/wenbinhou/xcp/internal/metrics"
	"github.com/wenbinhou/xcp/internal/userhome"
	"github.com/wenbinhou/xcp/internal/wire"
	"github.com/wenbinhou/xcp/internal/xlog"
	"github.com/wenbinhou/xcp/internal/xsocket"
)

// ChannelListener is one bound channel-listening socket together with the
// multiplicity the server advertises for it in SERVER_INFORMATION.
type ChannelListener struct {
	Listener     *xsocket.Listener
	Multiplicity uint64
}

// Server is the server-portal state (spec.md §3 "Server-portal state"):
// the portal listener, every channel listener, and the identity → instance
// map guarded by a reader/writer lock.
type Server struct {
	log xlog.Logger

	portalListener *xsocket.Listener
	// portalChannelMultiplicity is non-zero when the portal listener also
	// accepts CHANNEL-role connections (the "reuse portal as channel"
	// mode, signaled by a non-zero requested multiplicity on -p's @n).
	portalChannelMultiplicity uint64
	channels                  []ChannelListener

	mu      sync.RWMutex
	clients map[identity.Identity]*ClientInstance

	closing sync.Once

	// metrics is optional: nil means the deployment did not enable
	// -metrics-addr and every recording call below is a no-op guard.
	metrics *metrics.Collectors
}

// WithMetrics enables Prometheus instrumentation for every client instance
// this server handles from this point on.
func (s *Server) WithMetrics(c *metrics.Collectors) *Server {
	s.metrics = c
	return s
}

// NewServer wires a bound portal listener and every channel listener
// together into a Server ready to Run.
func NewServer(portalListener *xsocket.Listener, portalChannelMultiplicity uint64, channels []ChannelListener, log xlog.Logger) *Server {
	return &Server{
		log:                       log,
		portalListener:            portalListener,
		portalChannelMultiplicity: portalChannelMultiplicity,
		channels:                  channels,
		clients:                   make(map[identity.Identity]*ClientInstance),
	}
}

// advertisedChannels builds the SERVER_INFORMATION payload: every channel
// listener's bound address and multiplicity, plus the portal's own address
// when it is also accepting channels.
func (s *Server) advertisedChannels() []wire.ChannelEndpoint {
	out := make([]wire.ChannelEndpoint, 0, len(s.channels)+1)
	if s.portalChannelMultiplicity > 0 {
		out = append(out, wire.ChannelEndpoint{Address: s.portalListener.Addr().String(), Multiplicity: s.portalChannelMultiplicity})
	}
	for _, ch := range s.channels {
		out = append(out, wire.ChannelEndpoint{Address: ch.Listener.Addr().String(), Multiplicity: ch.Multiplicity})
	}
	return out
}

func (s *Server) totalChannelMultiplicity() int {
	total := s.portalChannelMultiplicity
	for _, ch := range s.channels {
		total += ch.Multiplicity
	}
	return int(total)
}

// Run accepts on the portal listener and every channel listener until they
// are closed, dispatching each accepted connection to handleConn. It
// returns once every listener's accept loop has exited.
func (s *Server) Run() {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		allowChannel := s.portalChannelMultiplicity > 0
		s.acceptLoop(s.portalListener, allowChannel)
	}()

	for _, ch := range s.channels {
		ch := ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.acceptLoop(ch.Listener, true)
		}()
	}

	wg.Wait()
}

// Close closes every listener, unblocking Run's accept loops, and tears
// down every client instance still connected.
func (s *Server) Close() {
	s.closing.Do(func() {
		_ = s.portalListener.Close()
		for _, ch := range s.channels {
			_ = ch.Listener.Close()
		}

		s.mu.Lock()
		clients := s.clients
		s.clients = nil
		s.mu.Unlock()

		for _, ci := range clients {
			ci.dispose()
		}
	})
}

func (s *Server) acceptLoop(ln *xsocket.Listener, allowChannel bool) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn, allowChannel)
	}
}

// handleConn is the unified accept dispatcher (spec.md §4.4 "Server accept
// dispatcher"): read greeting, validate role, read identity, then route to
// portal-handling or channel-handling.
func (s *Server) handleConn(conn *xsocket.Conn, allowChannel bool) {
	role, err := readGreetingHeader(conn)
	if err != nil {
		s.log.Warning("portal: rejecting connection", map[string]any{"error": err.Error()})
		_ = conn.Close()
		return
	}

	switch role {
	case wire.RolePortal:
		id, err := readIdentity(conn)
		if err != nil {
			_ = conn.Close()
			return
		}
		s.handlePortal(conn, id)

	case wire.RoleChannel:
		if !allowChannel {
			_ = conn.Close()
			return
		}
		id, err := readIdentity(conn)
		if err != nil {
			_ = conn.Close()
			return
		}
		s.handleChannel(conn, id)

	default:
		_ = conn.Close()
	}
}

func (s *Server) handlePortal(conn *xsocket.Conn, id identity.Identity) {
	s.mu.Lock()
	if s.clients == nil {
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	ci := newClientInstance(id, conn, s.totalChannelMultiplicity(), s.log)
	ci.metrics = s.metrics
	s.clients[id] = ci
	s.mu.Unlock()

	err := ci.runPortal(s.advertisedChannels(), userhome.Resolve)
	if err != nil {
		s.log.Warning("portal: client transfer failed", map[string]any{"client": id.String(), "error": err.Error()})
	}
	if s.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		s.metrics.TransfersCompleted.WithLabelValues(outcome).Inc()
	}

	s.mu.Lock()
	if s.clients != nil {
		delete(s.clients, id)
	}
	s.mu.Unlock()
}

func (s *Server) handleChannel(conn *xsocket.Conn, id identity.Identity) {
	s.mu.RLock()
	ci, found := s.clients[id]
	s.mu.RUnlock()
	if !found {
		_ = conn.Close()
		return
	}

	if ok := ci.attachChannel(conn); !ok {
		_ = conn.Close()
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveChannels.Inc()
		defer s.metrics.ActiveChannels.Dec()
	}

	ci.runChannel(conn)
}
