// Package proxy implements the loopback HTTP surface: raw pass-through
// fetching, resolve-then-stream playback and server statistics.
package proxy

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/vidgate/vidgate/access"
	"github.com/vidgate/vidgate/bandwidth"
	"github.com/vidgate/vidgate/cache"
	"github.com/vidgate/vidgate/log"
	"github.com/vidgate/vidgate/resolver"
	"github.com/vidgate/vidgate/rule"
)

// Options wires the server's collaborators. Nil collaborators disable the
// corresponding concern: no guard allows every peer, no limiter means
// unthrottled transfers.
type Options struct {
	Guard   *access.Guard
	Limiter *bandwidth.Limiter
	Rules   *rule.Engine
	Chain   *resolver.Chain
	Streams *cache.Store[resolver.Media]

	// MaxConnections sheds accepted sockets beyond this many concurrent
	// handlers. Non-positive means unlimited.
	MaxConnections int
}

// Server owns the listening socket and the connection registry.
type Server struct {
	opts Options

	mu       sync.Mutex
	listener net.Listener
	conns    map[uint64]net.Conn
	stopped  bool

	nextID atomic.Uint64

	active   atomic.Int64
	total    atomic.Uint64
	rejected atomic.Uint64
}

// NewServer constructs a stopped server.
func NewServer(opts Options) *Server {
	return &Server{
		opts:  opts,
		conns: make(map[uint64]net.Conn),
	}
}

// Start binds the loopback listener and launches the accept loop. A
// preferred port of 0 picks any free port. The bound port is returned.
func (s *Server) Start(preferredPort int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return 0, fmt.Errorf("proxy: already started")
	}

	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(preferredPort)))
	if err != nil {
		return 0, err
	}

	s.listener = listener
	s.stopped = false
	go s.acceptLoop(listener)

	port := listener.Addr().(*net.TCPAddr).Port
	log.Infof("proxy: listening on 127.0.0.1:%d", port)
	return port, nil
}

// Stop closes the listener and every open connection. Safe to call more
// than once and before Start.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.stopped = true

	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}

	for id, sock := range s.conns {
		_ = sock.Close()
		delete(s.conns, id)
	}
}

// Port returns the bound port, or 0 when the server is not running.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// PlayerOptions tune a PlayerURL.
type PlayerOptions struct {
	Cache     bool
	Range     bool
	UserAgent string
}

// PlayerURL returns the externally dialable loopback URL that plays the
// original URL through this server.
func (s *Server) PlayerURL(original string, opts PlayerOptions) string {
	values := url.Values{}
	values.Set("url", original)
	if opts.Cache {
		values.Set("cache", "1")
	}
	if opts.Range {
		values.Set("range", "1")
	}
	if opts.UserAgent != "" {
		values.Set("ua", opts.UserAgent)
	}

	return fmt.Sprintf("http://127.0.0.1:%d/player?%s", s.Port(), values.Encode())
}

// Stats is the counters snapshot served by the stats route.
type Stats struct {
	Active   int64  `json:"active"`
	Total    uint64 `json:"total"`
	Rejected uint64 `json:"rejected"`
}

// Stats returns the connection counters.
func (s *Server) Stats() Stats {
	return Stats{
		Active:   s.active.Load(),
		Total:    s.total.Load(),
		Rejected: s.rejected.Load(),
	}
}

func (s *Server) acceptLoop(listener net.Listener) {
	for {
		sock, err := listener.Accept()
		if err != nil {
			// Listener closed on Stop.
			return
		}

		if s.opts.MaxConnections > 0 && s.active.Load() >= int64(s.opts.MaxConnections) {
			s.rejected.Add(1)
			_ = sock.Close()
			continue
		}

		id := s.nextID.Add(1)
		if !s.register(id, sock) {
			_ = sock.Close()
			return
		}

		s.total.Add(1)
		s.active.Add(1)

		go func() {
			defer func() {
				s.unregister(id)
				s.active.Add(-1)
				_ = sock.Close()
				if s.opts.Limiter != nil {
					s.opts.Limiter.Forget(id)
				}
			}()

			newConn(id, sock, s).handle()
		}()
	}
}

func (s *Server) register(id uint64, sock net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	s.conns[id] = sock
	return true
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}
