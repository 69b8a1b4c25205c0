package livereload

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/domain"
)

const (
	defaultWriteWait    = 10 * time.Second
	defaultPingInterval = 30 * time.Second
)

// ServerOptions configure one websocket endpoint.
type ServerOptions struct {
	Name         string
	Addr         string
	PingInterval time.Duration
	WriteWait    time.Duration
}

// Server accepts websocket clients on one address and registers them with
// a hub. Clients never send application frames; the read loop only detects
// disconnects and services pongs.
type Server struct {
	opts     ServerOptions
	hub      *Hub
	upgrader websocket.Upgrader

	mu       sync.Mutex
	http     *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a server. It does not listen until Start.
func NewServer(opts ServerOptions) *Server {
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	return &Server{
		opts: opts,
		hub:  NewHub(opts.Name, opts.WriteWait),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// extension pages connect from chrome-extension:// origins
				return true
			},
		},
	}
}

// Hub returns the connection registry.
func (s *Server) Hub() *Hub { return s.hub }

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return domain.NewAppErrorWithCause(domain.ErrTransport, "Failed to listen", 500, err, map[string]any{
			"socket": s.opts.Name,
			"addr":   s.opts.Addr,
		})
	}
	s.listener = ln
	s.http = &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("socket", s.opts.Name).Msg("Socket server stopped")
		}
	}()

	log.Info().Str("socket", s.opts.Name).Str("addr", ln.Addr().String()).Msg("Socket server listening")
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// ServeHTTP upgrades the request and serves the connection until the
// client goes away.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("socket", s.opts.Name).Msg("Websocket upgrade failed")
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	conn := s.hub.Register(ws, r.RemoteAddr)
	defer s.hub.Remove(conn.ID())

	pongWait := s.opts.PingInterval * 10 / 9
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(s.opts.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := s.hub.Ping(conn); err != nil {
					return
				}
			}
		}
	}()

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("socket", s.opts.Name).Str("conn_id", conn.ID()).Msg("Client transport error")
			}
			return
		}
	}
}

// Shutdown closes every client and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.listener = nil
	s.mu.Unlock()

	s.hub.CloseAll()
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
	}
	return err
}
