package livereload

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/domain"
)

// ModeDevelopment is the only mode in which the build socket is served.
const ModeDevelopment = "development"

// BuildSocketOptions configure the build-phase channel.
type BuildSocketOptions struct {
	Host         string
	HMRPort      int
	Mode         string
	PingInterval time.Duration
	WriteWait    time.Duration
}

// BuildSocket broadcasts build-phase tags on the port after the HMR port.
// Outside development it is a disabled no-op.
type BuildSocket struct {
	server *Server
}

// NewBuildSocket creates the build-phase channel. A development build
// without an HMR port is a configuration error.
func NewBuildSocket(opts BuildSocketOptions) (*BuildSocket, error) {
	if opts.Mode != ModeDevelopment {
		log.Debug().Str("mode", opts.Mode).Msg("Build socket disabled")
		return &BuildSocket{}, nil
	}
	if opts.HMRPort == 0 {
		return nil, domain.NewAppError(domain.ErrPortMissing, "HMR port is not provided", 500, map[string]any{"mode": opts.Mode})
	}
	if opts.HMRPort < 0 || opts.HMRPort > 65534 {
		return nil, domain.NewConfigError("HMR port out of range", map[string]any{"hmr_port": opts.HMRPort})
	}

	return &BuildSocket{
		server: NewServer(ServerOptions{
			Name:         "build",
			Addr:         net.JoinHostPort(opts.Host, strconv.Itoa(opts.HMRPort+1)),
			PingInterval: opts.PingInterval,
			WriteWait:    opts.WriteWait,
		}),
	}, nil
}

// Enabled reports whether the socket serves clients.
func (b *BuildSocket) Enabled() bool { return b.server != nil }

// Start begins listening. A disabled socket does nothing.
func (b *BuildSocket) Start() error {
	if b.server == nil {
		return nil
	}
	return b.server.Start()
}

// Addr returns the listen address, empty when disabled.
func (b *BuildSocket) Addr() string {
	if b.server == nil {
		return ""
	}
	return b.server.Addr()
}

// Broadcast sends {type: event} to every open client and returns the number
// of deliveries. Zero clients is a no-op.
func (b *BuildSocket) Broadcast(event string) int {
	if b.server == nil || event == "" {
		return 0
	}
	n, err := b.server.Hub().Broadcast(BuildMessage{Type: event})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("Failed to encode build message")
		return 0
	}
	log.Debug().Str("event", event).Int("clients", n).Msg("Build event broadcast")
	return n
}

// ClientCount returns the number of connected clients.
func (b *BuildSocket) ClientCount() int {
	if b.server == nil {
		return 0
	}
	return b.server.Hub().Len()
}

// Clients lists connected clients.
func (b *BuildSocket) Clients() []ClientInfo {
	if b.server == nil {
		return nil
	}
	return b.server.Hub().Clients()
}

// Close stops the socket. Closing a disabled socket is a no-op.
func (b *BuildSocket) Close(ctx context.Context) error {
	if b.server == nil {
		return nil
	}
	return b.server.Shutdown(ctx)
}

var _ domain.Broadcaster = (*BuildSocket)(nil)

// HealthCheck reports the socket as a health component.
func (b *BuildSocket) HealthCheck(ctx context.Context) domain.HealthStatus {
	if b.server == nil {
		return domain.HealthStatus{Status: domain.HealthStatusHealthy, Message: "Build socket disabled", Timestamp: time.Now()}
	}
	return socketHealth(b.server, "Build socket")
}

func socketHealth(s *Server, label string) domain.HealthStatus {
	s.mu.Lock()
	listening := s.listener != nil
	s.mu.Unlock()

	details := s.Hub().Stats()
	details["addr"] = s.Addr()
	if !listening {
		return domain.HealthStatus{Status: domain.HealthStatusUnhealthy, Message: label + " is not listening", Details: details, Timestamp: time.Now()}
	}
	return domain.HealthStatus{Status: domain.HealthStatusHealthy, Message: label + " is listening", Details: details, Timestamp: time.Now()}
}
