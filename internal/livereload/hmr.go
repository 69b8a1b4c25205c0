package livereload

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/domain"
)

// HMRServerOptions configure the hot-module-replacement channel.
type HMRServerOptions struct {
	Host         string
	Port         int
	PingInterval time.Duration
	WriteWait    time.Duration
}

// HMRServer pushes update and error messages to extension contexts.
type HMRServer struct {
	server *Server
}

// NewHMRServer creates the HMR channel. Port 0 binds an ephemeral port.
func NewHMRServer(opts HMRServerOptions) *HMRServer {
	return &HMRServer{
		server: NewServer(ServerOptions{
			Name:         "hmr",
			Addr:         net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
			PingInterval: opts.PingInterval,
			WriteWait:    opts.WriteWait,
		}),
	}
}

// Start begins listening.
func (h *HMRServer) Start() error { return h.server.Start() }

// Addr returns the listen address.
func (h *HMRServer) Addr() string { return h.server.Addr() }

// PublishUpdate sends an update carrying assets in order.
func (h *HMRServer) PublishUpdate(assets []Asset) int {
	return h.publish(NewUpdateMessage(assets))
}

// PublishError sends the diagnostics of a failed build.
func (h *HMRServer) PublishError(diags []Diagnostic) int {
	return h.publish(NewErrorMessage(diags))
}

func (h *HMRServer) publish(msg HMRMessage) int {
	n, err := h.server.Hub().Broadcast(msg)
	if err != nil {
		log.Error().Err(err).Str("type", msg.Type).Msg("Failed to encode HMR message")
		return 0
	}
	log.Debug().Str("type", msg.Type).Int("clients", n).Msg("HMR message published")
	return n
}

// ClientCount returns the number of connected clients.
func (h *HMRServer) ClientCount() int { return h.server.Hub().Len() }

// Clients lists connected clients.
func (h *HMRServer) Clients() []ClientInfo { return h.server.Hub().Clients() }

// Close stops the server.
func (h *HMRServer) Close(ctx context.Context) error { return h.server.Shutdown(ctx) }

// HealthCheck reports the server as a health component.
func (h *HMRServer) HealthCheck(ctx context.Context) domain.HealthStatus {
	return socketHealth(h.server, "HMR server")
}
