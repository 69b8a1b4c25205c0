package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/bundler"
	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/livereload"
	"github.com/crxkit/crxkit/internal/resolver"
	"github.com/crxkit/crxkit/internal/surface"
	"github.com/crxkit/crxkit/internal/watcher"
)

// Workspace is the build state the API inspects
type Workspace interface {
	Catalog() *surface.Catalog
	Entries() []surface.Entry
	LastBuild() bundler.Result
}

// CacheStatsProvider exposes resolver cache statistics
type CacheStatsProvider interface {
	Stats() domain.CacheStats
}

// ClientLister lists the connections on a live-update socket
type ClientLister interface {
	ClientCount() int
	Clients() []livereload.ClientInfo
}

// BuildSocket is the build-phase socket as seen by the API
type BuildSocket interface {
	domain.Broadcaster
	Clients() []livereload.ClientInfo
	Enabled() bool
}

// Handlers contains all HTTP handlers and their dependencies
type Handlers struct {
	workspace     Workspace
	resolver      resolver.Strategy
	cache         CacheStatsProvider
	build         BuildSocket
	hmr           ClientLister
	validator     domain.Validator
	healthChecker domain.HealthChecker
}

// NewHandlers creates a new handlers instance with dependencies
func NewHandlers(deps RouterDependencies) *Handlers {
	return &Handlers{
		workspace:     deps.Workspace,
		resolver:      deps.Resolver,
		cache:         deps.Cache,
		build:         deps.BuildSocket,
		hmr:           deps.HMR,
		validator:     deps.Validator,
		healthChecker: deps.HealthChecker,
	}
}

// ResolveRequest represents the request body for POST /v1/resolve
// @Description Request payload for import specifier resolution
type ResolveRequest struct {
	Specifier  string `json:"specifier"`
	Importer   string `json:"importer,omitempty"`
	ResolveDir string `json:"resolve_dir,omitempty"`
}

// ResolveResponse reports how the resolver chain handled a specifier.
// Handled=false means the bundler's own resolution applies.
// @Description Outcome of running a specifier through the resolver chain
type ResolveResponse struct {
	Specifier string `json:"specifier"`
	Handled   bool   `json:"handled"`
	Path      string `json:"path,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
}

// BroadcastRequest represents the request body for POST /v1/broadcast
// @Description Build-phase tag to send to connected clients
type BroadcastRequest struct {
	Type string `json:"type"`
}

// SuccessResponse represents a successful API response
// @Description Standard success response format
type SuccessResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

// ErrorResponse represents an error API response
// @Description Standard error response format
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// CatalogHandler handles GET /v1/catalog requests
// @Summary      Show the surface catalog
// @Description  Returns every watched path with its reason, the watched directories and the build options
// @Tags         Catalog
// @Produce      json
// @Success      200 {object} SuccessResponse{data=surface.Snapshot} "Current catalog"
// @Router       /v1/catalog [get]
func (h *Handlers) CatalogHandler(c *fiber.Ctx) error {
	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data:   h.workspace.Catalog().Snapshot(),
	})
}

// ClassifyHandler handles GET /v1/classify?path=&op= requests
// @Summary      Classify a file change
// @Description  Runs a synthetic change event through the watch dispatcher and returns the decision
// @Tags         Catalog
// @Produce      json
// @Param        path query string true "Absolute file path"
// @Param        op query string false "Change type" Enums(created, modified, deleted) default(modified)
// @Success      200 {object} SuccessResponse{data=watcher.Decision} "Dispatch decision"
// @Failure      400 {object} ErrorResponse "Invalid change type"
// @Failure      422 {object} ErrorResponse "Validation failed"
// @Router       /v1/classify [get]
func (h *Handlers) ClassifyHandler(c *fiber.Ctx) error {
	ctx := c.UserContext()

	path := c.Query("path")
	if err := h.validator.ValidatePath(path); err != nil {
		return h.sendError(c, asAppError(err).WithContext(ctx, "classify_validation"))
	}

	op := domain.ChangeModified
	if raw := c.Query("op"); raw != "" {
		parsed, ok := domain.ParseChangeType(raw)
		if !ok {
			return h.sendError(c, domain.NewAppError(
				domain.ErrInvalidInput,
				"op must be one of: created modified deleted",
				400,
				map[string]any{"field": "op", "value": raw},
			).WithContext(ctx, "classify_validation"))
		}
		op = parsed
	}

	decision := watcher.Classify(h.workspace.Catalog(), watcher.FileEvent{Path: path, Op: op})

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data:   decision,
	})
}

// ResolveHandler handles POST /v1/resolve requests
// @Summary      Resolve an import specifier
// @Description  Runs a specifier through the alias and escape-hatch strategies. handled=false means the bundler resolves it itself
// @Tags         Resolution
// @Accept       json
// @Produce      json
// @Param        request body ResolveRequest true "Specifier to resolve"
// @Success      200 {object} SuccessResponse{data=ResolveResponse} "Resolution outcome"
// @Failure      400 {object} ErrorResponse "Invalid request payload"
// @Failure      422 {object} ErrorResponse "Validation or resolution failed"
// @Failure      500 {object} ErrorResponse "Internal server error"
// @Router       /v1/resolve [post]
func (h *Handlers) ResolveHandler(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return h.sendError(c, domain.NewAppError(
			domain.ErrInvalidInput,
			"Invalid JSON payload",
			400,
			map[string]string{"error": err.Error()},
		).WithContext(ctx, "resolve_parse"))
	}

	if err := h.validator.ValidateSpecifier(req.Specifier); err != nil {
		return h.sendError(c, asAppError(err).WithContext(ctx, "resolve_validation"))
	}
	for _, p := range []string{req.Importer, req.ResolveDir} {
		if p == "" {
			continue
		}
		if err := h.validator.ValidatePath(p); err != nil {
			return h.sendError(c, asAppError(err).WithContext(ctx, "resolve_validation"))
		}
	}

	res, handled, err := h.resolver.Resolve(ctx, resolver.Request{
		Specifier:  req.Specifier,
		Importer:   req.Importer,
		ResolveDir: req.ResolveDir,
	})
	if err != nil {
		log.Warn().Err(err).Str("specifier", req.Specifier).Msg("Resolution failed")
		return h.sendError(c, asAppError(err).WithContext(ctx, "resolve"))
	}

	resp := ResolveResponse{Specifier: req.Specifier, Handled: handled}
	if handled {
		resp.Path = res.Path
		resp.Strategy = res.Strategy
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data:   resp,
	})
}

// EntriesHandler handles GET /v1/entries requests
// @Summary      List bundler entries
// @Description  Returns the entries found by the last discovery
// @Tags         Build
// @Produce      json
// @Success      200 {object} SuccessResponse{data=object{entries=[]surface.Entry,count=int}} "Discovered entries"
// @Router       /v1/entries [get]
func (h *Handlers) EntriesHandler(c *fiber.Ctx) error {
	entries := h.workspace.Entries()
	if entries == nil {
		entries = []surface.Entry{}
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"entries": entries,
			"count":   len(entries),
		},
	})
}

// ClientsHandler handles GET /v1/clients requests
// @Summary      List live-update clients
// @Description  Returns the connections on the build-phase and HMR sockets
// @Tags         Live update
// @Produce      json
// @Success      200 {object} SuccessResponse{data=object{build=[]livereload.ClientInfo,hmr=[]livereload.ClientInfo}} "Connected clients"
// @Router       /v1/clients [get]
func (h *Handlers) ClientsHandler(c *fiber.Ctx) error {
	build := []livereload.ClientInfo{}
	if h.build != nil {
		build = append(build, h.build.Clients()...)
	}
	hmr := []livereload.ClientInfo{}
	if h.hmr != nil {
		hmr = append(hmr, h.hmr.Clients()...)
	}

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"build": build,
			"hmr":   hmr,
		},
	})
}

// BroadcastHandler handles POST /v1/broadcast requests
// @Summary      Broadcast a build-phase tag
// @Description  Sends {type} to every open build-phase client
// @Tags         Live update
// @Accept       json
// @Produce      json
// @Param        request body BroadcastRequest true "Tag to broadcast"
// @Success      200 {object} SuccessResponse{data=object{type=string,delivered=int}} "Broadcast delivered"
// @Failure      400 {object} ErrorResponse "Invalid request payload"
// @Failure      409 {object} ErrorResponse "Build socket is not running"
// @Failure      422 {object} ErrorResponse "Validation failed"
// @Router       /v1/broadcast [post]
func (h *Handlers) BroadcastHandler(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req BroadcastRequest
	if err := c.BodyParser(&req); err != nil {
		return h.sendError(c, domain.NewAppError(
			domain.ErrInvalidInput,
			"Invalid JSON payload",
			400,
			map[string]string{"error": err.Error()},
		).WithContext(ctx, "broadcast_parse"))
	}

	if err := h.validator.ValidateEvent(req.Type); err != nil {
		return h.sendError(c, asAppError(err).WithContext(ctx, "broadcast_validation"))
	}

	if h.build == nil || !h.build.Enabled() {
		return h.sendError(c, domain.NewAppError(
			domain.ErrInvalidInput,
			"Build socket is not running",
			409,
			map[string]string{"type": req.Type},
		).WithContext(ctx, "broadcast"))
	}

	delivered := h.build.Broadcast(req.Type)
	log.Info().Str("type", req.Type).Int("delivered", delivered).Msg("Build event broadcast via API")

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data: map[string]any{
			"type":      req.Type,
			"delivered": delivered,
		},
	})
}

// HealthHandler handles GET /health requests
// @Summary      Health check
// @Description  Aggregated health of the catalog, resolver cache, bundler and sockets
// @Tags         System
// @Produce      json
// @Success      200 {object} object{status=string,timestamp=string,components=object,uptime=string} "Healthy"
// @Failure      503 {object} object{status=string,timestamp=string,components=object,uptime=string} "Degraded or unhealthy"
// @Router       /health [get]
func (h *Handlers) HealthHandler(c *fiber.Ctx) error {
	health := h.healthChecker.CheckHealth(c.UserContext())

	status := 200
	if health.Status != domain.HealthStatusHealthy {
		status = 503
	}

	return c.Status(status).JSON(map[string]any{
		"status":     health.Status,
		"timestamp":  health.Timestamp.Format(time.RFC3339),
		"components": health.Components,
		"uptime":     health.Uptime.String(),
	})
}

// MetricsHandler handles GET /metrics requests
// @Summary      Build metrics
// @Description  Last build statistics, entry count, resolver cache statistics and client counts
// @Tags         System
// @Produce      json
// @Success      200 {object} SuccessResponse{data=object} "Current metrics"
// @Router       /metrics [get]
func (h *Handlers) MetricsHandler(c *fiber.Ctx) error {
	last := h.workspace.LastBuild()

	data := map[string]any{
		"build": map[string]any{
			"assets":      len(last.Assets),
			"outputs":     last.Outputs,
			"warnings":    last.Warnings,
			"diagnostics": len(last.Diagnostics),
			"failed":      last.Failed(),
			"duration_ms": last.Duration.Milliseconds(),
		},
		"entries": len(h.workspace.Entries()),
		"uptime": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	}

	if h.cache != nil {
		stats := h.cache.Stats()
		data["cache"] = map[string]any{
			"hits":      stats.Hits,
			"misses":    stats.Misses,
			"size":      stats.Size,
			"max_size":  stats.MaxSize,
			"hit_ratio": stats.HitRatio,
		}
	}

	clients := map[string]int{"build": 0, "hmr": 0}
	if h.build != nil {
		clients["build"] = h.build.ClientCount()
	}
	if h.hmr != nil {
		clients["hmr"] = h.hmr.ClientCount()
	}
	data["clients"] = clients

	return c.Status(200).JSON(SuccessResponse{
		Status: "success",
		Data:   data,
	})
}

// sendError sends a standardized error response
func (h *Handlers) sendError(c *fiber.Ctx, appErr *domain.AppError) error {
	return c.Status(appErr.StatusCode).JSON(ErrorResponse{
		Status:  "error",
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	})
}

// asAppError unwraps an AppError or wraps err as an internal error
func asAppError(err error) *domain.AppError {
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return domain.NewAppErrorWithCause(domain.ErrInternal, strings.TrimSpace(err.Error()), 500, err, nil)
}
