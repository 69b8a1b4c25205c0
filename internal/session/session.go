// Package session owns one build of one project: its catalog, resolver
// chain, bundler context, live-update sockets and watcher. Sessions share no
// state, so several may run in one process.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/bundler"
	"github.com/crxkit/crxkit/internal/cache"
	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/envfile"
	"github.com/crxkit/crxkit/internal/livereload"
	"github.com/crxkit/crxkit/internal/loader"
	"github.com/crxkit/crxkit/internal/resolver"
	"github.com/crxkit/crxkit/internal/surface"
	"github.com/crxkit/crxkit/internal/watcher"
)

// ManifestWriter regenerates the extension manifest after entries change.
type ManifestWriter interface {
	WriteManifest(ctx context.Context, cat *surface.Catalog, entries []surface.Entry) error
}

// Options configure a Session.
type Options struct {
	Paths    surface.CommonPaths
	Build    surface.BuildOptions
	BuildDir string
	HacksDir string

	AliasPrefix     string
	CacheSize       int
	PublicEnvPrefix string

	HMRHost      string
	HMRPort      int
	PingInterval time.Duration

	WatchDebounce time.Duration
	WatchIgnore   []string

	Manifest ManifestWriter
}

// Session coordinates rebuilds. Rebuilds are serialized; readers of the
// catalog never block on a build.
type Session struct {
	opts Options

	mu sync.Mutex

	catMu   sync.RWMutex
	cat     *surface.Catalog
	engine  *bundler.Engine
	entries []surface.Entry
	last    bundler.Result
	lastErr error

	checker *resolver.StatChecker
	hacks   *resolver.HackRegistry
	chain   *resolver.Chain
	loader  *loader.HackLoader
	env     map[string]string

	hmr     *livereload.HMRServer
	build   *livereload.BuildSocket
	started bool

	closeOnce sync.Once
	closeErr  error
}

// New builds the catalog and resolver chain, loads hack tables and env
// files and validates the socket configuration. Configuration problems are
// returned as fatal errors.
func New(ctx context.Context, opts Options) (*Session, error) {
	cat, err := surface.Build(opts.Paths, opts.Build)
	if err != nil {
		return nil, err
	}

	s := &Session{
		opts:    opts,
		cat:     cat,
		checker: resolver.NewStatChecker(cache.NewStatCache(opts.CacheSize), nil),
		hacks:   resolver.NewHackRegistry(),
	}

	alias, err := resolver.NewAliasResolver(resolver.AliasOptions{
		Prefix:     opts.AliasPrefix,
		SourceRoot: opts.Paths.SourceDirectory,
		Checker:    s.checker,
	})
	if err != nil {
		return nil, err
	}
	s.chain = resolver.NewChain(alias, s.hacks)

	if opts.HacksDir != "" {
		s.loader = loader.NewHackLoader(opts.HacksDir)
		loadErrors, err := s.loader.LoadInto(ctx, s.hacks)
		if err != nil {
			return nil, err
		}
		if len(loadErrors) > 0 {
			log.Warn().Int("errors", len(loadErrors)).Str("dir", opts.HacksDir).Msg("Some hack tables failed to load")
		}
	}

	if s.env, err = s.readEnv(opts.Build.RuntimeEnv); err != nil {
		return nil, err
	}

	s.build, s.hmr, err = s.newSockets(opts.Build.RuntimeEnv)
	if err != nil {
		return nil, err
	}

	s.engine, err = s.newEngine(cat, s.env)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("browser_target", cat.BrowserTarget()).
		Str("runtime_env", cat.RuntimeEnv()).
		Int("hacks", s.hacks.Len()).
		Bool("live_reload", s.build.Enabled()).
		Msg("Session created")
	return s, nil
}

func (s *Session) newEngine(cat *surface.Catalog, env map[string]string) (*bundler.Engine, error) {
	return bundler.NewEngine(bundler.Options{
		ProjectDir:    cat.Paths().ProjectDirectory,
		BuildDir:      s.opts.BuildDir,
		BrowserTarget: cat.BrowserTarget(),
		RuntimeEnv:    cat.RuntimeEnv(),
		Env:           env,
		Resolver:      s.chain,
	})
}

// newSockets creates the live-update channels for mode. Outside development
// the build socket is disabled and there is no HMR server.
func (s *Session) newSockets(mode string) (*livereload.BuildSocket, *livereload.HMRServer, error) {
	build, err := livereload.NewBuildSocket(livereload.BuildSocketOptions{
		Host:         s.opts.HMRHost,
		HMRPort:      s.opts.HMRPort,
		Mode:         mode,
		PingInterval: s.opts.PingInterval,
	})
	if err != nil {
		return nil, nil, err
	}
	if !build.Enabled() {
		return build, nil, nil
	}
	return build, livereload.NewHMRServer(livereload.HMRServerOptions{
		Host:         s.opts.HMRHost,
		Port:         s.opts.HMRPort,
		PingInterval: s.opts.PingInterval,
	}), nil
}

func startSockets(build *livereload.BuildSocket, hmr *livereload.HMRServer) error {
	if hmr != nil {
		if err := hmr.Start(); err != nil {
			return err
		}
	}
	return build.Start()
}

func closeSockets(ctx context.Context, build *livereload.BuildSocket, hmr *livereload.HMRServer) error {
	var errs []error
	if hmr != nil {
		errs = append(errs, hmr.Close(ctx))
	}
	errs = append(errs, build.Close(ctx))
	return errors.Join(errs...)
}

func (s *Session) readEnv(env string) (map[string]string, error) {
	vars, err := envfile.Load(s.opts.Paths.ProjectDirectory, env)
	if err != nil {
		return nil, err
	}
	return envfile.Public(vars, s.opts.PublicEnvPrefix), nil
}

// Start opens the live-update sockets, discovers entries and runs the
// initial build. A failing initial build is published, not returned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := startSockets(s.sockets()); err != nil {
		return err
	}
	s.started = true

	if err := s.discover(ctx); err != nil {
		return err
	}
	return s.rebuild(ctx)
}

// Run watches the project until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	w, err := watcher.New(watcher.Config{
		Root:     s.opts.Paths.ProjectDirectory,
		BuildDir: s.opts.BuildDir,
		Ignore:   s.opts.WatchIgnore,
		Debounce: s.opts.WatchDebounce,
		Catalog:  s,
		OnChange: s.HandleDecisions,
	})
	if err != nil {
		return err
	}
	log.Info().Str("root", s.opts.Paths.ProjectDirectory).Msg("Watching for changes")
	return w.Run(ctx)
}

// HandleDecisions applies one batch of classified changes and rebuilds
// when anything relevant changed.
func (s *Session) HandleDecisions(ctx context.Context, decisions []watcher.Decision) error {
	sum := watcher.Summarize(decisions)
	if !sum.Rebuild {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range sum.Decisions {
		s.checker.Invalidate(d.Path)
		log.Info().Str("path", d.Path).Str("reason", d.Reason.String()).Str("action", d.Action.String()).Msg("Change detected")
	}

	if sum.ReloadEnv {
		env, err := s.readEnv(s.opts.Build.RuntimeEnv)
		if err != nil {
			return err
		}
		s.env = env
		if err := s.currentEngine().SetEnv(env); err != nil {
			return err
		}
	}
	if sum.Rescan || sum.ManifestChanged {
		if err := s.discover(ctx); err != nil {
			return err
		}
	}
	if sum.ManifestChanged && s.opts.Manifest != nil {
		if err := s.opts.Manifest.WriteManifest(ctx, s.Catalog(), s.Entries()); err != nil {
			log.Error().Err(err).Msg("Failed to write manifest")
		}
	}
	return s.rebuild(ctx)
}

// discover refreshes the entry set and hands it to the engine. Callers
// hold s.mu.
func (s *Session) discover(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.NewAppErrorWithCause(domain.ErrTimeout, "Entry discovery cancelled", 408, err, nil)
	}
	entries, err := surface.DiscoverEntries(s.Catalog(), s.checker)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		log.Warn().Str("src", s.opts.Paths.SourceDirectory).Msg("No entries found")
	}

	s.catMu.Lock()
	s.entries = entries
	engine := s.engine
	s.catMu.Unlock()
	return engine.SetEntries(entries)
}

// rebuild runs the bundler and publishes the outcome. Callers hold s.mu.
func (s *Session) rebuild(ctx context.Context) error {
	res, err := s.currentEngine().Build(ctx)

	s.catMu.Lock()
	s.last, s.lastErr = res, err
	s.catMu.Unlock()

	if err != nil {
		return err
	}

	build, hmr := s.sockets()
	if res.Failed() {
		for _, d := range res.Diagnostics {
			log.Warn().Msg(d.Render())
		}
		if hmr != nil {
			hmr.PublishError(res.Diagnostics)
		}
		return nil
	}

	if hmr != nil && len(res.Assets) > 0 {
		hmr.PublishUpdate(res.Assets)
	}
	if res.ContentScriptChanged() {
		build.Broadcast(livereload.PhaseContentScriptChanged)
	}
	build.Broadcast(livereload.PhaseBuildReady)
	return nil
}

// Rebuild forces a full rebuild with the current entries.
func (s *Session) Rebuild(ctx context.Context) (bundler.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.rebuild(ctx)
	return s.LastBuild(), err
}

// Reconfigure rebuilds the catalog for new build options. Switching into
// or out of development opens or closes the live-update sockets. On error
// the session keeps its previous options, catalog, engine and sockets.
func (s *Session) Reconfigure(ctx context.Context, opts surface.BuildOptions) error {
	cat, err := surface.Build(s.opts.Paths, opts)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env := s.env
	if opts.RuntimeEnv != s.opts.Build.RuntimeEnv {
		if env, err = s.readEnv(opts.RuntimeEnv); err != nil {
			return err
		}
	}

	oldBuild, oldHMR := s.sockets()
	build, hmr := oldBuild, oldHMR
	modeChanged := (opts.RuntimeEnv == livereload.ModeDevelopment) != oldBuild.Enabled()
	if modeChanged {
		if build, hmr, err = s.newSockets(opts.RuntimeEnv); err != nil {
			return err
		}
	}

	engine, err := s.newEngine(cat, env)
	if err != nil {
		return err
	}

	// One side of a mode change is always a disabled socket.
	if modeChanged && s.started {
		if err := startSockets(build, hmr); err != nil {
			engine.Close()
			_ = closeSockets(ctx, build, hmr)
			return err
		}
	}

	s.catMu.Lock()
	old := s.engine
	s.cat, s.engine = cat, engine
	s.build, s.hmr = build, hmr
	s.catMu.Unlock()
	s.opts.Build = opts
	s.env = env
	old.Close()
	s.checker.Reset()
	if modeChanged {
		if err := closeSockets(ctx, oldBuild, oldHMR); err != nil {
			log.Warn().Err(err).Msg("Failed to close live-update sockets")
		}
	}

	log.Info().
		Str("browser_target", opts.BrowserTarget).
		Str("runtime_env", opts.RuntimeEnv).
		Bool("live_reload", build.Enabled()).
		Msg("Session reconfigured")
	if err := s.discover(ctx); err != nil {
		return err
	}
	return s.rebuild(ctx)
}

// Catalog returns the current catalog snapshot.
func (s *Session) Catalog() *surface.Catalog {
	s.catMu.RLock()
	defer s.catMu.RUnlock()
	return s.cat
}

func (s *Session) currentEngine() *bundler.Engine {
	s.catMu.RLock()
	defer s.catMu.RUnlock()
	return s.engine
}

// Entries returns the entries of the last discovery.
func (s *Session) Entries() []surface.Entry {
	s.catMu.RLock()
	defer s.catMu.RUnlock()
	return append([]surface.Entry(nil), s.entries...)
}

// LastBuild returns the result of the most recent build.
func (s *Session) LastBuild() bundler.Result {
	s.catMu.RLock()
	defer s.catMu.RUnlock()
	return s.last
}

// OutDir returns the output directory of the current engine.
func (s *Session) OutDir() string { return s.currentEngine().OutDir() }

// Resolver returns the resolver chain used by the bundler.
func (s *Session) Resolver() *resolver.Chain { return s.chain }

// Checker returns the cached stat checker.
func (s *Session) Checker() *resolver.StatChecker { return s.checker }

// Hacks returns the escape-hatch registry.
func (s *Session) Hacks() *resolver.HackRegistry { return s.hacks }

func (s *Session) sockets() (*livereload.BuildSocket, *livereload.HMRServer) {
	s.catMu.RLock()
	defer s.catMu.RUnlock()
	return s.build, s.hmr
}

// HMR returns the HMR server, nil outside development.
func (s *Session) HMR() *livereload.HMRServer {
	_, hmr := s.sockets()
	return hmr
}

// BuildSocket returns the build-phase channel.
func (s *Session) BuildSocket() *livereload.BuildSocket {
	build, _ := s.sockets()
	return build
}

// Env returns the public variables of the current build.
func (s *Session) Env() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.env))
	for k, v := range s.env {
		out[k] = v
	}
	return out
}

// LoadErrors returns the hack table files that failed to load.
func (s *Session) LoadErrors() []domain.LoadError {
	if s.loader == nil {
		return nil
	}
	return s.loader.LoadErrors()
}

type catalogHealth struct{ s *Session }

func (c catalogHealth) HealthCheck(ctx context.Context) domain.HealthStatus {
	return c.s.Catalog().HealthCheck(ctx)
}

type buildHealth struct{ s *Session }

func (b buildHealth) HealthCheck(ctx context.Context) domain.HealthStatus {
	b.s.catMu.RLock()
	last, lastErr := b.s.last, b.s.lastErr
	b.s.catMu.RUnlock()

	status := domain.HealthStatus{
		Status:    domain.HealthStatusHealthy,
		Message:   "Last build succeeded",
		Details:   map[string]any{"assets": len(last.Assets), "warnings": last.Warnings, "duration": last.Duration.String()},
		Timestamp: time.Now(),
	}
	switch {
	case lastErr != nil:
		status.Status = domain.HealthStatusUnhealthy
		status.Message = "Last build could not run"
		status.Details["error"] = lastErr.Error()
	case last.Failed():
		status.Status = domain.HealthStatusDegraded
		status.Message = "Last build reported errors"
		status.Details["errors"] = len(last.Diagnostics)
	}
	return status
}

// HealthReporters returns the named components of the session.
func (s *Session) HealthReporters() map[string]domain.HealthReporter {
	build, hmr := s.sockets()
	reporters := map[string]domain.HealthReporter{
		"catalog":        catalogHealth{s},
		"resolver_cache": s.checker,
		"bundler":        buildHealth{s},
		"build_socket":   build,
	}
	if hmr != nil {
		reporters["hmr"] = hmr
	}
	return reporters
}

// Close stops the sockets and disposes the bundler. It is safe to call
// more than once.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		build, hmr := s.sockets()
		s.closeErr = closeSockets(ctx, build, hmr)
		s.currentEngine().Close()
		log.Info().Msg("Session closed")
	})
	return s.closeErr
}
