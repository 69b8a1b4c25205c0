// Package bundler drives esbuild incremental builds over the discovered
// surface entries and reports what changed between builds.
package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/envfile"
	"github.com/crxkit/crxkit/internal/livereload"
	"github.com/crxkit/crxkit/internal/resolver"
	"github.com/crxkit/crxkit/internal/surface"
)

// OutputFormat is reported on every HMR asset.
const OutputFormat = "esmodule"

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Options configure an Engine.
type Options struct {
	ProjectDir    string
	BuildDir      string
	BrowserTarget string
	RuntimeEnv    string
	// Env holds the public variables exposed as process.env.<KEY>.
	Env      map[string]string
	Resolver resolver.Strategy
}

// OutputDir returns the per-target output directory under buildDir.
func OutputDir(buildDir, browser, env string) string {
	return filepath.Join(buildDir, fmt.Sprintf("%s-mv3-%s", browser, envShort(env)))
}

func envShort(env string) string {
	switch env {
	case "development":
		return "dev"
	case "production":
		return "prod"
	default:
		return env
	}
}

// Result describes one build.
type Result struct {
	Assets      []livereload.Asset      `json:"assets"`
	Diagnostics []livereload.Diagnostic `json:"diagnostics,omitempty"`
	Warnings    int                     `json:"warnings"`
	Outputs     int                     `json:"outputs"`
	Duration    time.Duration           `json:"duration"`
}

// Failed reports whether the build produced errors.
func (r Result) Failed() bool { return len(r.Diagnostics) > 0 }

// ContentScriptChanged reports whether a content script output changed.
func (r Result) ContentScriptChanged() bool {
	for _, a := range r.Assets {
		if IsContentOutput(a.Output) {
			return true
		}
	}
	return false
}

// IsContentOutput reports whether an output path relative to the output
// directory belongs to a content script.
func IsContentOutput(rel string) bool {
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, string(domain.SurfaceContent)+".") {
		return true
	}
	d, err := domain.Describe(domain.SurfaceContent)
	return err == nil && strings.HasPrefix(rel, d.DirectoryName+"/")
}

// Engine owns one esbuild context. Entries or env changes recreate it.
type Engine struct {
	mu      sync.Mutex
	opts    Options
	outDir  string
	entries []surface.Entry
	bctx    api.BuildContext
	hashes  map[string]string
	pages   map[string][]byte
	builds  int
}

// NewEngine validates opts. No esbuild context exists until SetEntries.
func NewEngine(opts Options) (*Engine, error) {
	if !filepath.IsAbs(opts.ProjectDir) || !filepath.IsAbs(opts.BuildDir) {
		return nil, domain.NewConfigError("project and build directories must be absolute", map[string]any{
			"project_dir": opts.ProjectDir,
			"build_dir":   opts.BuildDir,
		})
	}
	if opts.BrowserTarget == "" || opts.RuntimeEnv == "" {
		return nil, domain.NewConfigError("browser target and runtime env are required", nil)
	}
	return &Engine{
		opts:   opts,
		outDir: OutputDir(opts.BuildDir, opts.BrowserTarget, opts.RuntimeEnv),
		hashes: make(map[string]string),
		pages:  make(map[string][]byte),
	}, nil
}

// OutDir returns the directory outputs are written to.
func (e *Engine) OutDir() string { return e.outDir }

// Entries returns the entries of the current context.
func (e *Engine) Entries() []surface.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]surface.Entry(nil), e.entries...)
}

// SetEntries recreates the build context for entries.
func (e *Engine) SetEntries(entries []surface.Entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append([]surface.Entry(nil), entries...)
	return e.recreate()
}

// SetEnv replaces the public variables and recreates the build context.
func (e *Engine) SetEnv(env map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Env = env
	clear(e.hashes)
	return e.recreate()
}

func (e *Engine) recreate() error {
	if e.bctx != nil {
		e.bctx.Dispose()
		e.bctx = nil
	}
	if len(e.entries) == 0 {
		return nil
	}

	points := make([]api.EntryPoint, len(e.entries))
	for i, entry := range e.entries {
		points[i] = api.EntryPoint{InputPath: entry.Path, OutputPath: entry.OutputName}
	}

	var plugins []api.Plugin
	if e.opts.Resolver != nil {
		plugins = append(plugins, ResolverPlugin(e.opts.Resolver))
	}

	dev := e.opts.RuntimeEnv == livereload.ModeDevelopment
	sourcemap := api.SourceMapNone
	if dev {
		sourcemap = api.SourceMapLinked
	}

	bctx, ctxErr := api.Context(api.BuildOptions{
		AbsWorkingDir:       e.opts.ProjectDir,
		EntryPointsAdvanced: points,
		Bundle:              true,
		Write:               false,
		Metafile:            true,
		Outdir:              e.outDir,
		Platform:            api.PlatformBrowser,
		Format:              api.FormatESModule,
		Target:              api.ES2020,
		Sourcemap:           sourcemap,
		MinifyWhitespace:    !dev,
		MinifyIdentifiers:   !dev,
		MinifySyntax:        !dev,
		Define:              e.define(),
		Plugins:             plugins,
		LogLevel:            api.LogLevelSilent,
		Loader: map[string]api.Loader{
			".png":  api.LoaderFile,
			".svg":  api.LoaderFile,
			".woff": api.LoaderFile,
		},
	})
	if ctxErr != nil {
		diags := toDiagnostics(ctxErr.Errors)
		return domain.NewAppError(domain.ErrBuildFailed, "Failed to create build context", 500, map[string]any{
			"diagnostics": diags,
		})
	}
	e.bctx = bctx
	log.Debug().Int("entries", len(e.entries)).Str("outdir", e.outDir).Msg("Build context created")
	return nil
}

func (e *Engine) define() map[string]string {
	define := map[string]string{
		"process.env.NODE_ENV": strconv.Quote(e.opts.RuntimeEnv),
	}
	for _, k := range envfile.SortedKeys(e.opts.Env) {
		if !identifier.MatchString(k) {
			log.Warn().Str("key", k).Msg("Skipping env variable that is not an identifier")
			continue
		}
		v, _ := json.Marshal(e.opts.Env[k])
		define["process.env."+k] = string(v)
	}
	return define
}

// EnvHash fingerprints the variables baked into the current build.
func (e *Engine) EnvHash() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.envHash()
}

func (e *Engine) envHash() string {
	h := fnv.New64a()
	h.Write([]byte(e.opts.RuntimeEnv))
	for _, k := range envfile.SortedKeys(e.opts.Env) {
		fmt.Fprintf(h, "\x00%s=%s", k, e.opts.Env[k])
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Build rebuilds and writes every output whose content changed. Build
// errors come back as diagnostics; the returned error is reserved for
// cancellation and output failures.
func (e *Engine) Build(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, domain.NewAppErrorWithCause(domain.ErrTimeout, "Build cancelled", 408, err, nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	var res Result
	if e.bctx == nil {
		return res, nil
	}

	out := e.bctx.Rebuild()
	res.Warnings = len(out.Warnings)
	res.Outputs = len(out.OutputFiles)
	if len(out.Errors) > 0 {
		res.Diagnostics = toDiagnostics(out.Errors)
		res.Duration = time.Since(start)
		log.Warn().Int("errors", len(out.Errors)).Dur("duration", res.Duration).Msg("Build failed")
		return res, nil
	}

	deps := dependencies(out.Metafile, e.opts.ProjectDir, e.outDir)
	envHash := e.envHash()

	for _, f := range out.OutputFiles {
		if e.hashes[f.Path] == f.Hash {
			continue
		}
		if err := writeOutput(f.Path, f.Contents); err != nil {
			return res, err
		}
		e.hashes[f.Path] = f.Hash

		rel, err := filepath.Rel(e.outDir, f.Path)
		if err != nil || strings.HasSuffix(rel, ".map") {
			continue
		}
		rel = filepath.ToSlash(rel)
		res.Assets = append(res.Assets, livereload.Asset{
			ID:           rel,
			Type:         assetType(rel),
			Output:       rel,
			EnvHash:      envHash,
			OutputFormat: OutputFormat,
			DepsByBundle: map[string]map[string]string{rel: deps[rel]},
		})
	}

	pages, err := e.copyPages(envHash)
	if err != nil {
		return res, err
	}
	res.Assets = append(res.Assets, pages...)
	sort.Slice(res.Assets, func(i, j int) bool { return res.Assets[i].ID < res.Assets[j].ID })

	e.builds++
	res.Duration = time.Since(start)
	log.Info().
		Int("outputs", res.Outputs).
		Int("changed", len(res.Assets)).
		Int("warnings", res.Warnings).
		Dur("duration", res.Duration).
		Msg("Build complete")
	return res, nil
}

// copyPages copies the HTML companion of every UI entry next to its script.
func (e *Engine) copyPages(envHash string) ([]livereload.Asset, error) {
	var assets []livereload.Asset
	for _, entry := range e.entries {
		if entry.HTML == "" {
			continue
		}
		data, err := os.ReadFile(entry.HTML)
		if err != nil {
			return nil, domain.NewAppErrorWithCause(domain.ErrBuildFailed, "Failed to read page", 500, err, map[string]any{"path": entry.HTML})
		}
		rel := entry.OutputName + ".html"
		target := filepath.Join(e.outDir, filepath.FromSlash(rel))
		if prev, ok := e.pages[target]; ok && bytes.Equal(prev, data) {
			continue
		}
		if err := writeOutput(target, data); err != nil {
			return nil, err
		}
		e.pages[target] = data
		assets = append(assets, livereload.Asset{
			ID:           rel,
			Type:         "html",
			Output:       rel,
			EnvHash:      envHash,
			OutputFormat: OutputFormat,
			DepsByBundle: map[string]map[string]string{rel: {}},
		})
	}
	return assets, nil
}

// Builds returns the number of successful builds.
func (e *Engine) Builds() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.builds
}

// Close disposes the build context.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bctx != nil {
		e.bctx.Dispose()
		e.bctx = nil
	}
}

func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.NewAppErrorWithCause(domain.ErrBuildFailed, "Failed to create output directory", 500, err, map[string]any{"path": path})
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.NewAppErrorWithCause(domain.ErrBuildFailed, "Failed to write output", 500, err, map[string]any{"path": path})
	}
	return nil
}

func assetType(rel string) string {
	switch filepath.Ext(rel) {
	case ".css":
		return "css"
	case ".js", ".mjs":
		return "js"
	default:
		return strings.TrimPrefix(filepath.Ext(rel), ".")
	}
}

type metafile struct {
	Outputs map[string]struct {
		Inputs map[string]json.RawMessage `json:"inputs"`
	} `json:"outputs"`
}

// dependencies maps each output, relative to outDir, onto its inputs
// relative to the project.
func dependencies(raw, projectDir, outDir string) map[string]map[string]string {
	deps := make(map[string]map[string]string)
	if raw == "" {
		return deps
	}
	var meta metafile
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		log.Warn().Err(err).Msg("Failed to decode build metafile")
		return deps
	}
	for out, o := range meta.Outputs {
		rel, err := filepath.Rel(outDir, filepath.Join(projectDir, filepath.FromSlash(out)))
		if err != nil {
			continue
		}
		inputs := make(map[string]string, len(o.Inputs))
		for in := range o.Inputs {
			inputs[in] = in
		}
		deps[filepath.ToSlash(rel)] = inputs
	}
	return deps
}

func toDiagnostics(msgs []api.Message) []livereload.Diagnostic {
	if len(msgs) == 0 {
		return nil
	}
	frames := api.FormatMessages(msgs, api.FormatMessagesOptions{Kind: api.ErrorMessage, Color: true})
	diags := make([]livereload.Diagnostic, len(msgs))
	for i, m := range msgs {
		d := livereload.Diagnostic{Message: m.Text, Hints: []string{}}
		if m.PluginName != "" {
			d.Message = fmt.Sprintf("[%s] %s", m.PluginName, m.Text)
		}
		if i < len(frames) {
			d.Codeframe = strings.TrimRight(frames[i], "\n")
		}
		for _, n := range m.Notes {
			d.Hints = append(d.Hints, n.Text)
		}
		diags[i] = d
	}
	return diags
}
